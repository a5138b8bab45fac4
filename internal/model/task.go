package model

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// TaskPriority represents how urgent a task is.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// ParseTaskStatus converts a string into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// ParseTaskPriority converts a string into a TaskPriority.
func ParseTaskPriority(s string) (TaskPriority, error) {
	switch p := TaskPriority(strings.ToUpper(strings.TrimSpace(s))); p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown task priority %q", s)
}

// Task is the central work item. Author is fixed at creation; the assignee
// can change. Comments belong to exactly one task and go away with it.
type Task struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"size:200;not null"`
	Description string       `json:"description" gorm:"type:text"`
	Status      TaskStatus   `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Priority    TaskPriority `json:"priority" gorm:"type:varchar(20);not null;default:'MEDIUM';index"`
	AuthorID    uint         `json:"author_id" gorm:"not null;index"`
	AssigneeID  uint         `json:"assignee_id" gorm:"not null;index"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Relations
	Author   User      `json:"-" gorm:"foreignKey:AuthorID"`
	Assignee User      `json:"-" gorm:"foreignKey:AssigneeID"`
	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:TaskID"`
}

// Comment is an immutable note left on a task by its author or assignee.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"size:2000;not null"`
	TaskID    uint      `json:"task_id" gorm:"not null;index"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxCommentLength is the longest comment text accepted, in characters.
const MaxCommentLength = 2000
