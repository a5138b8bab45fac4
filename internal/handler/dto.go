package handler

import (
	"time"

	"tasktracker/internal/model"
)

// TaskDTO is the wire form of a task.
type TaskDTO struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      model.TaskStatus   `json:"status"`
	Priority    model.TaskPriority `json:"priority"`
	AuthorID    uint               `json:"authorId"`
	AssigneeID  uint               `json:"assigneeId"`
	Comments    []CommentDTO       `json:"comments"`
}

// CommentDTO is the wire form of a comment.
type CommentDTO struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	TaskID   uint   `json:"taskId"`
	AuthorID uint   `json:"authorId"`
}

// UserResponse is the public view of a registered user.
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskPage is a page of tasks as returned by the listing endpoints.
type TaskPage = model.Page[TaskDTO]

func toTaskDTO(t model.Task) TaskDTO {
	comments := make([]CommentDTO, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, toCommentDTO(c))
	}
	return TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AuthorID:    t.AuthorID,
		AssigneeID:  t.AssigneeID,
		Comments:    comments,
	}
}

func toTaskDTOs(tasks []model.Task) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskDTO(t))
	}
	return out
}

func toCommentDTO(c model.Comment) CommentDTO {
	return CommentDTO{
		ID:       c.ID,
		Text:     c.Text,
		TaskID:   c.TaskID,
		AuthorID: c.AuthorID,
	}
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Roles:     u.RoleNames(),
		CreatedAt: u.CreatedAt,
	}
}
