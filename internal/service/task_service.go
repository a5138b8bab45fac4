package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/labstack/gommon/log"
	"gorm.io/gorm"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

const (
	// MaxPageSize is the largest page a listing may request.
	MaxPageSize    = 100
	maxTitleLength = 200
)

// CreateTaskInput carries the fields of a new task. Nil status and
// priority fall back to PENDING and MEDIUM.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	AssigneeID  uint
}

// UpdateTaskInput is a partial update: nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	AssigneeID  *uint
}

// TaskService handles the task lifecycle. Role checks happen before these
// calls; the service enforces rules that depend on the task itself.
type TaskService interface {
	CreateTask(ctx context.Context, in CreateTaskInput, author *model.User) (*model.Task, error)
	UpdateTask(ctx context.Context, id uint, in UpdateTaskInput) (*model.Task, error)
	AssignTask(ctx context.Context, id, assigneeID uint) (*model.Task, error)
	UpdateTaskStatus(ctx context.Context, id uint, status model.TaskStatus, currentUser *model.User) (*model.Task, error)
	UpdateTaskPriority(ctx context.Context, id uint, priority model.TaskPriority) (*model.Task, error)
	AddComment(ctx context.Context, id uint, text string, author *model.User) (*model.Comment, error)
	DeleteTask(ctx context.Context, id uint) error
	GetTask(ctx context.Context, id uint) (*model.Task, error)
	GetTasksByAuthor(ctx context.Context, authorID uint) ([]model.Task, error)
	GetTasksByAssignee(ctx context.Context, assigneeID uint) ([]model.Task, error)
	// GetTasks pages through tasks matching filter. At least one criterion
	// is required and an empty result is reported as ErrTaskNotFound.
	GetTasks(ctx context.Context, filter repository.TaskFilter, page, size int) (model.Page[model.Task], error)
	// GetAllTasks pages through every task; an empty page is not an error.
	GetAllTasks(ctx context.Context, page, size int) (model.Page[model.Task], error)
}

type taskService struct {
	store  repository.Store
	logger *log.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(store repository.Store) TaskService {
	return &taskService{store: store, logger: newLogger("task")}
}

func (s *taskService) CreateTask(ctx context.Context, in CreateTaskInput, author *model.User) (*model.Task, error) {
	if author == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      model.TaskStatusPending,
		Priority:    model.TaskPriorityMedium,
		AuthorID:    author.ID,
		AssigneeID:  in.AssigneeID,
		Comments:    []model.Comment{},
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		assignee, err := findUser(ctx, tx, in.AssigneeID)
		if err != nil {
			return err
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		task.Author = *author
		task.Assignee = *assignee
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("task %d created by user %d, assigned to %d", task.ID, author.ID, task.AssigneeID)
	return task, nil
}

func (s *taskService) UpdateTask(ctx context.Context, id uint, in UpdateTaskInput) (*model.Task, error) {
	var task *model.Task
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if task, err = findTask(ctx, tx, id); err != nil {
			return err
		}
		if in.Title != nil {
			if err := validateTitle(*in.Title); err != nil {
				return err
			}
		}
		// Resolve the assignee before touching any field.
		var assignee *model.User
		if in.AssigneeID != nil {
			if assignee, err = findUser(ctx, tx, *in.AssigneeID); err != nil {
				return err
			}
		}

		if in.Title != nil {
			task.Title = *in.Title
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.Status != nil {
			task.Status = *in.Status
		}
		if in.Priority != nil {
			task.Priority = *in.Priority
		}
		if assignee != nil {
			task.AssigneeID = assignee.ID
			task.Assignee = *assignee
		}
		return saveTask(ctx, tx, task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("task %d updated", id)
	return task, nil
}

func (s *taskService) AssignTask(ctx context.Context, id, assigneeID uint) (*model.Task, error) {
	var task *model.Task
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if task, err = findTask(ctx, tx, id); err != nil {
			return err
		}
		assignee, err := findUser(ctx, tx, assigneeID)
		if err != nil {
			return err
		}
		task.AssigneeID = assignee.ID
		task.Assignee = *assignee
		return saveTask(ctx, tx, task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("task %d assigned to user %d", id, assigneeID)
	return task, nil
}

func (s *taskService) UpdateTaskStatus(ctx context.Context, id uint, status model.TaskStatus, currentUser *model.User) (*model.Task, error) {
	if currentUser == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	var task *model.Task
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if task, err = findTask(ctx, tx, id); err != nil {
			return err
		}
		if !auth.CanChangeStatus(task, currentUser) {
			return fmt.Errorf("%w: only the assignee or an admin may change the status of task %d", apperrors.ErrForbidden, id)
		}
		task.Status = status
		return saveTask(ctx, tx, task)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			s.logger.Warnf("user %d denied status change on task %d", currentUser.ID, id)
		}
		return nil, err
	}

	s.logger.Infof("task %d status set to %s by user %d", id, status, currentUser.ID)
	return task, nil
}

func (s *taskService) UpdateTaskPriority(ctx context.Context, id uint, priority model.TaskPriority) (*model.Task, error) {
	var task *model.Task
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if task, err = findTask(ctx, tx, id); err != nil {
			return err
		}
		task.Priority = priority
		return saveTask(ctx, tx, task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("task %d priority set to %s", id, priority)
	return task, nil
}

func (s *taskService) AddComment(ctx context.Context, id uint, text string, author *model.User) (*model.Comment, error) {
	if author == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: comment text must not be blank", apperrors.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(text) > model.MaxCommentLength {
		return nil, fmt.Errorf("%w: comment text exceeds %d characters", apperrors.ErrInvalidRequest, model.MaxCommentLength)
	}

	var comment *model.Comment
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		task, err := findTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if !auth.CanComment(task, author) {
			return fmt.Errorf("%w: only the author or assignee of task %d may comment", apperrors.ErrForbidden, id)
		}
		comment = &model.Comment{Text: text, TaskID: task.ID, AuthorID: author.ID}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("comment %d added to task %d by user %d", comment.ID, id, author.ID)
	return comment, nil
}

func (s *taskService) DeleteTask(ctx context.Context, id uint) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		err := tx.Tasks().DeleteCascadingComments(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", apperrors.ErrTaskNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("delete task %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infof("task %d deleted", id)
	return nil
}

func (s *taskService) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	return findTask(ctx, s.store, id)
}

func (s *taskService) GetTasksByAuthor(ctx context.Context, authorID uint) ([]model.Task, error) {
	if err := s.requireUser(ctx, authorID); err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks().FindByAuthorID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by author: %w", err)
	}
	return tasks, nil
}

func (s *taskService) GetTasksByAssignee(ctx context.Context, assigneeID uint) ([]model.Task, error) {
	if err := s.requireUser(ctx, assigneeID); err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks().FindByAssigneeID(ctx, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by assignee: %w", err)
	}
	return tasks, nil
}

func (s *taskService) GetTasks(ctx context.Context, filter repository.TaskFilter, page, size int) (model.Page[model.Task], error) {
	if err := validatePage(page, size); err != nil {
		return model.Page[model.Task]{}, err
	}
	if filter.IsEmpty() {
		return model.Page[model.Task]{}, fmt.Errorf("%w: at least one filter must be provided", apperrors.ErrInvalidRequest)
	}

	result, err := s.store.Tasks().FindPage(ctx, filter, page, size)
	if err != nil {
		return model.Page[model.Task]{}, fmt.Errorf("filter tasks: %w", err)
	}
	if result.Empty() {
		return model.Page[model.Task]{}, fmt.Errorf("%w: no tasks match the given filters", apperrors.ErrTaskNotFound)
	}
	return result, nil
}

func (s *taskService) GetAllTasks(ctx context.Context, page, size int) (model.Page[model.Task], error) {
	if err := validatePage(page, size); err != nil {
		return model.Page[model.Task]{}, err
	}
	result, err := s.store.Tasks().FindPage(ctx, repository.TaskFilter{}, page, size)
	if err != nil {
		return model.Page[model.Task]{}, fmt.Errorf("list tasks: %w", err)
	}
	return result, nil
}

func (s *taskService) requireUser(ctx context.Context, id uint) error {
	exists, err := s.store.Users().ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("check user %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("%w: id %d", apperrors.ErrUserNotFound, id)
	}
	return nil
}

func findTask(ctx context.Context, store repository.Store, id uint) (*model.Task, error) {
	task, err := store.Tasks().FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find task %d: %w", id, err)
	}
	return task, nil
}

func findUser(ctx context.Context, store repository.Store, id uint) (*model.User, error) {
	user, err := store.Users().FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", apperrors.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return user, nil
}

func saveTask(ctx context.Context, tx repository.Store, task *model.Task) error {
	if err := tx.Tasks().Save(ctx, task); err != nil {
		return fmt.Errorf("save task %d: %w", task.ID, err)
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title must not be blank", apperrors.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", apperrors.ErrInvalidRequest, maxTitleLength)
	}
	return nil
}

func validatePage(page, size int) error {
	if page < 0 {
		return fmt.Errorf("%w: page must not be negative", apperrors.ErrInvalidRequest)
	}
	if size < 1 || size > MaxPageSize {
		return fmt.Errorf("%w: size must be between 1 and %d", apperrors.ErrInvalidRequest, MaxPageSize)
	}
	return nil
}
