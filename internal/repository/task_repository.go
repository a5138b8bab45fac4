package repository

import (
	"context"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tasktracker/internal/model"
)

// TaskFilter narrows a task query. Nil fields are ignored; set fields
// combine conjunctively.
type TaskFilter struct {
	Status     *model.TaskStatus
	Priority   *model.TaskPriority
	AuthorID   *uint
	AssigneeID *uint
}

// IsEmpty reports whether no criterion is set.
func (f TaskFilter) IsEmpty() bool {
	return f.Status == nil && f.Priority == nil && f.AuthorID == nil && f.AssigneeID == nil
}

func (f TaskFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Status != nil {
		db = db.Where("tasks.status = ?", *f.Status)
	}
	if f.Priority != nil {
		db = db.Where("tasks.priority = ?", *f.Priority)
	}
	if f.AuthorID != nil {
		db = db.Where("tasks.author_id = ?", *f.AuthorID)
	}
	if f.AssigneeID != nil {
		db = db.Where("tasks.assignee_id = ?", *f.AssigneeID)
	}
	return db
}

// TaskRepository defines task persistence operations. Reads load comments
// ordered by id.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Save(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	FindByAuthorID(ctx context.Context, authorID uint) ([]model.Task, error)
	FindByAssigneeID(ctx context.Context, assigneeID uint) ([]model.Task, error)
	// FindPage returns the zero-based page of tasks matching filter,
	// ordered by id. An empty filter matches every task.
	FindPage(ctx context.Context, filter TaskFilter, page, size int) (model.Page[model.Task], error)
	// DeleteCascadingComments removes the task's comments and then the task.
	DeleteCascadingComments(ctx context.Context, id uint) error
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func withComments(db *gorm.DB) *gorm.DB {
	return db.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("comments.id ASC")
	})
}

// Create inserts the task row only; author, assignee and comments are
// referenced by id.
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// Save writes every column of an existing task.
func (r *taskRepository) Save(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

func (r *taskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Scopes(withComments).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) FindByAuthorID(ctx context.Context, authorID uint) ([]model.Task, error) {
	return r.findWhere(ctx, "author_id = ?", authorID)
}

func (r *taskRepository) FindByAssigneeID(ctx context.Context, assigneeID uint) ([]model.Task, error) {
	return r.findWhere(ctx, "assignee_id = ?", assigneeID)
}

func (r *taskRepository) findWhere(ctx context.Context, query string, args ...interface{}) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := r.db.WithContext(ctx).Scopes(withComments).
		Where(query, args...).
		Order("tasks.id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) FindPage(ctx context.Context, filter TaskFilter, page, size int) (model.Page[model.Task], error) {
	base := r.db.WithContext(ctx).Model(&model.Task{}).Scopes(filter.scope).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return model.Page[model.Task]{}, err
	}

	// An offset past int range lies beyond every row.
	if size < 1 || page > math.MaxInt/size || int64(page*size) >= total {
		return model.NewPage([]model.Task{}, page, size, total), nil
	}

	var tasks []model.Task
	if err := base.Scopes(withComments).
		Order("tasks.id ASC").
		Offset(page * size).
		Limit(size).
		Find(&tasks).Error; err != nil {
		return model.Page[model.Task]{}, err
	}
	return model.NewPage(tasks, page, size, total), nil
}

func (r *taskRepository) DeleteCascadingComments(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Task{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
