package repository

import (
	"context"

	"gorm.io/gorm"

	"tasktracker/internal/model"
)

// CommentRepository defines comment persistence operations. Comments are
// never updated; they are removed only through
// TaskRepository.DeleteCascadingComments.
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, id uint) (*model.Comment, error)
	FindByTaskID(ctx context.Context, taskID uint) ([]model.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uint) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) FindByTaskID(ctx context.Context, taskID uint) ([]model.Comment, error) {
	comments := []model.Comment{}
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
