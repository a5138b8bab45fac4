package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle so a
// service can run several of them inside a single transaction.
type Store interface {
	Users() UserRepository
	Tasks() TaskRepository
	Comments() CommentRepository
	// WithTransaction executes fn within a database transaction. The Store
	// handed to fn is bound to that transaction; returning an error rolls
	// it back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *gormStore) Tasks() TaskRepository {
	return NewTaskRepository(s.db)
}

func (s *gormStore) Comments() CommentRepository {
	return NewCommentRepository(s.db)
}

func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}
