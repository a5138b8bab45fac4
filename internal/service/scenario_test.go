package service

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tasktracker/internal/db"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

func newSQLiteStore(t *testing.T) (repository.Store, *gorm.DB) {
	t.Helper()
	gormDB, err := db.NewSQLite(filepath.Join(t.TempDir(), "scenario.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewStore(gormDB), gormDB
}

func TestScenario_CommentPermissionsAndCascadeDelete(t *testing.T) {
	ctx := context.Background()
	store, gormDB := newSQLiteStore(t)
	users := NewUserService(store.Users(), nil)
	tasks := NewTaskService(store)

	a, err := users.CreateAdmin(ctx, "a@example.com", "adminpass1")
	require.NoError(t, err)
	b, err := users.CreateUser(ctx, "b@example.com", "userpass1")
	require.NoError(t, err)
	c, err := users.CreateUser(ctx, "c@example.com", "userpass2")
	require.NoError(t, err)

	_, err = users.CreateUser(ctx, "b@example.com", "userpass1")
	require.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	task, err := tasks.CreateTask(ctx, CreateTaskInput{Title: "Ship it", AssigneeID: b.ID}, a)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, task.Status)

	comment, err := tasks.AddComment(ctx, task.ID, "started", b)
	require.NoError(t, err)

	_, err = tasks.AddComment(ctx, task.ID, "can I help?", c)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	loaded, err := tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Comments, 1)
	assert.Equal(t, comment.ID, loaded.Comments[0].ID)

	require.NoError(t, tasks.DeleteTask(ctx, task.ID))

	_, err = tasks.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	var comments int64
	require.NoError(t, gormDB.Model(&model.Comment{}).Where("id = ?", comment.ID).Count(&comments).Error)
	assert.Zero(t, comments)
}

func TestScenario_StatusOwnershipAndFiltering(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStore(t)
	users := NewUserService(store.Users(), nil)
	tasks := NewTaskService(store)

	a, err := users.CreateAdmin(ctx, "a@example.com", "adminpass1")
	require.NoError(t, err)
	b, err := users.CreateUser(ctx, "b@example.com", "userpass1")
	require.NoError(t, err)
	c, err := users.CreateUser(ctx, "c@example.com", "userpass2")
	require.NoError(t, err)

	high := model.TaskPriorityHigh
	task, err := tasks.CreateTask(ctx, CreateTaskInput{Title: "Fix bug", AssigneeID: b.ID, Priority: &high}, a)
	require.NoError(t, err)

	_, err = tasks.UpdateTaskStatus(ctx, task.ID, model.TaskStatusInProgress, c)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := tasks.UpdateTaskStatus(ctx, task.ID, model.TaskStatusInProgress, b)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInProgress, updated.Status)

	// Any user may reassign.
	reassigned, err := tasks.AssignTask(ctx, task.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, reassigned.AssigneeID)

	_, err = tasks.UpdateTaskStatus(ctx, task.ID, model.TaskStatusCompleted, b)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	inProgress := model.TaskStatusInProgress
	page, err := tasks.GetTasks(ctx, repository.TaskFilter{Status: &inProgress, AssigneeID: &c.ID}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, task.ID, page.Content[0].ID)

	low := model.TaskPriorityLow
	_, err = tasks.GetTasks(ctx, repository.TaskFilter{Priority: &low}, 0, 10)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	all, err := tasks.GetAllTasks(ctx, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.TotalElements)

	byAuthor, err := tasks.GetTasksByAuthor(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, byAuthor, 1)

	_, err = tasks.CreateTask(ctx, CreateTaskInput{Title: "Orphan", AssigneeID: 4040}, a)
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	all, err = tasks.GetAllTasks(ctx, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.TotalElements)
}

func TestScenario_PageBeyondIntRange(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStore(t)
	users := NewUserService(store.Users(), nil)
	tasks := NewTaskService(store)

	a, err := users.CreateAdmin(ctx, "a@example.com", "adminpass1")
	require.NoError(t, err)
	_, err = tasks.CreateTask(ctx, CreateTaskInput{Title: "Only task", AssigneeID: a.ID}, a)
	require.NoError(t, err)

	farPage := math.MaxInt/MaxPageSize + 1
	pending := model.TaskStatusPending

	_, err = tasks.GetTasks(ctx, repository.TaskFilter{Status: &pending}, farPage, MaxPageSize)
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	all, err := tasks.GetAllTasks(ctx, farPage, MaxPageSize)
	require.NoError(t, err)
	assert.Empty(t, all.Content)
	assert.Equal(t, farPage, all.Page)
	assert.Equal(t, int64(1), all.TotalElements)
}
