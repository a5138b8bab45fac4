package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
)

func userWith(id uint, roles ...model.Role) *model.User {
	u := model.NewUser("u@example.com", "", roles)
	u.ID = id
	return u
}

func TestPolicy_Authorize(t *testing.T) {
	policy := NewPolicy()
	admin := userWith(1, model.RoleAdmin)
	user := userWith(2, model.RoleUser)

	tests := []struct {
		op        Operation
		adminErr  error
		userErr   error
		anonymous error
	}{
		{OpListByAuthor, nil, nil, apperrors.ErrUnauthenticated},
		{OpListByAssignee, nil, nil, apperrors.ErrUnauthenticated},
		{OpGetTask, nil, nil, apperrors.ErrUnauthenticated},
		{OpAddComment, nil, nil, apperrors.ErrUnauthenticated},
		{OpAssignTask, nil, nil, apperrors.ErrUnauthenticated},
		{OpCreateTask, nil, apperrors.ErrForbidden, apperrors.ErrUnauthenticated},
		{OpUpdateTask, nil, apperrors.ErrForbidden, apperrors.ErrUnauthenticated},
		{OpUpdatePriority, nil, apperrors.ErrForbidden, apperrors.ErrUnauthenticated},
		{OpDeleteTask, nil, apperrors.ErrForbidden, apperrors.ErrUnauthenticated},
		{OpListAll, nil, apperrors.ErrForbidden, apperrors.ErrUnauthenticated},
		{OpUpdateStatus, nil, nil, apperrors.ErrUnauthenticated},
		{OpFilterTasks, nil, nil, apperrors.ErrUnauthenticated},
		{OpLogout, nil, nil, apperrors.ErrUnauthenticated},
	}

	check := func(t *testing.T, err, want error) {
		if want == nil {
			assert.NoError(t, err)
			return
		}
		assert.ErrorIs(t, err, want)
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			check(t, policy.Authorize(tt.op, admin), tt.adminErr)
			check(t, policy.Authorize(tt.op, user), tt.userErr)
			check(t, policy.Authorize(tt.op, nil), tt.anonymous)
		})
	}
}

func TestPolicy_UnknownOperationDenied(t *testing.T) {
	err := NewPolicy().Authorize(Operation("tasks.archive"), userWith(1, model.RoleAdmin))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCanComment(t *testing.T) {
	task := &model.Task{AuthorID: 1, AssigneeID: 2}

	assert.True(t, CanComment(task, userWith(1, model.RoleAdmin)))
	assert.True(t, CanComment(task, userWith(2, model.RoleUser)))
	assert.False(t, CanComment(task, userWith(3, model.RoleUser)))
	// Being an admin is not enough on someone else's task.
	assert.False(t, CanComment(task, userWith(4, model.RoleAdmin)))
	assert.False(t, CanComment(task, nil))
}

func TestCanChangeStatus(t *testing.T) {
	task := &model.Task{AuthorID: 1, AssigneeID: 2}

	assert.True(t, CanChangeStatus(task, userWith(2, model.RoleUser)))
	assert.False(t, CanChangeStatus(task, userWith(3, model.RoleUser)))
	assert.False(t, CanChangeStatus(task, userWith(1, model.RoleUser)))
	assert.True(t, CanChangeStatus(task, userWith(9, model.RoleAdmin)))
	assert.True(t, CanChangeStatus(task, userWith(9, model.RoleUser, model.RoleAdmin)))
	assert.False(t, CanChangeStatus(task, nil))
}
