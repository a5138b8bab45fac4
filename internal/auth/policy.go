package auth

import (
	"fmt"

	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
)

// Operation names an action guarded by the access policy.
type Operation string

const (
	OpListByAuthor   Operation = "tasks.list_by_author"
	OpListByAssignee Operation = "tasks.list_by_assignee"
	OpGetTask        Operation = "tasks.get"
	OpCreateTask     Operation = "tasks.create"
	OpUpdateTask     Operation = "tasks.update"
	OpAddComment     Operation = "tasks.comment"
	OpUpdatePriority Operation = "tasks.update_priority"
	OpUpdateStatus   Operation = "tasks.update_status"
	OpDeleteTask     Operation = "tasks.delete"
	OpAssignTask     Operation = "tasks.assign"
	OpFilterTasks    Operation = "tasks.filter"
	OpListAll        Operation = "tasks.list_all"
	OpLogout         Operation = "auth.logout"
)

// anyRole marks operations open to every authenticated caller.
var anyRole = []model.Role{}

var defaultRules = map[Operation][]model.Role{
	OpListByAuthor:   {model.RoleUser, model.RoleAdmin},
	OpListByAssignee: {model.RoleUser, model.RoleAdmin},
	OpGetTask:        {model.RoleUser, model.RoleAdmin},
	OpAddComment:     {model.RoleUser, model.RoleAdmin},
	OpAssignTask:     {model.RoleUser, model.RoleAdmin},
	OpCreateTask:     {model.RoleAdmin},
	OpUpdateTask:     {model.RoleAdmin},
	OpUpdatePriority: {model.RoleAdmin},
	OpDeleteTask:     {model.RoleAdmin},
	OpListAll:        {model.RoleAdmin},
	OpUpdateStatus:   anyRole,
	OpFilterTasks:    anyRole,
	OpLogout:         anyRole,
}

// Policy decides which roles may invoke each operation.
type Policy struct {
	rules map[Operation][]model.Role
}

// NewPolicy returns the service's role table.
func NewPolicy() *Policy {
	return &Policy{rules: defaultRules}
}

// Authorize returns ErrUnauthenticated for an anonymous caller and
// ErrForbidden when the caller lacks every role the operation accepts.
// Unknown operations are denied.
func (p *Policy) Authorize(op Operation, user *model.User) error {
	if user == nil {
		return apperrors.ErrUnauthenticated
	}
	roles, ok := p.rules[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %s", apperrors.ErrForbidden, op)
	}
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if user.HasRole(r) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires one of %v", apperrors.ErrForbidden, op, roles)
}

// CanComment reports whether user may comment on task: only its author or
// its assignee may.
func CanComment(task *model.Task, user *model.User) bool {
	if task == nil || user == nil {
		return false
	}
	return task.AuthorID == user.ID || task.AssigneeID == user.ID
}

// CanChangeStatus reports whether user may change task's status: admins
// always, everyone else only on tasks assigned to them.
func CanChangeStatus(task *model.Task, user *model.User) bool {
	if task == nil || user == nil {
		return false
	}
	return user.IsAdmin() || task.AssigneeID == user.ID
}
