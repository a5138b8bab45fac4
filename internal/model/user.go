package model

import (
	"strings"
	"time"
)

// Role is an authority granted to a user.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

const rolePrefix = "ROLE_"

// Name returns the role without its authority prefix, e.g. "ADMIN".
func (r Role) Name() string {
	return strings.TrimPrefix(string(r), rolePrefix)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserRole stores one element of a user's role set.
type UserRole struct {
	UserID uint `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Role   Role `json:"role" gorm:"primaryKey;size:32"`
}

// User represents an authenticated user in the system.
// Email is the login name and is matched case-sensitively.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Roles        []UserRole `json:"roles" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser builds an unsaved user with the given role set.
func NewUser(email, passwordHash string, roles []Role) *User {
	u := &User{Email: email, PasswordHash: passwordHash}
	seen := make(map[Role]bool, len(roles))
	for _, r := range roles {
		if seen[r] {
			continue
		}
		seen[r] = true
		u.Roles = append(u.Roles, UserRole{Role: r})
	}
	return u
}

// HasRole reports whether the user holds role r.
func (u *User) HasRole(r Role) bool {
	if u == nil {
		return false
	}
	for _, ur := range u.Roles {
		if ur.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// RoleNames returns the user's role names (USER, ADMIN).
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, ur := range u.Roles {
		names = append(names, ur.Role.Name())
	}
	return names
}
