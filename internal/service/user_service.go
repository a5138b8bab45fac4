package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tasktracker/internal/cache"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

const (
	bcryptCost        = 10
	userCacheTTL      = 5 * time.Minute
	minPasswordLength = 8
)

var (
	emailPattern  = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)
	digitPattern  = regexp.MustCompile(`\d`)
	letterPattern = regexp.MustCompile(`[A-Za-z]`)
)

// UserService handles registration and user lookups.
type UserService interface {
	RegisterUser(ctx context.Context, email, password string, roles []model.Role) (*model.User, error)
	CreateAdmin(ctx context.Context, email, password string) (*model.User, error)
	CreateUser(ctx context.Context, email, password string) (*model.User, error)
	// GetByEmail returns the user's identity and roles. The result may come
	// from the cache and never carries the password hash.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type userService struct {
	users  repository.UserRepository
	cache  *cache.Client
	logger *log.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(users repository.UserRepository, cache *cache.Client) UserService {
	return &userService{users: users, cache: cache, logger: newLogger("user")}
}

// cachedUser is the cache representation of a user, without credentials.
type cachedUser struct {
	ID    uint         `json:"id"`
	Email string       `json:"email"`
	Roles []model.Role `json:"roles"`
}

func (s *userService) cacheKey(email string) string {
	return "user:email:" + email
}

// RegisterUser validates email, then password, then roles, and stores a
// new user with a bcrypt hash of the password.
func (s *userService) RegisterUser(ctx context.Context, email, password string, roles []model.Role) (*model.User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := validateRoles(roles); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrEmailAlreadyExists, email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := model.NewUser(email, string(hash), roles)
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent registration can pass the existence check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrEmailAlreadyExists, email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Infof("registered user id=%d roles=%v", user.ID, user.RoleNames())
	return user, nil
}

func (s *userService) CreateAdmin(ctx context.Context, email, password string) (*model.User, error) {
	return s.RegisterUser(ctx, email, password, []model.Role{model.RoleAdmin})
}

func (s *userService) CreateUser(ctx context.Context, email, password string) (*model.User, error) {
	return s.RegisterUser(ctx, email, password, []model.Role{model.RoleUser})
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var cached cachedUser
	if s.cache.GetJSON(ctx, s.cacheKey(email), &cached) && cached.Email == email {
		u := model.NewUser(cached.Email, "", cached.Roles)
		u.ID = cached.ID
		return u, nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	entry := cachedUser{ID: user.ID, Email: user.Email}
	for _, r := range user.Roles {
		entry.Roles = append(entry.Roles, r.Role)
	}
	if err := s.cache.SetJSON(ctx, s.cacheKey(email), entry, userCacheTTL); err != nil {
		s.logger.Warnf("cache user %d: %v", user.ID, err)
	}
	return user, nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email must not be blank", apperrors.ErrInvalidEmail)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q is not a valid address", apperrors.ErrInvalidEmail, email)
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case strings.TrimSpace(password) == "":
		return fmt.Errorf("%w: password must not be blank", apperrors.ErrInvalidPassword)
	case utf8.RuneCountInString(password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrInvalidPassword, minPasswordLength)
	case !digitPattern.MatchString(password):
		return fmt.Errorf("%w: password must contain a digit", apperrors.ErrInvalidPassword)
	case !letterPattern.MatchString(password):
		return fmt.Errorf("%w: password must contain a letter", apperrors.ErrInvalidPassword)
	}
	return nil
}

func validateRoles(roles []model.Role) error {
	if len(roles) == 0 {
		return fmt.Errorf("%w: at least one role is required", apperrors.ErrInvalidRole)
	}
	for _, r := range roles {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidRole, r)
		}
	}
	return nil
}
