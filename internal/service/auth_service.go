package service

import (
	"context"
	"fmt"

	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, email, password string) (token string, user *model.User, err error)
	// Logout revokes the token described by claims for the rest of its lifetime.
	Logout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	users   repository.UserRepository
	tokens  *auth.TokenService
	revoked auth.RevocationStore
	logger  *log.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, revoked auth.RevocationStore) AuthService {
	return &authService{
		users:   users,
		tokens:  tokens,
		revoked: revoked,
		logger:  newLogger("auth"),
	}
}

// Login checks the credentials and issues a bearer token.
func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Infof("user %d logged in", user.ID)
	return token, user, nil
}

func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.ErrUnauthenticated
	}
	if err := s.revoked.Revoke(ctx, claims.ID, s.tokens.RemainingTTL(claims)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Infof("revoked token %s", claims.ID)
	return nil
}
