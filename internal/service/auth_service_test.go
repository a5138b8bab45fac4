package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
)

const testJWTSecret = "service-test-secret-with-32-bytes!!"

func newTestTokenService(t *testing.T, now time.Time) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testJWTSecret, auth.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return svc
}

func hashedUser(t *testing.T, id uint, email, password string, roles ...model.Role) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := model.NewUser(email, string(hash), roles)
	u.ID = id
	return u
}

func TestAuthService_Login(t *testing.T) {
	alice := hashedUser(t, 1, "alice@example.com", "password1", model.RoleUser)

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "alice@example.com",
			password: "password1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
			},
		},
		{
			name:     "wrong password",
			email:    "alice@example.com",
			password: "password2",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "ghost@example.com",
			password: "password1",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &MockUserRepository{}
			tt.setupMock(users)
			tokens := newTestTokenService(t, time.Now())
			svc := NewAuthService(users, tokens, &MockRevocationStore{})

			token, user, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, token)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, alice.ID, user.ID)
				subject, err := tokens.ExtractSubject(token)
				require.NoError(t, err)
				assert.Equal(t, "alice@example.com", subject)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tokens := newTestTokenService(t, now)
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "jti-1",
		Subject:   "alice@example.com",
		ExpiresAt: jwt.NewNumericDate(now.Add(3 * time.Hour)),
	}}

	revoked := &MockRevocationStore{}
	revoked.On("Revoke", mock.Anything, "jti-1", 3*time.Hour).Return(nil)

	svc := NewAuthService(&MockUserRepository{}, tokens, revoked)
	require.NoError(t, svc.Logout(context.Background(), claims))
	revoked.AssertExpectations(t)
}

func TestAuthService_LogoutErrors(t *testing.T) {
	tokens := newTestTokenService(t, time.Now())

	svc := NewAuthService(&MockUserRepository{}, tokens, &MockRevocationStore{})
	assert.ErrorIs(t, svc.Logout(context.Background(), nil), apperrors.ErrUnauthenticated)

	boom := errors.New("redis exploded")
	revoked := &MockRevocationStore{}
	revoked.On("Revoke", mock.Anything, "jti-2", mock.AnythingOfType("time.Duration")).Return(boom)
	svc = NewAuthService(&MockUserRepository{}, tokens, revoked)

	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "jti-2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	assert.ErrorIs(t, svc.Logout(context.Background(), claims), boom)
}
