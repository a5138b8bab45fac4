package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
)

const (
	gateSecret  = "gate-test-secret-that-is-32-bytes!"
	otherSecret = "some-other-secret-also-32-bytes-long"
)

type stubUsers map[string]*model.User

func (s stubUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := s[email]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

type stubRevocations map[string]bool

func (s stubRevocations) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	s[tokenID] = true
	return nil
}

func (s stubRevocations) IsRevoked(_ context.Context, tokenID string) bool {
	return s[tokenID]
}

type observed struct {
	called bool
	user   *model.User
	claims *auth.Claims
	state  GateState
}

func newGateServer(t *testing.T, now time.Time, revoked stubRevocations, ops ...auth.Operation) (*echo.Echo, *auth.TokenService, *observed) {
	t.Helper()
	tokens, err := auth.NewTokenService(gateSecret, auth.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	admin := model.NewUser("admin@example.com", "", []model.Role{model.RoleAdmin})
	admin.ID = 1
	user := model.NewUser("user@example.com", "", []model.Role{model.RoleUser})
	user.ID = 2
	users := stubUsers{admin.Email: admin, user.Email: user}

	seen := &observed{}
	e := echo.New()
	e.Use(NewGate(tokens, revoked, users).Middleware())

	var mws []echo.MiddlewareFunc
	for _, op := range ops {
		mws = append(mws, Authorize(auth.NewPolicy(), op))
	}
	e.GET("/protected", func(c echo.Context) error {
		seen.called = true
		seen.user = CurrentUser(c)
		seen.claims = ClaimsFromContext(c)
		seen.state = State(c)
		return c.NoContent(http.StatusOK)
	}, mws...)
	return e, tokens, seen
}

func issueWith(t *testing.T, secret string, at time.Time, email string) string {
	t.Helper()
	svc, err := auth.NewTokenService(secret, auth.WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	token, err := svc.Issue(email)
	require.NoError(t, err)
	return token
}

func call(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGate(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	valid := issueWith(t, gateSecret, now.Add(-time.Hour), "user@example.com")
	expired := issueWith(t, gateSecret, now.Add(-11*time.Hour), "user@example.com")
	expiredForeign := issueWith(t, otherSecret, now.Add(-11*time.Hour), "user@example.com")
	foreign := issueWith(t, otherSecret, now.Add(-time.Hour), "user@example.com")
	ghost := issueWith(t, gateSecret, now.Add(-time.Hour), "ghost@example.com")

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
		wantUser   bool
		wantState  GateState
		wantCode   string
	}{
		{"no header", "", http.StatusOK, true, false, NoToken, ""},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusOK, true, false, NoToken, ""},
		{"valid bearer", "Bearer " + valid, http.StatusOK, true, true, Authenticated, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, true, true, Authenticated, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, false, false, TokenExpired, "TOKEN_EXPIRED"},
		{"expired with foreign signature", "Bearer " + expiredForeign, http.StatusUnauthorized, false, false, TokenExpired, "TOKEN_EXPIRED"},
		{"foreign signature", "Bearer " + foreign, http.StatusForbidden, false, false, TokenInvalidSignature, "INVALID_SIGNATURE"},
		{"empty bearer", "Bearer ", http.StatusBadRequest, false, false, TokenMalformed, "MALFORMED_TOKEN"},
		{"blank bearer", "Bearer    ", http.StatusBadRequest, false, false, TokenMalformed, "MALFORMED_TOKEN"},
		{"scheme without separator", "Bearer", http.StatusOK, true, false, NoToken, ""},
		{"malformed", "Bearer not.a.jwt", http.StatusBadRequest, false, false, TokenMalformed, "MALFORMED_TOKEN"},
		{"unknown subject", "Bearer " + ghost, http.StatusUnauthorized, false, false, UnknownSubject, "UNAUTHENTICATED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, seen := newGateServer(t, now, stubRevocations{})
			rec := call(e, tt.header)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, seen.called)
			if tt.wantCalled {
				assert.Equal(t, tt.wantState, seen.state)
				assert.Equal(t, tt.wantUser, seen.user != nil)
				assert.Equal(t, tt.wantUser, seen.claims != nil)
			}
			if tt.wantCode != "" {
				var body apperrors.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCode, body.Code)
				assert.Equal(t, tt.wantStatus, tt.wantState.StatusCode())
			}
		})
	}
}

func TestGate_PrincipalCarriesRoles(t *testing.T) {
	now := time.Now()
	e, tokens, seen := newGateServer(t, now, stubRevocations{})
	token, err := tokens.Issue("admin@example.com")
	require.NoError(t, err)

	rec := call(e, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen.user)
	assert.Equal(t, uint(1), seen.user.ID)
	assert.True(t, seen.user.IsAdmin())
	assert.Equal(t, "admin@example.com", seen.claims.Subject)
}

func TestGate_RevokedToken(t *testing.T) {
	now := time.Now()
	revoked := stubRevocations{}
	e, tokens, seen := newGateServer(t, now, revoked)
	token, err := tokens.Issue("user@example.com")
	require.NoError(t, err)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	require.NoError(t, revoked.Revoke(context.Background(), claims.ID, time.Hour))

	rec := call(e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, seen.called)
}

func TestAuthorize(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		op         auth.Operation
		email      string
		wantStatus int
	}{
		{"anonymous on user route", auth.OpGetTask, "", http.StatusUnauthorized},
		{"user on user route", auth.OpGetTask, "user@example.com", http.StatusOK},
		{"user on admin route", auth.OpDeleteTask, "user@example.com", http.StatusForbidden},
		{"admin on admin route", auth.OpDeleteTask, "admin@example.com", http.StatusOK},
		{"user on open route", auth.OpFilterTasks, "user@example.com", http.StatusOK},
		{"anonymous on open route", auth.OpFilterTasks, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, tokens, seen := newGateServer(t, now, stubRevocations{}, tt.op)
			header := ""
			if tt.email != "" {
				token, err := tokens.Issue(tt.email)
				require.NoError(t, err)
				header = "Bearer " + token
			}

			rec := call(e, header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, seen.called)
		})
	}
}

func TestGateState_StatusCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, TokenExpired.StatusCode())
	assert.Equal(t, http.StatusForbidden, TokenInvalidSignature.StatusCode())
	assert.Equal(t, http.StatusBadRequest, TokenMalformed.StatusCode())
	assert.Zero(t, NoToken.StatusCode())
	assert.Zero(t, Authenticated.StatusCode())
	assert.Zero(t, AnonymousPassthrough.StatusCode())
	assert.Equal(t, "token_expired", TokenExpired.String())
}
