// Package middleware holds the echo middleware that establishes who is
// calling and whether they may invoke a route.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"tasktracker/internal/auth"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/model"
)

const bearerPrefix = "Bearer "

const (
	claimsContextKey = "token_claims"
	userContextKey   = "current_user"
	stateContextKey  = "gate_state"
	causeContextKey  = "gate_error"
)

// GateState records what the authentication gate decided for a request.
type GateState int

const (
	NoToken GateState = iota
	TokenExpired
	TokenInvalidSignature
	TokenMalformed
	TokenRevoked
	UnknownSubject
	Authenticated
	AnonymousPassthrough
)

var stateNames = map[GateState]string{
	NoToken:               "no_token",
	TokenExpired:          "token_expired",
	TokenInvalidSignature: "token_invalid_signature",
	TokenMalformed:        "token_malformed",
	TokenRevoked:          "token_revoked",
	UnknownSubject:        "unknown_subject",
	Authenticated:         "authenticated",
	AnonymousPassthrough:  "anonymous_passthrough",
}

func (s GateState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("gate_state(%d)", int(s))
}

// StatusCode returns the HTTP status a rejecting state ends the request
// with, or 0 when the request continues.
func (s GateState) StatusCode() int {
	switch s {
	case TokenExpired, TokenRevoked, UnknownSubject:
		return http.StatusUnauthorized
	case TokenInvalidSignature:
		return http.StatusForbidden
	case TokenMalformed:
		return http.StatusBadRequest
	}
	return 0
}

// errAnonymous makes echo-jwt hand the request on without a principal.
var errAnonymous = errors.New("token not valid for subject")

// UserLookup resolves the subject of a verified token.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Gate authenticates bearer tokens. Requests without a token pass through
// anonymously; requests with a bad token stop here.
type Gate struct {
	tokens  *auth.TokenService
	revoked auth.RevocationStore
	users   UserLookup
}

// NewGate creates the authentication gate.
func NewGate(tokens *auth.TokenService, revoked auth.RevocationStore, users UserLookup) *Gate {
	return &Gate{tokens: tokens, revoked: revoked, users: users}
}

// Middleware returns the echo middleware running the gate.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup:            "header:" + echo.HeaderAuthorization + ":" + bearerPrefix,
		ContextKey:             claimsContextKey,
		ParseTokenFunc:         g.parseToken,
		ErrorHandler:           g.handleError,
		ContinueOnIgnoredError: true,
	})
}

func (g *Gate) parseToken(c echo.Context, raw string) (interface{}, error) {
	ctx := c.Request().Context()

	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return nil, g.reject(c, stateForTokenError(err), err)
	}

	if g.revoked.IsRevoked(ctx, claims.ID) {
		return nil, g.reject(c, TokenRevoked, fmt.Errorf("%w: %s", apperrors.ErrTokenRevoked, claims.ID))
	}

	if CurrentUser(c) == nil {
		user, err := g.users.GetByEmail(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				err = fmt.Errorf("%w: token subject no longer exists", apperrors.ErrUnauthenticated)
			}
			return nil, g.reject(c, UnknownSubject, err)
		}
		if !g.tokens.IsValidFor(raw, user.Email) {
			return nil, g.reject(c, AnonymousPassthrough, errAnonymous)
		}
		c.Set(userContextKey, user)
	}

	c.Set(stateContextKey, Authenticated)
	return claims, nil
}

func (g *Gate) reject(c echo.Context, state GateState, cause error) error {
	c.Set(stateContextKey, state)
	c.Set(causeContextKey, cause)
	return cause
}

func (g *Gate) handleError(c echo.Context, err error) error {
	if errors.Is(err, echojwt.ErrJWTMissing) {
		if hasEmptyBearer(c) {
			return errorResponse(c, g.reject(c, TokenMalformed, fmt.Errorf("%w: empty bearer token", apperrors.ErrMalformedToken)))
		}
		c.Set(stateContextKey, NoToken)
		return nil
	}
	if cause, ok := c.Get(causeContextKey).(error); ok {
		err = cause
	}
	if errors.Is(err, errAnonymous) {
		return nil
	}
	return errorResponse(c, err)
}

// hasEmptyBearer reports an Authorization header that is exactly the bearer
// prefix. The extractor drops it without parsing, like any other scheme.
func hasEmptyBearer(c echo.Context) bool {
	for _, v := range c.Request().Header.Values(echo.HeaderAuthorization) {
		if strings.EqualFold(v, bearerPrefix) {
			return true
		}
	}
	return false
}

func stateForTokenError(err error) GateState {
	switch {
	case errors.Is(err, apperrors.ErrExpiredToken):
		return TokenExpired
	case errors.Is(err, apperrors.ErrInvalidSignature):
		return TokenInvalidSignature
	default:
		return TokenMalformed
	}
}

// CurrentUser returns the authenticated caller, or nil for an anonymous request.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(userContextKey).(*model.User)
	return user
}

// ClaimsFromContext returns the verified token claims of the request, if any.
func ClaimsFromContext(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsContextKey).(*auth.Claims)
	return claims
}

// State returns the gate's decision for the request.
func State(c echo.Context) GateState {
	state, ok := c.Get(stateContextKey).(GateState)
	if !ok {
		return NoToken
	}
	return state
}

// errorResponse turns err into the JSON error echo writes for the request.
// Server faults are logged and answered with a generic body.
func errorResponse(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
