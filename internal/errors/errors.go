package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound is returned when a task does not exist or a filtered query matched nothing.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidEmail is returned when an email fails format checks.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when a password fails strength checks.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidRole is returned when a user would end up without roles.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidRequest is returned for malformed input such as bad pagination.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmailAlreadyExists is returned when registering a taken email.
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrForbidden is returned when the caller may not perform the action.
	ErrForbidden = errors.New("access denied")
	// ErrUnauthenticated is returned when an action requires a caller identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrExpiredToken is returned when a bearer token is past its expiration.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidSignature is returned when a bearer token signature does not match.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrMalformedToken is returned for any other token parse failure.
	ErrMalformedToken = errors.New("malformed token")
	// ErrTokenRevoked is returned for a token invalidated by logout.
	ErrTokenRevoked = errors.New("token revoked")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    []string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrTaskNotFound, http.StatusNotFound, "TASK_NOT_FOUND"},
	{ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL"},
	{ErrInvalidPassword, http.StatusBadRequest, "INVALID_PASSWORD"},
	{ErrInvalidRole, http.StatusBadRequest, "INVALID_ROLE"},
	{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{ErrEmailAlreadyExists, http.StatusConflict, "EMAIL_ALREADY_EXISTS"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrExpiredToken, http.StatusUnauthorized, "TOKEN_EXPIRED"},
	{ErrTokenRevoked, http.StatusUnauthorized, "TOKEN_REVOKED"},
	{ErrInvalidSignature, http.StatusForbidden, "INVALID_SIGNATURE"},
	{ErrMalformedToken, http.StatusBadRequest, "MALFORMED_TOKEN"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors keep
// their full message; unknown errors collapse to a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		httpErr := NewHTTPError(http.StatusBadRequest, "validation failed", "VALIDATION_ERROR")
		httpErr.Details = FieldErrors(ve)
		return httpErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

// FieldErrors flattens validator errors into "field: rule" strings.
func FieldErrors(ve validator.ValidationErrors) []string {
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return out
}
