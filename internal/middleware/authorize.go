package middleware

import (
	"github.com/labstack/echo/v4"

	"tasktracker/internal/auth"
)

// Authorize rejects the request unless the caller the gate established
// holds a role that policy accepts for op. Anonymous callers get 401.
func Authorize(policy *auth.Policy, op auth.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := policy.Authorize(op, CurrentUser(c)); err != nil {
				return errorResponse(c, err)
			}
			return next(c)
		}
	}
}
