package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"tasktracker/docs"
	"tasktracker/internal/auth"
	"tasktracker/internal/config"
	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/handler"
	"tasktracker/internal/middleware"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	gate *middleware.Gate,
	policy *auth.Policy,
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
) {
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = ErrorHandler

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register/user", authHandler.RegisterUser)
	api.POST("/auth/register/admin", authHandler.RegisterAdmin)

	api.POST("/auth/logout", authHandler.Logout, gate.Middleware(), middleware.Authorize(policy, auth.OpLogout))

	// Every task route runs behind the gate; roles are checked per route.
	tasks := api.Group("/tasks", gate.Middleware())
	allow := func(op auth.Operation) echo.MiddlewareFunc {
		return middleware.Authorize(policy, op)
	}

	tasks.GET("", taskHandler.GetTasks, allow(auth.OpFilterTasks))
	tasks.GET("/admin/all", taskHandler.GetAllTasks, allow(auth.OpListAll))
	tasks.GET("/author/:authorId", taskHandler.GetTasksByAuthor, allow(auth.OpListByAuthor))
	tasks.GET("/assignee/:assigneeId", taskHandler.GetTasksByAssignee, allow(auth.OpListByAssignee))
	tasks.POST("/create", taskHandler.CreateTask, allow(auth.OpCreateTask))

	tasks.GET("/:taskId", taskHandler.GetTask, allow(auth.OpGetTask))
	tasks.PUT("/:taskId", taskHandler.UpdateTask, allow(auth.OpUpdateTask))
	tasks.DELETE("/:taskId", taskHandler.DeleteTask, allow(auth.OpDeleteTask))
	tasks.POST("/:taskId/comments", taskHandler.AddComment, allow(auth.OpAddComment))
	tasks.PATCH("/:taskId/priority", taskHandler.UpdateTaskPriority, allow(auth.OpUpdatePriority))
	tasks.PUT("/:taskId/status", taskHandler.UpdateTaskStatus, allow(auth.OpUpdateStatus))
	tasks.POST("/:taskId/assign/:assigneeId", taskHandler.AssignTask, allow(auth.OpAssignTask))
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// ErrorHandler renders every error as an apperrors.ErrorResponse body.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	var body apperrors.ErrorResponse

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch msg := he.Message.(type) {
		case apperrors.ErrorResponse:
			body = msg
		case string:
			body = apperrors.ErrorResponse{Error: msg, Code: statusCode(status)}
		default:
			body = apperrors.ErrorResponse{Error: http.StatusText(status), Code: statusCode(status)}
		}
	} else {
		httpErr := apperrors.MapErrorToHTTP(err)
		status = httpErr.StatusCode
		body = httpErr.ToErrorResponse()
	}

	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}

func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
