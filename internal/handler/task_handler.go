package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "tasktracker/internal/errors"
	"tasktracker/internal/middleware"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

const (
	defaultFilterPageSize = 10
	defaultAdminPageSize  = 20
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"max=1000"`
	Status      *model.TaskStatus   `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority    *model.TaskPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeID  uint                `json:"assigneeId" validate:"required"`
}

// UpdateTaskRequest represents a partial task update; absent fields are kept.
type UpdateTaskRequest struct {
	Title       *string             `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string             `json:"description" validate:"omitempty,max=1000"`
	Status      *model.TaskStatus   `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	Priority    *model.TaskPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeID  *uint               `json:"assigneeId" validate:"omitempty,min=1"`
}

// AddCommentRequest represents a new comment.
type AddCommentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// UpdateStatusRequest represents a status change.
type UpdateStatusRequest struct {
	Status model.TaskStatus `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// UpdatePriorityRequest represents a priority change.
type UpdatePriorityRequest struct {
	Priority model.TaskPriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
}

// GetTasksByAuthor godoc
// @Summary List tasks created by a user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param authorId path int true "Author ID"
// @Success 200 {array} TaskDTO
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/author/{authorId} [get]
func (h *TaskHandler) GetTasksByAuthor(c echo.Context) error {
	authorID, err := pathID(c, "authorId")
	if err != nil {
		return err
	}
	tasks, err := h.taskService.GetTasksByAuthor(c.Request().Context(), authorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTaskDTOs(tasks))
}

// GetTasksByAssignee godoc
// @Summary List tasks assigned to a user
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param assigneeId path int true "Assignee ID"
// @Success 200 {array} TaskDTO
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/assignee/{assigneeId} [get]
func (h *TaskHandler) GetTasksByAssignee(c echo.Context) error {
	assigneeID, err := pathID(c, "assigneeId")
	if err != nil {
		return err
	}
	tasks, err := h.taskService.GetTasksByAssignee(c.Request().Context(), assigneeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTaskDTOs(tasks))
}

// GetTask godoc
// @Summary Get a task with its comments
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param taskId path int true "Task ID"
// @Success 200 {object} TaskDTO
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{taskId} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return err
	}
	task, err := h.taskService.GetTask(c.Request().Context(), taskID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTaskDTO(*task))
}

// CreateTask godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task data"
// @Success 201 {object} TaskDTO
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/create [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	}, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toTaskDTO(*task))
}

// UpdateTask godoc
// @Summary Partially update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskId path int true "Task ID"
// @Param request body UpdateTaskRequest true "Fields to change"
// @Success 200 {object} TaskDTO
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{taskId} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return err
	}
	var req UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), taskID, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTaskDTO(*task))
}

// AddComment godoc
// @Summary Comment on a task
// @Description Only the task's author or assignee may comment.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskId path int true "Task ID"
// @Param request body AddCommentRequest true "Comment"
// @Success 201 {object} CommentDTO
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{taskId}/comments [post]
func (h *TaskHandler) AddComment(c echo.Context) error {
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return err
	}
	var req AddCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.taskService.AddComment(c.Request().Context(), taskID, req.Text, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toCommentDTO(*comment))
}

// UpdateTaskPriority godoc
// @Summary Change a task's priority
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskId path int true "Task ID"
// @Param request body UpdatePriorityRequest true "New priority"
// @Success 200 {object} TaskDTO
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{taskId}/priority [patch]
func (h *TaskHandler) UpdateTaskPriority(c echo.Context) error {
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return err
	}
	var req UpdatePriorityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTaskPriority(c.Request().Context(), taskID, req.Priority)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTaskDTO(*task))
}

// UpdateTaskStatus godoc
// @Summary Change a task's status
// @Description Admins may change any task; other callers only tasks assigned to them.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param taskId path int true "Task ID"
// @Param request body UpdateStatusRequest true "New status"
// @Success 200 {object} TaskDTO
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{taskId}/status [put]
func (h *TaskHandler) UpdateTaskStatus(c echo.Context) error {
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return err
	}
	var req UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTaskStatus(c.Request().Context(), taskID, req.Status, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTaskDTO(*task))
}

// DeleteTask godoc
// @Summary Delete a task and its comments
// @Tags tasks
// @Security BearerAuth
// @Param taskId path int true "Task ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{taskId} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return err
	}
	if err := h.taskService.DeleteTask(c.Request().Context(), taskID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignTask godoc
// @Summary Reassign a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param taskId path int true "Task ID"
// @Param assigneeId path int true "New assignee ID"
// @Success 200 {object} TaskDTO
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{taskId}/assign/{assigneeId} [post]
func (h *TaskHandler) AssignTask(c echo.Context) error {
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return err
	}
	assigneeID, err := pathID(c, "assigneeId")
	if err != nil {
		return err
	}

	task, err := h.taskService.AssignTask(c.Request().Context(), taskID, assigneeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTaskDTO(*task))
}

// GetTasks godoc
// @Summary Filter tasks
// @Description At least one filter is required; no match is reported as 404.
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status" Enums(PENDING, IN_PROGRESS, COMPLETED)
// @Param priority query string false "Priority" Enums(LOW, MEDIUM, HIGH)
// @Param authorId query int false "Author ID"
// @Param assigneeId query int false "Assignee ID"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} TaskPage
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) GetTasks(c echo.Context) error {
	page, size, err := parsePaging(c, defaultFilterPageSize)
	if err != nil {
		return respondError(c, err)
	}
	filter, err := parseFilter(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.taskService.GetTasks(c.Request().Context(), filter, page, size)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.MapPage(result, toTaskDTO))
}

// GetAllTasks godoc
// @Summary List every task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} TaskPage
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /tasks/admin/all [get]
func (h *TaskHandler) GetAllTasks(c echo.Context) error {
	page, size, err := parsePaging(c, defaultAdminPageSize)
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.taskService.GetAllTasks(c.Request().Context(), page, size)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.MapPage(result, toTaskDTO))
}

func parsePaging(c echo.Context, defaultSize int) (page, size int, err error) {
	size = defaultSize
	if err := echo.QueryParamsBinder(c).Int("page", &page).Int("size", &size).BindError(); err != nil {
		return 0, 0, fmt.Errorf("%w: page and size must be integers", apperrors.ErrInvalidRequest)
	}
	return page, size, nil
}

func parseFilter(c echo.Context) (repository.TaskFilter, error) {
	var filter repository.TaskFilter

	if raw := c.QueryParam("status"); raw != "" {
		status, err := model.ParseTaskStatus(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
		}
		filter.Status = &status
	}
	if raw := c.QueryParam("priority"); raw != "" {
		priority, err := model.ParseTaskPriority(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
		}
		filter.Priority = &priority
	}

	var err error
	if filter.AuthorID, err = optionalID(c, "authorId"); err != nil {
		return filter, err
	}
	if filter.AssigneeID, err = optionalID(c, "assigneeId"); err != nil {
		return filter, err
	}
	return filter, nil
}

func optionalID(c echo.Context, name string) (*uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a positive integer", apperrors.ErrInvalidRequest, name)
	}
	v := uint(id)
	return &v, nil
}
