package handler

import (
	"errors"
	"net/http"
	"strings"

	"todo-app/src/controller"
	"todo-app/src/domain"
	"todo-app/src/usecase"
	"todo-app/src/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TodoHandler handles HTTP requests for todo operations
type TodoHandler struct {
	todoUsecase usecase.TodoUsecase
	validator   *validator.CustomValidator
	logger      *logrus.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoUsecase usecase.TodoUsecase, v *validator.CustomValidator, logger *logrus.Logger) *TodoHandler {
	if v == nil {
		v = validator.NewCustomValidator()
	}
	return &TodoHandler{
		todoUsecase: todoUsecase,
		validator:   v,
		logger:      logger,
	}
}

// ListTodos returns the filtered todos. The optional sort parameter applies
// the same orderings the terminal UI offers.
func (h *TodoHandler) ListTodos(c *gin.Context) {
	var filterDTO TodoFilterDTO
	if err := c.ShouldBindQuery(&filterDTO); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid query parameters",
			Message: err.Error(),
		})
		return
	}

	filter := domain.TodoFilter{
		Scope:       domain.StatusScope(filterDTO.Scope),
		SearchQuery: filterDTO.Query,
	}
	if filter.Scope == "" {
		filter.Scope = domain.ScopeAll
	}

	var (
		todos []domain.Todo
		err   error
	)
	if filter.Scope == domain.ScopeAll && strings.TrimSpace(filter.SearchQuery) == "" {
		todos, err = h.todoUsecase.GetAllTodos(c.Request.Context())
	} else {
		todos, err = h.todoUsecase.FilterTodos(c.Request.Context(), filter)
	}
	if err != nil {
		h.respondError(c, "Failed to get todos", err)
		return
	}
	if filterDTO.Sort != "" {
		todos = controller.SortTodos(todos, domain.SortKey(filterDTO.Sort))
	}

	c.JSON(http.StatusOK, TodoListResponseDTO{
		Todos: toTodoResponseDTOs(todos),
		Total: len(todos),
	})
}

// GetCounts returns the active and completed counts
func (h *TodoHandler) GetCounts(c *gin.Context) {
	var active, completed int
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		active, err = h.todoUsecase.GetActiveCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		completed, err = h.todoUsecase.GetCompletedCount(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondError(c, "Failed to count todos", err)
		return
	}

	c.JSON(http.StatusOK, CountsResponseDTO{
		Active:    active,
		Completed: completed,
		Total:     active + completed,
	})
}

// GetTodo retrieves a todo by ID
func (h *TodoHandler) GetTodo(c *gin.Context) {
	todo, err := h.todoUsecase.GetTodo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get todo", err)
		return
	}
	c.JSON(http.StatusOK, toTodoResponseDTO(todo))
}

// CreateTodo creates a new todo
func (h *TodoHandler) CreateTodo(c *gin.Context) {
	var req CreateTodoRequestDTO
	if !h.bind(c, &req) {
		return
	}

	todo, err := h.todoUsecase.CreateTodo(c.Request.Context(), usecase.CreateTodoRequest{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
	})
	if err != nil {
		h.respondError(c, "Failed to create todo", err)
		return
	}

	h.logger.WithField("todo_id", todo.ID).Info("Todoを作成しました")
	c.JSON(http.StatusCreated, toTodoResponseDTO(todo))
}

// UpdateTodo merges the supplied fields onto an existing todo
func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	id := c.Param("id")

	var req UpdateTodoRequestDTO
	if !h.bind(c, &req) {
		return
	}

	todo, err := h.todoUsecase.UpdateTodo(c.Request.Context(), id, usecase.UpdateTodoRequest{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
	})
	if err == nil && todo == nil {
		err = domain.ErrNotFound
	}
	if err != nil {
		h.respondError(c, "Failed to update todo", err)
		return
	}

	h.logger.WithField("todo_id", id).Info("Todoを更新しました")
	c.JSON(http.StatusOK, toTodoResponseDTO(todo))
}

// DeleteTodo deletes a todo
func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	id := c.Param("id")

	removed, err := h.todoUsecase.DeleteTodo(c.Request.Context(), id)
	if err == nil && !removed {
		err = domain.ErrNotFound
	}
	if err != nil {
		h.respondError(c, "Failed to delete todo", err)
		return
	}

	h.logger.WithField("todo_id", id).Info("Todoを削除しました")
	c.Status(http.StatusNoContent)
}

// ToggleTodo flips the completed flag of a todo
func (h *TodoHandler) ToggleTodo(c *gin.Context) {
	todo, err := h.todoUsecase.ToggleCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to toggle todo", err)
		return
	}
	c.JSON(http.StatusOK, toTodoResponseDTO(todo))
}

// ClearCompleted deletes every completed todo
func (h *TodoHandler) ClearCompleted(c *gin.Context) {
	n, err := h.todoUsecase.ClearCompleted(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to clear completed todos", err)
		return
	}
	c.JSON(http.StatusOK, ClearCompletedResponseDTO{Deleted: n})
}

// MarkAll sets the completed flag on every todo and returns the changed ones
func (h *TodoHandler) MarkAll(c *gin.Context) {
	var req MarkAllRequestDTO
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponseDTO{
				Error:   "Invalid request format",
				Message: err.Error(),
			})
			return
		}
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	todos, err := h.todoUsecase.MarkAllCompleted(c.Request.Context(), completed)
	if err != nil {
		h.respondError(c, "Failed to mark todos", err)
		return
	}
	c.JSON(http.StatusOK, TodoListResponseDTO{
		Todos: toTodoResponseDTOs(todos),
		Total: len(todos),
	})
}

func (h *TodoHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.WithError(err).Warn("リクエストのバインドに失敗")
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Invalid request format",
			Message: err.Error(),
		})
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		var ves validator.ValidationErrors
		errors.As(err, &ves)
		c.JSON(http.StatusBadRequest, ErrorResponseDTO{
			Error:   "Validation failed",
			Message: err.Error(),
			Details: ves.Errors,
		})
		return false
	}
	return true
}

func (h *TodoHandler) respondError(c *gin.Context, summary string, err error) {
	resp := ErrorResponseDTO{Error: summary, Message: err.Error()}

	status := http.StatusInternalServerError
	if ve, ok := domain.AsValidationError(err); ok {
		status = http.StatusBadRequest
		resp.Reason = string(ve.Reason)
	} else {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrWriteConflict):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrStoreUnavailable):
			status = http.StatusServiceUnavailable
		}
	}

	entry := h.logger.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error(summary)
	} else {
		entry.Warn(summary)
	}
	c.JSON(status, resp)
}
