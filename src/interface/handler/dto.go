package handler

import (
	"time"

	"todo-app/src/domain"
	"todo-app/src/validator"
)

// CreateTodoRequestDTO represents HTTP request for creating a todo
type CreateTodoRequestDTO struct {
	Title       string `json:"title" validate:"no_control_chars"`
	Description string `json:"description" validate:"no_control_chars"`
	Completed   bool   `json:"completed"`
	Priority    string `json:"priority"`
}

// UpdateTodoRequestDTO represents HTTP request for updating a todo
type UpdateTodoRequestDTO struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,no_control_chars"`
	Description *string `json:"description,omitempty" validate:"omitempty,no_control_chars"`
	Completed   *bool   `json:"completed,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

// MarkAllRequestDTO represents HTTP request for marking every todo. Completed
// defaults to true when omitted.
type MarkAllRequestDTO struct {
	Completed *bool `json:"completed"`
}

// TodoFilterDTO represents HTTP query parameters for listing todos
type TodoFilterDTO struct {
	Scope string `form:"scope" binding:"omitempty,oneof=all active completed"`
	Query string `form:"q" binding:"max=200"`
	Sort  string `form:"sort" binding:"omitempty,oneof=default priority created updated title"`
}

// TodoResponseDTO represents HTTP response for a todo
type TodoResponseDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoListResponseDTO represents HTTP response for a todo list
type TodoListResponseDTO struct {
	Todos []TodoResponseDTO `json:"todos"`
	Total int               `json:"total"`
}

// CountsResponseDTO represents HTTP response for the todo counts
type CountsResponseDTO struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ClearCompletedResponseDTO represents HTTP response for clear-completed
type ClearCompletedResponseDTO struct {
	Deleted int `json:"deleted"`
}

// ErrorResponseDTO represents HTTP error response
type ErrorResponseDTO struct {
	Error   string                      `json:"error"`
	Message string                      `json:"message,omitempty"`
	Reason  string                      `json:"reason,omitempty"`
	Details []validator.ValidationError `json:"details,omitempty"`
}

func toTodoResponseDTO(t *domain.Todo) TodoResponseDTO {
	return TodoResponseDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTodoResponseDTOs(todos []domain.Todo) []TodoResponseDTO {
	out := make([]TodoResponseDTO, 0, len(todos))
	for i := range todos {
		out = append(out, toTodoResponseDTO(&todos[i]))
	}
	return out
}
