package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"todo-app/src/domain"
	"todo-app/src/validator"
)

// CreateTodoRequest represents input for creating a todo
type CreateTodoRequest struct {
	Title       string
	Description string
	Completed   bool
	Priority    string
}

// UpdateTodoRequest represents input for updating a todo. Nil fields are not
// changed; an empty Description clears it.
type UpdateTodoRequest struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *string
}

// TodoUsecase defines the interface for todo business logic
type TodoUsecase interface {
	CreateTodo(ctx context.Context, req CreateTodoRequest) (*domain.Todo, error)
	GetTodo(ctx context.Context, id string) (*domain.Todo, error)
	GetAllTodos(ctx context.Context) ([]domain.Todo, error)
	UpdateTodo(ctx context.Context, id string, req UpdateTodoRequest) (*domain.Todo, error)
	DeleteTodo(ctx context.Context, id string) (bool, error)
	ToggleCompleted(ctx context.Context, id string) (*domain.Todo, error)
	FilterTodos(ctx context.Context, filter domain.TodoFilter) ([]domain.Todo, error)
	GetActiveCount(ctx context.Context) (int, error)
	GetCompletedCount(ctx context.Context) (int, error)
	ClearCompleted(ctx context.Context) (int, error)
	MarkAllCompleted(ctx context.Context, completed bool) ([]domain.Todo, error)
}

type todoUsecase struct {
	todoRepo  domain.TodoRepository
	validator *validator.CustomValidator
}

// NewTodoUsecase creates a new todo usecase
func NewTodoUsecase(todoRepo domain.TodoRepository, v *validator.CustomValidator) TodoUsecase {
	if v == nil {
		v = validator.NewCustomValidator()
	}
	return &todoUsecase{
		todoRepo:  todoRepo,
		validator: v,
	}
}

// CreateTodo validates and normalizes the request, then persists a new todo.
func (u *todoUsecase) CreateTodo(ctx context.Context, req CreateTodoRequest) (*domain.Todo, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	if err := u.validator.ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := u.validator.ValidateDescription(description); err != nil {
		return nil, err
	}
	if err := u.validator.ValidatePriority(req.Priority); err != nil {
		return nil, err
	}

	input := domain.CreateTodoInput{
		Title:     title,
		Completed: req.Completed,
		Priority:  domain.PriorityMedium, // デフォルト値
	}
	if description != "" {
		input.Description = &description
	}
	if req.Priority != "" {
		input.Priority = domain.Priority(req.Priority)
	}

	return u.todoRepo.Create(ctx, input)
}

// GetTodo retrieves a todo by ID
func (u *todoUsecase) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	todo, err := u.todoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if todo == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return todo, nil
}

// GetAllTodos returns every todo, newest first.
func (u *todoUsecase) GetAllTodos(ctx context.Context) ([]domain.Todo, error) {
	return u.FilterTodos(ctx, domain.TodoFilter{Scope: domain.ScopeAll})
}

// UpdateTodo validates the supplied fields and merges them onto the todo.
// It returns nil, nil when the todo does not exist.
func (u *todoUsecase) UpdateTodo(ctx context.Context, id string, req UpdateTodoRequest) (*domain.Todo, error) {
	var patch domain.TodoPatch

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if err := u.validator.ValidateTitle(title); err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if req.Description != nil {
		// 空文字は説明なしとして保存される
		description := strings.TrimSpace(*req.Description)
		if err := u.validator.ValidateDescription(description); err != nil {
			return nil, err
		}
		patch.Description = &description
	}
	if req.Priority != nil {
		if err := u.validator.ValidatePriority(*req.Priority); err != nil {
			return nil, err
		}
		if *req.Priority != "" {
			p := domain.Priority(*req.Priority)
			patch.Priority = &p
		}
	}
	if req.Completed != nil {
		completed := *req.Completed
		patch.Completed = &completed
	}

	return u.todoRepo.Update(ctx, id, patch)
}

// DeleteTodo permanently removes a todo and reports whether it existed.
func (u *todoUsecase) DeleteTodo(ctx context.Context, id string) (bool, error) {
	return u.todoRepo.Delete(ctx, id)
}

// ToggleCompleted flips the completed flag. The read and the write are not
// atomic; a todo removed in between yields ErrNotFound.
func (u *todoUsecase) ToggleCompleted(ctx context.Context, id string) (*domain.Todo, error) {
	todo, err := u.todoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if todo == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	completed := !todo.Completed
	updated, err := u.todoRepo.Update(ctx, id, domain.TodoPatch{Completed: &completed})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return updated, nil
}

// FilterTodos selects todos by scope, applies the search query to title and
// description, and orders the result newest first.
func (u *todoUsecase) FilterTodos(ctx context.Context, filter domain.TodoFilter) ([]domain.Todo, error) {
	todos, err := u.byScope(ctx, filter.Scope)
	if err != nil {
		return nil, err
	}

	if query := strings.ToLower(strings.TrimSpace(filter.SearchQuery)); query != "" {
		todos = slices.DeleteFunc(todos, func(t domain.Todo) bool {
			return !matches(t, query)
		})
	}

	SortByCreatedDesc(todos)
	return todos, nil
}

// GetActiveCount counts todos that are not completed.
func (u *todoUsecase) GetActiveCount(ctx context.Context) (int, error) {
	todos, err := u.todoRepo.GetByCompleted(ctx, false)
	if err != nil {
		return 0, err
	}
	return len(todos), nil
}

// GetCompletedCount counts completed todos.
func (u *todoUsecase) GetCompletedCount(ctx context.Context) (int, error) {
	todos, err := u.todoRepo.GetByCompleted(ctx, true)
	if err != nil {
		return 0, err
	}
	return len(todos), nil
}

// ClearCompleted deletes every completed todo and returns how many were
// actually removed. Todos deleted concurrently are not counted.
func (u *todoUsecase) ClearCompleted(ctx context.Context) (int, error) {
	completed, err := u.todoRepo.GetByCompleted(ctx, true)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, todo := range completed {
		removed, err := u.todoRepo.Delete(ctx, todo.ID)
		if err != nil {
			return deleted, err
		}
		if removed {
			deleted++
		}
	}
	return deleted, nil
}

// MarkAllCompleted sets completed on every todo whose flag differs and returns
// the todos it changed. Todos already matching keep their UpdatedAt.
func (u *todoUsecase) MarkAllCompleted(ctx context.Context, completed bool) ([]domain.Todo, error) {
	pending, err := u.todoRepo.GetByCompleted(ctx, !completed)
	if err != nil {
		return nil, err
	}

	updated := make([]domain.Todo, 0, len(pending))
	for _, todo := range pending {
		target := completed
		result, err := u.todoRepo.Update(ctx, todo.ID, domain.TodoPatch{Completed: &target})
		if err != nil {
			return updated, err
		}
		if result != nil {
			updated = append(updated, *result)
		}
	}
	return updated, nil
}

func (u *todoUsecase) byScope(ctx context.Context, scope domain.StatusScope) ([]domain.Todo, error) {
	if scope == "" {
		scope = domain.ScopeAll
	}
	if !scope.IsValid() {
		return nil, domain.NewValidationError("scope", domain.ReasonInvalidScope,
			fmt.Sprintf("scope must be one of: all active completed (got %q)", scope))
	}

	switch scope {
	case domain.ScopeActive:
		return u.todoRepo.GetByCompleted(ctx, false)
	case domain.ScopeCompleted:
		return u.todoRepo.GetByCompleted(ctx, true)
	default:
		return u.todoRepo.GetAll(ctx)
	}
}

func matches(t domain.Todo, query string) bool {
	if strings.Contains(strings.ToLower(t.Title), query) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), query)
}

// SortByCreatedDesc orders todos newest first.
func SortByCreatedDesc(todos []domain.Todo) {
	slices.SortStableFunc(todos, func(a, b domain.Todo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
