package domain

import "context"

// TodoRepository defines the interface for todo data operations.
// GetByID and Update return a nil todo and nil error when the id is unknown.
type TodoRepository interface {
	GetAll(ctx context.Context) ([]Todo, error)
	GetByID(ctx context.Context, id string) (*Todo, error)
	Create(ctx context.Context, input CreateTodoInput) (*Todo, error)
	Update(ctx context.Context, id string, patch TodoPatch) (*Todo, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByCompleted(ctx context.Context, completed bool) ([]Todo, error)
}
