package repository

import (
	"context"
	"fmt"
	"sync"

	"todo-app/src/domain"
)

// MemoryTodoRepository is an in-process domain.TodoRepository. It keeps
// insertion order and hands out copies so callers never alias stored state.
type MemoryTodoRepository struct {
	mu    sync.RWMutex
	todos map[string]domain.Todo
	order []string
	opts  options
}

var _ domain.TodoRepository = (*MemoryTodoRepository)(nil)

// NewMemoryTodoRepository creates an empty in-memory repository.
func NewMemoryTodoRepository(opts ...Option) *MemoryTodoRepository {
	return &MemoryTodoRepository{
		todos: make(map[string]domain.Todo),
		opts:  applyOptions(opts),
	}
}

func (r *MemoryTodoRepository) GetAll(ctx context.Context) ([]domain.Todo, error) {
	return r.collect(ctx, func(domain.Todo) bool { return true })
}

func (r *MemoryTodoRepository) GetByCompleted(ctx context.Context, completed bool) ([]domain.Todo, error) {
	return r.collect(ctx, func(t domain.Todo) bool { return t.Completed == completed })
}

func (r *MemoryTodoRepository) GetByID(ctx context.Context, id string) (*domain.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.todos[id]
	if !ok {
		return nil, nil
	}
	c := t.Clone()
	return &c, nil
}

func (r *MemoryTodoRepository) Create(ctx context.Context, input domain.CreateTodoInput) (*domain.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.opts.newID()
	if _, exists := r.todos[id]; exists {
		return nil, fmt.Errorf("failed to create todo %s: %w", id, domain.ErrWriteConflict)
	}

	now := r.opts.now().UTC()
	t := domain.Todo{
		ID:        id,
		Title:     input.Title,
		Completed: input.Completed,
		Priority:  input.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Description != nil {
		d := *input.Description
		t.Description = &d
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}

	r.todos[id] = t
	r.order = append(r.order, id)
	c := t.Clone()
	return &c, nil
}

func (r *MemoryTodoRepository) Update(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.todos[id]
	if !ok {
		return nil, nil
	}
	t = t.Clone()
	patch.Apply(&t, r.opts.now().UTC())
	r.todos[id] = t

	c := t.Clone()
	return &c, nil
}

func (r *MemoryTodoRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[id]; !ok {
		return false, nil
	}
	delete(r.todos, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *MemoryTodoRepository) collect(ctx context.Context, keep func(domain.Todo) bool) ([]domain.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Todo, 0, len(r.order))
	for _, id := range r.order {
		if t := r.todos[id]; keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}
