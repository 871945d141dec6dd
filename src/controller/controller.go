package controller

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"todo-app/src/domain"
	"todo-app/src/usecase"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Phase is the load state of the controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is an immutable snapshot of what the presentation layer shows.
type State struct {
	Phase          Phase
	Todos          []domain.Todo
	ActiveCount    int
	CompletedCount int
	Filter         domain.TodoFilter
	Sort           domain.SortKey
	Err            error
	ErrMessage     string
	// ItemErrors holds failures scoped to a single todo, keyed by id.
	ItemErrors map[string]string
}

// Loading reports whether a reload is in flight.
func (s State) Loading() bool {
	return s.Phase == PhaseLoading
}

func (s State) clone() State {
	c := s
	c.Todos = slices.Clone(s.Todos)
	c.ItemErrors = maps.Clone(s.ItemErrors)
	return c
}

// Option configures a TodoController.
type Option func(*TodoController)

// WithFilter sets the initial filter.
func WithFilter(f domain.TodoFilter) Option {
	return func(c *TodoController) {
		c.state.Filter = f
	}
}

// WithSort sets the initial sort key.
func WithSort(k domain.SortKey) Option {
	return func(c *TodoController) {
		c.state.Sort = k
	}
}

// TodoController holds the view state and orchestrates service calls. Every
// mutation is followed by a full reload of the list and both counts.
type TodoController struct {
	service usecase.TodoUsecase
	logger  *logrus.Logger

	mu      sync.Mutex
	state   State
	seq     uint64
	applied uint64
	subs    map[int]chan State
	nextSub int
}

// NewTodoController creates a controller in the Idle phase. Call Load to
// populate it.
func NewTodoController(service usecase.TodoUsecase, logger *logrus.Logger, opts ...Option) *TodoController {
	c := &TodoController{
		service: service,
		logger:  logger,
		state: State{
			Phase:  PhaseIdle,
			Filter: domain.TodoFilter{Scope: domain.ScopeAll},
			Sort:   domain.SortPriority,
		},
		subs: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot.
func (c *TodoController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Slow readers only see the most recent one. Call cancel to stop.
func (c *TodoController) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 1)
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Load clears any error and reloads the visible list and counts.
func (c *TodoController) Load(ctx context.Context) error {
	c.update(func(s *State) {
		s.Err = nil
		s.ErrMessage = ""
	})
	return c.reload(ctx)
}

// Refresh is the retry action offered next to an error banner.
func (c *TodoController) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

// SetFilter stores the filter and reloads.
func (c *TodoController) SetFilter(ctx context.Context, f domain.TodoFilter) error {
	c.update(func(s *State) { s.Filter = f })
	return c.Load(ctx)
}

// SetSort stores the sort key and reloads.
func (c *TodoController) SetSort(ctx context.Context, k domain.SortKey) error {
	if !k.IsValid() {
		return domain.NewValidationError("sort", domain.ReasonInvalidSort, fmt.Sprintf("unknown sort key %q", k))
	}
	c.update(func(s *State) { s.Sort = k })
	return c.Load(ctx)
}

// AddTodo creates a todo.
func (c *TodoController) AddTodo(ctx context.Context, req usecase.CreateTodoRequest) (*domain.Todo, error) {
	c.beginMutation("")
	todo, err := c.service.CreateTodo(ctx, req)
	return todo, c.finishMutation(ctx, "adding todo", "", err)
}

// UpdateTodo applies a partial update. A missing todo yields domain.ErrNotFound.
func (c *TodoController) UpdateTodo(ctx context.Context, id string, req usecase.UpdateTodoRequest) (*domain.Todo, error) {
	c.beginMutation(id)
	todo, err := c.service.UpdateTodo(ctx, id, req)
	if err == nil && todo == nil {
		err = fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return todo, c.finishMutation(ctx, "updating todo", id, err)
}

// DeleteTodo deletes a todo. A missing todo yields domain.ErrNotFound.
func (c *TodoController) DeleteTodo(ctx context.Context, id string) error {
	c.beginMutation(id)
	removed, err := c.service.DeleteTodo(ctx, id)
	if err == nil && !removed {
		err = fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return c.finishMutation(ctx, "deleting todo", id, err)
}

// ToggleCompleted flips the completed flag of a todo.
func (c *TodoController) ToggleCompleted(ctx context.Context, id string) (*domain.Todo, error) {
	c.beginMutation(id)
	todo, err := c.service.ToggleCompleted(ctx, id)
	return todo, c.finishMutation(ctx, "toggling todo completion", id, err)
}

// ClearCompleted deletes all completed todos and returns how many went away.
func (c *TodoController) ClearCompleted(ctx context.Context) (int, error) {
	c.beginMutation("")
	n, err := c.service.ClearCompleted(ctx)
	return n, c.finishMutation(ctx, "clearing completed todos", "", err)
}

// MarkAllCompleted sets every todo to the given flag. It reloads even when
// nothing changed.
func (c *TodoController) MarkAllCompleted(ctx context.Context, completed bool) ([]domain.Todo, error) {
	c.beginMutation("")
	todos, err := c.service.MarkAllCompleted(ctx, completed)
	return todos, c.finishMutation(ctx, "marking all todos as completed", "", err)
}

func (c *TodoController) beginMutation(id string) {
	c.update(func(s *State) {
		s.Err = nil
		s.ErrMessage = ""
		if id != "" {
			delete(s.ItemErrors, id)
		}
	})
}

// finishMutation always reloads, then records opErr so it outlives the reload.
func (c *TodoController) finishMutation(ctx context.Context, action, id string, opErr error) error {
	reloadErr := c.reload(ctx)
	if opErr == nil {
		return reloadErr
	}

	c.logger.WithError(opErr).WithFields(logrus.Fields{
		"action":  action,
		"todo_id": id,
	}).Warn("操作に失敗しました")

	msg := userMessage(action, opErr)
	c.update(func(s *State) {
		s.Phase = PhaseFailed
		s.Err = opErr
		s.ErrMessage = msg
		if id != "" {
			if s.ItemErrors == nil {
				s.ItemErrors = make(map[string]string)
			}
			s.ItemErrors[id] = msg
		}
	})
	return opErr
}

// reload fetches the filtered list, applies the UI sort and loads both counts
// concurrently. A reload that finishes after a newer one has been applied is
// discarded.
func (c *TodoController) reload(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	filter, sortKey := c.state.Filter, c.state.Sort
	c.state.Phase = PhaseLoading
	c.publishLocked()
	c.mu.Unlock()

	todos, err := c.service.FilterTodos(ctx, filter)
	if err != nil {
		c.fail(seq, "loading todos", err)
		return err
	}
	sorted := SortTodos(todos, sortKey)

	if !c.apply(seq, func(s *State) { s.Todos = sorted }) {
		return nil
	}

	var active, completed int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := c.service.GetActiveCount(gctx)
		active = n
		return err
	})
	g.Go(func() error {
		n, err := c.service.GetCompletedCount(gctx)
		completed = n
		return err
	})
	if err := g.Wait(); err != nil {
		c.fail(seq, "updating counts", err)
		return err
	}

	c.apply(seq, func(s *State) {
		s.ActiveCount = active
		s.CompletedCount = completed
		if s.Err == nil {
			s.Phase = PhaseReady
		} else {
			s.Phase = PhaseFailed
		}
	})
	return nil
}

func (c *TodoController) fail(seq uint64, action string, err error) {
	c.logger.WithError(err).WithField("action", action).Error("データの読み込みに失敗しました")
	msg := userMessage(action, err)
	c.apply(seq, func(s *State) {
		s.Phase = PhaseFailed
		s.Err = err
		s.ErrMessage = msg
	})
}

// apply mutates state only if no newer reload has already been applied.
func (c *TodoController) apply(seq uint64, fn func(*State)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.applied {
		return false
	}
	c.applied = seq
	fn(&c.state)
	c.publishLocked()
	return true
}

func (c *TodoController) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
	c.publishLocked()
}

func (c *TodoController) publishLocked() {
	snapshot := c.state.clone()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}

// userMessage converts an error into the text shown in the error banner.
func userMessage(action string, err error) string {
	if ve, ok := domain.AsValidationError(err); ok {
		return ve.Error()
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "Todo not found"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fmt.Sprintf("Storage is unavailable (%s)", action)
	case errors.Is(err, domain.ErrWriteConflict):
		return "Todo could not be saved because of an id conflict, please retry"
	}
	if err == nil || err.Error() == "" {
		return "Unknown error during " + action
	}
	return fmt.Sprintf("Error %s: %v", action, err)
}
