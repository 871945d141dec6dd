package domain

import (
	"time"
)

// Database-wide constants for the local record store.
const (
	DatabaseName   = "TodoListDB"
	SchemaVersion  = 1
	CollectionName = "todos"

	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Todo represents a todo domain entity
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can't alias the description pointer.
func (t Todo) Clone() Todo {
	c := t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	return c
}

// Priority represents todo priority levels
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid validates if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Rank returns the sort weight of the priority. Unknown values rank as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// String returns string representation of Priority
func (p Priority) String() string {
	return string(p)
}

// StatusScope selects the completion-based subset of todos.
type StatusScope string

const (
	ScopeAll       StatusScope = "all"
	ScopeActive    StatusScope = "active"
	ScopeCompleted StatusScope = "completed"
)

// IsValid validates if the scope is valid
func (s StatusScope) IsValid() bool {
	switch s {
	case ScopeAll, ScopeActive, ScopeCompleted:
		return true
	default:
		return false
	}
}

// String returns string representation of StatusScope
func (s StatusScope) String() string {
	return string(s)
}

// TodoFilter represents filter criteria for todo queries
type TodoFilter struct {
	Scope       StatusScope
	SearchQuery string
}

// SortKey selects the display ordering applied on top of the service order.
type SortKey string

const (
	SortDefault  SortKey = "default"
	SortPriority SortKey = "priority"
	SortCreated  SortKey = "created"
	SortUpdated  SortKey = "updated"
	SortTitle    SortKey = "title"
)

// SortKeys lists the keys in the order the UI cycles through them.
var SortKeys = []SortKey{SortPriority, SortCreated, SortUpdated, SortTitle, SortDefault}

// IsValid validates if the sort key is valid
func (k SortKey) IsValid() bool {
	switch k {
	case SortDefault, SortPriority, SortCreated, SortUpdated, SortTitle:
		return true
	default:
		return false
	}
}

// Next returns the key following k in SortKeys.
func (k SortKey) Next() SortKey {
	for i, key := range SortKeys {
		if key == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortKeys[0]
}

// String returns string representation of SortKey
func (k SortKey) String() string {
	return string(k)
}

// CreateTodoInput is the normalized input the repository persists on create.
type CreateTodoInput struct {
	Title       string
	Description *string
	Completed   bool
	Priority    Priority
}

// TodoPatch holds the fields to merge on update. Nil fields are left untouched;
// a Description pointing at an empty string clears the description.
type TodoPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *Priority
}

// Apply merges the supplied fields onto t and stamps UpdatedAt. ID and CreatedAt
// are never touched, and UpdatedAt never moves before CreatedAt.
func (p TodoPatch) Apply(t *Todo, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		if *p.Description == "" {
			t.Description = nil
		} else {
			d := *p.Description
			t.Description = &d
		}
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}
