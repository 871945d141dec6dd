package controller

import (
	"slices"
	"strings"

	"todo-app/src/domain"
)

// SortTodos returns a sorted copy of todos. SortDefault keeps the service order.
func SortTodos(todos []domain.Todo, key domain.SortKey) []domain.Todo {
	out := slices.Clone(todos)

	switch key {
	case domain.SortPriority:
		slices.SortStableFunc(out, func(a, b domain.Todo) int {
			if d := b.Priority.Rank() - a.Priority.Rank(); d != 0 {
				return d
			}
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case domain.SortCreated:
		slices.SortStableFunc(out, func(a, b domain.Todo) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case domain.SortUpdated:
		slices.SortStableFunc(out, func(a, b domain.Todo) int {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		})
	case domain.SortTitle:
		slices.SortStableFunc(out, func(a, b domain.Todo) int {
			if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
				return c
			}
			return strings.Compare(a.Title, b.Title)
		})
	}
	return out
}
