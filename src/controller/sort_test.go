package controller_test

import (
	"testing"
	"time"

	"todo-app/src/controller"
	"todo-app/src/domain"

	"github.com/stretchr/testify/assert"
)

func ids(todos []domain.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.ID)
	}
	return out
}

func TestSortTodos(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	todos := []domain.Todo{
		{ID: "low-old", Title: "walk dog", Priority: domain.PriorityLow, CreatedAt: base, UpdatedAt: base.Add(5 * time.Hour)},
		{ID: "high-old", Title: "Pay rent", Priority: domain.PriorityHigh, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		{ID: "med", Title: "apples", Priority: domain.PriorityMedium, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "high-new", Title: "Bills", Priority: domain.PriorityHigh, CreatedAt: base.Add(3 * time.Hour), UpdatedAt: base.Add(3 * time.Hour)},
	}

	tests := []struct {
		name string
		key  domain.SortKey
		want []string
	}{
		{
			name: "priority then newest",
			key:  domain.SortPriority,
			want: []string{"high-new", "high-old", "med", "low-old"},
		},
		{
			name: "created newest first",
			key:  domain.SortCreated,
			want: []string{"high-new", "med", "high-old", "low-old"},
		},
		{
			name: "updated newest first",
			key:  domain.SortUpdated,
			want: []string{"low-old", "high-new", "med", "high-old"},
		},
		{
			name: "title lexical ignoring case",
			key:  domain.SortTitle,
			want: []string{"med", "high-new", "high-old", "low-old"},
		},
		{
			name: "default keeps service order",
			key:  domain.SortDefault,
			want: []string{"low-old", "high-old", "med", "high-new"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := controller.SortTodos(todos, tt.key)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	// 入力スライスは変更されない
	assert.Equal(t, []string{"low-old", "high-old", "med", "high-new"}, ids(todos))
}
