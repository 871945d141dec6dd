package repository

import (
	"database/sql"
	"fmt"
	"time"

	"todo-app/src/domain"
)

// TodoRecord is the storage representation of a todo row. Booleans are stored
// as 0/1 and timestamps as RFC3339Nano text in UTC.
type TodoRecord struct {
	ID          string
	Title       string
	Description sql.NullString
	Completed   int64
	Priority    sql.NullString
	CreatedAt   string
	UpdatedAt   string
}

const timestampLayout = time.RFC3339Nano

// ToRecord converts a domain todo to its storage representation.
func ToRecord(t domain.Todo) TodoRecord {
	rec := TodoRecord{
		ID:        t.ID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt: t.UpdatedAt.UTC().Format(timestampLayout),
	}
	if t.Description != nil {
		rec.Description = sql.NullString{String: *t.Description, Valid: true}
	}
	if t.Completed {
		rec.Completed = 1
	}
	if t.Priority != "" {
		rec.Priority = sql.NullString{String: string(t.Priority), Valid: true}
	}
	return rec
}

// ToDomain converts a stored row back to a domain todo. Rows written before
// priority existed read back as medium.
func (r TodoRecord) ToDomain() (domain.Todo, error) {
	createdAt, err := time.Parse(timestampLayout, r.CreatedAt)
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to parse created_at of %s: %w", r.ID, err)
	}
	updatedAt, err := time.Parse(timestampLayout, r.UpdatedAt)
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to parse updated_at of %s: %w", r.ID, err)
	}

	t := domain.Todo{
		ID:        r.ID,
		Title:     r.Title,
		Completed: r.Completed != 0,
		Priority:  domain.PriorityMedium,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}
	if r.Description.Valid {
		d := r.Description.String
		t.Description = &d
	}
	if p := domain.Priority(r.Priority.String); r.Priority.Valid && p.IsValid() {
		t.Priority = p
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (TodoRecord, error) {
	var rec TodoRecord
	err := s.Scan(
		&rec.ID, &rec.Title, &rec.Description, &rec.Completed,
		&rec.Priority, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}
