package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"todo-app/src/database"
	"todo-app/src/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const selectColumns = `SELECT id, title, description, completed, priority, created_at, updated_at FROM todos`

// StoreOpener hands out the open store handle, opening it on first use.
type StoreOpener interface {
	Open(ctx context.Context) (*database.DB, error)
}

// TodoRepository implements domain.TodoRepository on top of database/sql.
type TodoRepository struct {
	store  StoreOpener
	logger *logrus.Logger
	opts   options
}

var _ domain.TodoRepository = (*TodoRepository)(nil)

// NewTodoRepository creates a new SQL todo repository
func NewTodoRepository(store StoreOpener, logger *logrus.Logger, opts ...Option) *TodoRepository {
	return &TodoRepository{
		store:  store,
		logger: logger,
		opts:   applyOptions(opts),
	}
}

// GetAll returns every stored todo in storage order.
func (r *TodoRepository) GetAll(ctx context.Context) ([]domain.Todo, error) {
	db, err := r.store.Open(ctx)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, db, selectColumns)
}

// GetByCompleted returns the todos whose completed flag matches, via idx_todos_completed.
func (r *TodoRepository) GetByCompleted(ctx context.Context, completed bool) ([]domain.Todo, error) {
	db, err := r.store.Open(ctx)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, db, selectColumns+` WHERE completed = ?`, boolToInt(completed))
}

// GetByID retrieves a todo by ID. It returns nil, nil when no such todo exists.
func (r *TodoRepository) GetByID(ctx context.Context, id string) (*domain.Todo, error) {
	db, err := r.store.Open(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := scanRecord(db.QueryRowContext(ctx, db.Rebind(selectColumns+` WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithError(err).WithField("todo_id", id).Error("Todoの取得に失敗")
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	todo, err := rec.ToDomain()
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

// Create persists a new todo with a generated id and fresh timestamps.
func (r *TodoRepository) Create(ctx context.Context, input domain.CreateTodoInput) (*domain.Todo, error) {
	db, err := r.store.Open(ctx)
	if err != nil {
		return nil, err
	}

	now := r.opts.now().UTC()
	todo := domain.Todo{
		ID:          r.opts.newID(),
		Title:       input.Title,
		Description: input.Description,
		Completed:   input.Completed,
		Priority:    input.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}.Clone()
	if todo.Priority == "" {
		todo.Priority = domain.PriorityMedium
	}
	rec := ToRecord(todo)

	err = r.withTx(ctx, db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, db.Rebind(`SELECT 1 FROM todos WHERE id = ?`), rec.ID).Scan(&exists)
		switch {
		case err == nil:
			return domain.ErrWriteConflict
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		_, err = tx.ExecContext(ctx, db.Rebind(`
			INSERT INTO todos (id, title, description, completed, priority, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			rec.ID, rec.Title, rec.Description, rec.Completed, rec.Priority, rec.CreatedAt, rec.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrWriteConflict) || isUniqueViolation(err) {
			r.logger.WithField("todo_id", rec.ID).Warn("IDが衝突しました")
			return nil, fmt.Errorf("failed to create todo %s: %w", rec.ID, domain.ErrWriteConflict)
		}
		r.logger.WithError(err).Error("Todoの作成に失敗")
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	r.logger.WithField("todo_id", todo.ID).Debug("Todoを作成しました")
	return &todo, nil
}

// Update merges the supplied fields onto an existing todo. It returns nil, nil
// when the id is unknown.
func (r *TodoRepository) Update(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	db, err := r.store.Open(ctx)
	if err != nil {
		return nil, err
	}

	var updated *domain.Todo
	err = r.withTx(ctx, db, func(tx *sql.Tx) error {
		rec, err := scanRecord(tx.QueryRowContext(ctx, db.Rebind(selectColumns+` WHERE id = ?`), id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		todo, err := rec.ToDomain()
		if err != nil {
			return err
		}

		patch.Apply(&todo, r.opts.now().UTC())
		rec = ToRecord(todo)

		if _, err := tx.ExecContext(ctx, db.Rebind(`
			UPDATE todos SET title = ?, description = ?, completed = ?, priority = ?, updated_at = ?
			WHERE id = ?`),
			rec.Title, rec.Description, rec.Completed, rec.Priority, rec.UpdatedAt, rec.ID,
		); err != nil {
			return err
		}
		updated = &todo
		return nil
	})
	if err != nil {
		r.logger.WithError(err).WithField("todo_id", id).Error("Todoの更新に失敗")
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return updated, nil
}

// Delete removes a todo. It reports whether a row existed.
func (r *TodoRepository) Delete(ctx context.Context, id string) (bool, error) {
	db, err := r.store.Open(ctx)
	if err != nil {
		return false, err
	}

	result, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM todos WHERE id = ?`), id)
	if err != nil {
		r.logger.WithError(err).WithField("todo_id", id).Error("Todoの削除に失敗")
		return false, fmt.Errorf("failed to delete todo: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *TodoRepository) query(ctx context.Context, db *database.DB, query string, args ...any) ([]domain.Todo, error) {
	rows, err := db.QueryContext(ctx, db.Rebind(query), args...)
	if err != nil {
		r.logger.WithError(err).Error("Todo一覧の取得に失敗")
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todo, err := rec.ToDomain()
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}
	return todos, nil
}

func (r *TodoRepository) withTx(ctx context.Context, db *database.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
