package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"todo-app/src/domain"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour of the open handle.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config represents database configuration
type Config struct {
	Driver string
	Path   string
	DSN    string
}

// DB represents the database connection
type DB struct {
	*sql.DB
	dialect Dialect
	logger  *logrus.Logger
}

// Dialect returns the SQL dialect of the connection.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Rebind converts '?' placeholders to the connection's bind style.
func (db *DB) Rebind(query string) string {
	return Rebind(db.dialect, query)
}

// Rebind converts '?' placeholders to the bind style of dialect.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Health checks database health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS todos (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT,
	completed   INTEGER NOT NULL DEFAULT 0,
	priority    TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_todos_completed ON todos(completed);
CREATE INDEX IF NOT EXISTS idx_todos_created_at ON todos(created_at);
`

// Manager owns the single store handle. Open is idempotent and Close releases
// the handle so a later Open re-acquires it.
type Manager struct {
	mu     sync.Mutex
	config Config
	logger *logrus.Logger
	db     *DB
}

// NewManager creates a store manager. Nothing is opened until Open is called.
func NewManager(config Config, logger *logrus.Logger) *Manager {
	return &Manager{
		config: config,
		logger: logger,
	}
}

// Open returns the open handle, creating the schema on first use.
func (m *Manager) Open(ctx context.Context) (*DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return m.db, nil
	}

	db, err := m.connect(ctx)
	if err != nil {
		m.logger.WithError(err).WithField("driver", m.config.Driver).Error("データベースのオープンに失敗")
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	if err := m.setupSchema(ctx, db); err != nil {
		db.DB.Close()
		m.logger.WithError(err).Error("スキーマの作成に失敗")
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	m.logger.WithFields(logrus.Fields{
		"driver":   db.dialect,
		"database": domain.DatabaseName,
		"version":  domain.SchemaVersion,
	}).Info("データベースに接続しました")

	m.db = db
	return db, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	m.logger.Info("データベース接続を閉じています")
	err := m.db.DB.Close()
	m.db = nil
	return err
}

// Driver reports the configured dialect. An empty driver means sqlite.
func (m *Manager) Driver() Dialect {
	if m.config.Driver == "" {
		return DialectSQLite
	}
	return Dialect(m.config.Driver)
}

// Health pings the open handle. It reports ErrStoreUnavailable when closed.
func (m *Manager) Health(ctx context.Context) error {
	m.mu.Lock()
	db := m.db
	m.mu.Unlock()

	if db == nil {
		return fmt.Errorf("%w: not open", domain.ErrStoreUnavailable)
	}
	return db.Health(ctx)
}

func (m *Manager) connect(ctx context.Context) (*DB, error) {
	var (
		sqlDB   *sql.DB
		dialect Dialect
		err     error
	)

	switch m.config.Driver {
	case "", string(DialectSQLite):
		dialect = DialectSQLite
		path := m.config.Path
		if path == "" {
			path = domain.DatabaseName + ".db"
		}
		if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
			if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("create dirs: %w", err)
			}
		}
		sqlDB, err = sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite は単一ライター
		sqlDB.SetMaxOpenConns(1)
	case string(DialectPostgres):
		dialect = DialectPostgres
		sqlDB, err = sql.Open("postgres", m.config.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		// 接続プールの設定
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", m.config.Driver)
	}

	// 接続をテスト
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return &DB{DB: sqlDB, dialect: dialect, logger: m.logger}, nil
}

func (m *Manager) setupSchema(ctx context.Context, db *DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx,
		db.Rebind(`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`),
		"schema_version", strconv.Itoa(domain.SchemaVersion),
	); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	var version string
	if err := db.QueryRowContext(ctx,
		db.Rebind(`SELECT value FROM meta WHERE key = ?`), "schema_version",
	).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != strconv.Itoa(domain.SchemaVersion) {
		return fmt.Errorf("unsupported schema version %s", version)
	}
	return nil
}
