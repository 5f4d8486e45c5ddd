package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/tripwire/pkg/trigger"
)

// SQLiteBackend persists rows in a SQLite database, one JSON document per
// row. It is suitable for single-instance deployments where rows must
// survive restarts.
//
// The backend opens the database in WAL mode and checkpoints the log on a
// fixed interval to keep it from growing unbounded.
type SQLiteBackend struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once

	getStmt    *sql.Stmt
	insertStmt *sql.Stmt
	updateStmt *sql.Stmt
	deleteStmt *sql.Stmt
	countStmt  *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{DBPath: dbPath})
}

// NewSQLiteBackendWithConfig creates a SQLite backend with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go backend.checkpointLoop()

	return backend, nil
}

func (b *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rows (
		entity TEXT NOT NULL,
		id TEXT NOT NULL,
		fields TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (entity, id)
	);

	CREATE INDEX IF NOT EXISTS idx_rows_entity ON rows(entity);
	`

	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) prepareStatements() error {
	var err error

	b.getStmt, err = b.db.Prepare(`SELECT fields FROM rows WHERE entity = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare get: %w", err)
	}

	b.insertStmt, err = b.db.Prepare(`
		INSERT INTO rows (entity, id, fields, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}

	b.updateStmt, err = b.db.Prepare(`
		UPDATE rows SET fields = ?, updated_at = ? WHERE entity = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}

	b.deleteStmt, err = b.db.Prepare(`DELETE FROM rows WHERE entity = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}

	b.countStmt, err = b.db.Prepare(`SELECT COUNT(*) FROM rows WHERE entity = ?`)
	if err != nil {
		return fmt.Errorf("prepare count: %w", err)
	}

	return nil
}

// checkpointLoop periodically checkpoints the WAL to the main database.
func (b *SQLiteBackend) checkpointLoop() {
	ticker := time.NewTicker(b.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		case <-b.done:
			return
		}
	}
}

// Get returns a snapshot of the row, or ErrNotFound.
func (b *SQLiteBackend) Get(ctx context.Context, entity, id string) (trigger.Row, error) {
	var fields string
	err := b.getStmt.QueryRowContext(ctx, entity, id).Scan(&fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewBackendError("sqlite", "get", err)
	}

	var row trigger.Row
	if err := json.Unmarshal([]byte(fields), &row); err != nil {
		return nil, NewBackendError("sqlite", "get", err)
	}
	return row, nil
}

// Insert stores a new row, or returns ErrExists.
func (b *SQLiteBackend) Insert(ctx context.Context, entity, id string, row trigger.Row) error {
	fields, err := json.Marshal(row)
	if err != nil {
		return NewBackendError("sqlite", "insert", err)
	}

	now := time.Now().Unix()
	if _, err := b.insertStmt.ExecContext(ctx, entity, id, string(fields), now, now); err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return NewBackendError("sqlite", "insert", err)
	}
	return nil
}

// Update replaces an existing row, or returns ErrNotFound.
func (b *SQLiteBackend) Update(ctx context.Context, entity, id string, row trigger.Row) error {
	fields, err := json.Marshal(row)
	if err != nil {
		return NewBackendError("sqlite", "update", err)
	}

	res, err := b.updateStmt.ExecContext(ctx, string(fields), time.Now().Unix(), entity, id)
	if err != nil {
		return NewBackendError("sqlite", "update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return NewBackendError("sqlite", "update", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row, or returns ErrNotFound.
func (b *SQLiteBackend) Delete(ctx context.Context, entity, id string) error {
	res, err := b.deleteStmt.ExecContext(ctx, entity, id)
	if err != nil {
		return NewBackendError("sqlite", "delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return NewBackendError("sqlite", "delete", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of rows for the entity.
func (b *SQLiteBackend) Count(ctx context.Context, entity string) (int, error) {
	var n int
	if err := b.countStmt.QueryRowContext(ctx, entity).Scan(&n); err != nil {
		return 0, NewBackendError("sqlite", "count", err)
	}
	return n, nil
}

// Close stops the checkpoint loop and closes the database.
func (b *SQLiteBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		for _, stmt := range []*sql.Stmt{b.getStmt, b.insertStmt, b.updateStmt, b.deleteStmt, b.countStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = b.db.Close()
	})
	return err
}

// isUniqueViolation reports whether the error is a primary-key conflict.
// modernc.org/sqlite surfaces these as plain errors carrying the SQLite
// message, so match on the message text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}
