package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/tripwire/pkg/eventlog"
	"mercator-hq/tripwire/pkg/trigger"
)

// timeFormat is fixed-width (no trimmed fractional zeros), so the TEXT
// created_at column sorts lexicographically in chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteConfig contains configuration for the SQLite event log backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/events.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements eventlog.Storage using SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	config     *SQLiteConfig
	appendStmt *sql.Stmt
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewSQLiteStorage creates a SQLite-backed event store, initializing the
// schema and enabling WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, eventlog.NewStorageError("sqlite", "open", fmt.Errorf("path cannot be empty"))
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, eventlog.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "eventlog.storage.sqlite"),
	}

	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("sqlite event storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// init applies pragmas, the schema, and prepares the append statement.
func (s *SQLiteStorage) init() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return eventlog.NewStorageError("sqlite", "pragma", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return eventlog.NewStorageError("sqlite", "pragma", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return eventlog.NewStorageError("sqlite", "schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return eventlog.NewStorageError("sqlite", "schema", err)
	}

	stmt, err := s.db.Prepare(`
		INSERT INTO events (id, entity, entity_id, label, policy, op, seq, snapshot, diff, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return eventlog.NewStorageError("sqlite", "prepare", err)
	}
	s.appendStmt = stmt

	return nil
}

// Append stores one event. Missing stamps (ID, sequence, timestamp) are
// filled in; a recorder that pre-stamps keeps its values.
func (s *SQLiteStorage) Append(ctx context.Context, ev *eventlog.Event) error {
	snapshot, err := marshalNullable(ev.Snapshot)
	if err != nil {
		return eventlog.NewStorageError("sqlite", "append", err)
	}
	diff, err := marshalNullable(ev.Diff)
	if err != nil {
		return eventlog.NewStorageError("sqlite", "append", err)
	}
	meta, err := marshalNullable(ev.Meta)
	if err != nil {
		return eventlog.NewStorageError("sqlite", "append", err)
	}

	id := ev.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := ev.Seq
	if seq == 0 {
		var max int64
		err := s.db.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(seq), 0) FROM events WHERE entity = ?",
			ev.Entity,
		).Scan(&max)
		if err != nil {
			return eventlog.NewStorageError("sqlite", "append", err)
		}
		seq = uint64(max) + 1
	}

	_, err = s.appendStmt.ExecContext(ctx,
		id,
		ev.Entity,
		ev.EntityID,
		ev.Label,
		ev.Policy,
		string(ev.Op),
		int64(seq),
		snapshot,
		diff,
		meta,
		createdAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return eventlog.NewStorageError("sqlite", "append", err)
	}
	return nil
}

// Query returns matching events ordered by creation time, sequence within an
// entity stream.
func (s *SQLiteStorage) Query(ctx context.Context, q *eventlog.Query) ([]*eventlog.Event, error) {
	if q == nil {
		q = &eventlog.Query{}
	}
	if q.AfterSeq > 0 && q.Entity == "" {
		return nil, eventlog.NewQueryError("after_seq requires an entity filter")
	}

	var (
		where []string
		args  []any
	)
	if q.Entity != "" {
		where = append(where, "entity = ?")
		args = append(args, q.Entity)
	}
	if q.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, q.EntityID)
	}
	if q.Label != "" {
		where = append(where, "label = ?")
		args = append(args, q.Label)
	}
	if q.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, q.Since.UTC().Format(timeFormat))
	}
	if q.Until != nil {
		where = append(where, "created_at < ?")
		args = append(args, q.Until.UTC().Format(timeFormat))
	}
	if q.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, int64(q.AfterSeq))
	}

	query := "SELECT id, entity, entity_id, label, policy, op, seq, snapshot, diff, meta, created_at FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, entity, seq"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eventlog.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var out []*eventlog.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, eventlog.NewStorageError("sqlite", "query", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, eventlog.NewStorageError("sqlite", "query", err)
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, eventlog.NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// DeleteBefore removes events created before the cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE created_at < ?",
		cutoff.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, eventlog.NewStorageError("sqlite", "prune", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, eventlog.NewStorageError("sqlite", "prune", err)
	}
	return int(deleted), nil
}

// TrimTo removes oldest events until at most max remain.
func (s *SQLiteStorage) TrimTo(ctx context.Context, max int) (int, error) {
	if max < 0 {
		max = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM events WHERE id IN (
			SELECT id FROM events
			ORDER BY created_at DESC, seq DESC
			LIMIT -1 OFFSET ?
		)
	`, max)
	if err != nil {
		return 0, eventlog.NewStorageError("sqlite", "prune", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, eventlog.NewStorageError("sqlite", "prune", err)
	}
	return int(deleted), nil
}

// Close releases the prepared statement and database handle. Safe to call
// once.
func (s *SQLiteStorage) Close() error {
	if s.appendStmt != nil {
		s.appendStmt.Close()
	}
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// scanEvent reads one row into an Event.
func scanEvent(rows *sql.Rows) (*eventlog.Event, error) {
	var (
		ev        eventlog.Event
		op        string
		seq       int64
		snapshot  sql.NullString
		diff      sql.NullString
		meta      sql.NullString
		createdAt string
	)
	if err := rows.Scan(&ev.ID, &ev.Entity, &ev.EntityID, &ev.Label, &ev.Policy, &op, &seq, &snapshot, &diff, &meta, &createdAt); err != nil {
		return nil, err
	}

	ev.Op = trigger.Op(op)
	ev.Seq = uint64(seq)

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	ev.CreatedAt = t

	if snapshot.Valid && snapshot.String != "" {
		if err := json.Unmarshal([]byte(snapshot.String), &ev.Snapshot); err != nil {
			return nil, fmt.Errorf("bad snapshot: %w", err)
		}
	}
	if diff.Valid && diff.String != "" {
		if err := json.Unmarshal([]byte(diff.String), &ev.Diff); err != nil {
			return nil, fmt.Errorf("bad diff: %w", err)
		}
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &ev.Meta); err != nil {
			return nil, fmt.Errorf("bad meta: %w", err)
		}
	}

	return &ev, nil
}

// marshalNullable JSON-encodes v, mapping empty values to NULL.
func marshalNullable(v any) (any, error) {
	switch val := v.(type) {
	case trigger.Row:
		if val == nil {
			return nil, nil
		}
	case map[string]eventlog.FieldChange:
		if val == nil {
			return nil, nil
		}
	case map[string]string:
		if val == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
