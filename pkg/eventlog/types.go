package eventlog

import (
	"context"
	"time"

	"mercator-hq/tripwire/pkg/trigger"
)

// Event is one immutable audit record produced by an Audit policy. Once
// appended it is never mutated or deleted by the engine; only retention
// pruning removes events, and only wholesale by age or count.
type Event struct {
	// ID is a UUID assigned at append time (by the recorder, or by the
	// storage backend on the synchronous path).
	ID string `json:"id"`

	// Entity is the entity name, EntityID the row's identity key.
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`

	// Label names the event stream, e.g. "snapshot" or "create".
	Label string `json:"label"`

	// Policy is the audit policy that emitted the event.
	Policy string `json:"policy"`

	// Op is the committed mutation kind that fired the policy.
	Op trigger.Op `json:"op"`

	// Seq is the per-entity monotonic sequence, the tie-break within one
	// entity's stream when timestamps collide.
	Seq uint64 `json:"seq"`

	// Snapshot is the captured row (the committed new row, or the old row
	// for deletes). Nil when the policy records diffs only.
	Snapshot trigger.Row `json:"snapshot,omitempty"`

	// Diff maps changed field names to their before/after values. Nil for
	// full-snapshot events.
	Diff map[string]FieldChange `json:"diff,omitempty"`

	// Meta is caller-supplied unit-of-work metadata (current user, request
	// id) captured from the context at append time.
	Meta map[string]string `json:"meta,omitempty"`

	// CreatedAt is the append timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// FieldChange is one field's before/after pair in a diff.
type FieldChange struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// Query filters the event log. Zero-valued fields are wildcards. Results are
// ordered by creation time, sequence-ascending within an entity; restarting
// with AfterSeq set to the last seen sequence resumes a per-entity scan
// without re-reading delivered events.
//
// Query returns a snapshot slice rather than a lazy iterator: result sets
// are bounded by Limit and retention, and a materialized slice keeps the
// backends free of open-cursor lifetimes. Consumers that need incremental
// delivery page with Limit and the AfterSeq restart.
type Query struct {
	// Entity filters by entity name.
	Entity string

	// EntityID filters by row identity key.
	EntityID string

	// Label filters by event label.
	Label string

	// Since/Until bound the creation-time range (inclusive lower, exclusive
	// upper).
	Since *time.Time
	Until *time.Time

	// AfterSeq skips events with Seq <= AfterSeq. Meaningful only with
	// Entity (and usually EntityID) set, since sequences are per entity.
	AfterSeq uint64

	// Limit caps the number of returned events; zero means no cap.
	Limit int
}

// Storage is the append-only event backend. Append must never fail the
// triggering mutation: callers treat errors as observability events.
type Storage interface {
	// Append stores one event. O(1); never blocks on readers.
	Append(ctx context.Context, ev *Event) error

	// Query returns matching events ordered by creation time (sequence
	// within an entity).
	Query(ctx context.Context, q *Query) ([]*Event, error)

	// Count returns the total number of stored events.
	Count(ctx context.Context) (int, error)

	// DeleteBefore removes events created before the cutoff and returns how
	// many were removed. Used by retention pruning only.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)

	// TrimTo removes oldest events until at most max remain, returning how
	// many were removed. Used by retention pruning only.
	TrimTo(ctx context.Context, max int) (int, error)

	// Close releases backend resources.
	Close() error
}

// Appender is the narrow interface the interceptor needs. Storage satisfies
// it directly (synchronous appends); recorder.Recorder satisfies it with a
// buffered background worker. Either way every stored event carries an ID,
// a per-entity sequence, and a timestamp: the recorder stamps before
// enqueueing, and the storage backends fill any stamp still missing.
type Appender interface {
	Append(ctx context.Context, ev *Event) error
}
