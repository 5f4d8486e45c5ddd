package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/tripwire/pkg/eventlog"
)

// MemoryStorage implements eventlog.Storage with an in-memory slice. It is
// safe for concurrent use and keeps events in append order.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []*eventlog.Event
	seqs   map[string]uint64
}

// NewMemoryStorage creates an empty in-memory event store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{seqs: make(map[string]uint64)}
}

// Append stores one event. The stored copy is detached from the caller's
// event so later caller-side mutation cannot violate immutability. Missing
// stamps (ID, sequence, timestamp) are filled in; a recorder that
// pre-stamps keeps its values.
func (s *MemoryStorage) Append(ctx context.Context, ev *eventlog.Event) error {
	cp := *ev
	cp.Snapshot = ev.Snapshot.Clone()
	if ev.Diff != nil {
		cp.Diff = make(map[string]eventlog.FieldChange, len(ev.Diff))
		for k, v := range ev.Diff {
			cp.Diff[k] = v
		}
	}
	if ev.Meta != nil {
		cp.Meta = make(map[string]string, len(ev.Meta))
		for k, v := range ev.Meta {
			cp.Meta[k] = v
		}
	}
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	s.mu.Lock()
	if cp.Seq == 0 {
		s.seqs[cp.Entity]++
		cp.Seq = s.seqs[cp.Entity]
	} else if cp.Seq > s.seqs[cp.Entity] {
		s.seqs[cp.Entity] = cp.Seq
	}
	s.events = append(s.events, &cp)
	s.mu.Unlock()
	return nil
}

// Query returns matching events ordered by creation time, sequence within an
// entity.
func (s *MemoryStorage) Query(ctx context.Context, q *eventlog.Query) ([]*eventlog.Event, error) {
	if q == nil {
		q = &eventlog.Query{}
	}
	if q.AfterSeq > 0 && q.Entity == "" {
		return nil, eventlog.NewQueryError("after_seq requires an entity filter")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*eventlog.Event
	for _, ev := range s.events {
		if !matches(ev, q) {
			continue
		}
		cp := *ev
		out = append(out, &cp)
	}

	// Uniform (CreatedAt, Entity, Seq) keys keep the comparator a strict
	// weak ordering even with interleaved entity streams.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		return out[i].Seq < out[j].Seq
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *MemoryStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

// DeleteBefore removes events created before the cutoff.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	deleted := 0
	for _, ev := range s.events {
		if ev.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

// TrimTo removes oldest events until at most max remain.
func (s *MemoryStorage) TrimTo(ctx context.Context, max int) (int, error) {
	if max < 0 {
		max = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) <= max {
		return 0, nil
	}
	deleted := len(s.events) - max
	s.events = append(s.events[:0:0], s.events[deleted:]...)
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

// matches applies the query filters to one event.
func matches(ev *eventlog.Event, q *eventlog.Query) bool {
	if q.Entity != "" && ev.Entity != q.Entity {
		return false
	}
	if q.EntityID != "" && ev.EntityID != q.EntityID {
		return false
	}
	if q.Label != "" && ev.Label != q.Label {
		return false
	}
	if q.Since != nil && ev.CreatedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && !ev.CreatedAt.Before(*q.Until) {
		return false
	}
	if q.AfterSeq > 0 && ev.Seq <= q.AfterSeq {
		return false
	}
	return true
}
