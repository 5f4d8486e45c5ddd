package store

import (
	"context"
	"sync"

	"mercator-hq/tripwire/pkg/trigger"
)

// MemoryBackend keeps rows in process memory. It is the default backend for
// tests and for deployments that do not need persistence.
type MemoryBackend struct {
	mu       sync.RWMutex
	entities map[string]map[string]trigger.Row
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entities: make(map[string]map[string]trigger.Row),
	}
}

// Get returns a snapshot of the row, or ErrNotFound.
func (b *MemoryBackend) Get(ctx context.Context, entity, id string) (trigger.Row, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows, ok := b.entities[entity]
	if !ok {
		return nil, ErrNotFound
	}
	row, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return row.Clone(), nil
}

// Insert stores a new row, or returns ErrExists.
func (b *MemoryBackend) Insert(ctx context.Context, entity, id string, row trigger.Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, ok := b.entities[entity]
	if !ok {
		rows = make(map[string]trigger.Row)
		b.entities[entity] = rows
	}
	if _, exists := rows[id]; exists {
		return ErrExists
	}
	rows[id] = row.Clone()
	return nil
}

// Update replaces an existing row, or returns ErrNotFound.
func (b *MemoryBackend) Update(ctx context.Context, entity, id string, row trigger.Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, ok := b.entities[entity]
	if !ok {
		return ErrNotFound
	}
	if _, exists := rows[id]; !exists {
		return ErrNotFound
	}
	rows[id] = row.Clone()
	return nil
}

// Delete removes the row, or returns ErrNotFound.
func (b *MemoryBackend) Delete(ctx context.Context, entity, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, ok := b.entities[entity]
	if !ok {
		return ErrNotFound
	}
	if _, exists := rows[id]; !exists {
		return ErrNotFound
	}
	delete(rows, id)
	return nil
}

// Count returns the number of rows for the entity.
func (b *MemoryBackend) Count(ctx context.Context, entity string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entities[entity]), nil
}

// Close is a no-op for the in-memory backend.
func (b *MemoryBackend) Close() error {
	return nil
}
