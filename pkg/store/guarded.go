package store

import (
	"context"
	"log/slog"

	"mercator-hq/tripwire/pkg/trigger"
	"mercator-hq/tripwire/pkg/trigger/engine"
)

// Store is the guarded row store. Every mutation runs the interceptor's
// Before pass inside the write path and fires the After pass once the write
// has been applied. A policy rejection surfaces to the caller with the
// backend untouched.
type Store struct {
	backend Backend
	engine  *engine.Engine
	logger  *slog.Logger
}

// NewStore wraps a backend with the interceptor.
func NewStore(backend Backend, eng *engine.Engine) *Store {
	return &Store{
		backend: backend,
		engine:  eng,
		logger:  slog.Default().With("component", "store"),
	}
}

// Insert proposes an insert of the given row.
func (s *Store) Insert(ctx context.Context, entity, id string, row trigger.Row) error {
	m := &trigger.Mutation{
		Entity: entity,
		Op:     trigger.OpInsert,
		Key:    id,
		New:    row.Clone(),
	}

	if err := s.engine.Before(ctx, m); err != nil {
		return err
	}
	if err := s.backend.Insert(ctx, entity, id, m.New); err != nil {
		return err
	}

	s.engine.After(ctx, m)
	return nil
}

// Update proposes replacing the row with the given full new row.
func (s *Store) Update(ctx context.Context, entity, id string, row trigger.Row) error {
	old, err := s.backend.Get(ctx, entity, id)
	if err != nil {
		return err
	}

	m := &trigger.Mutation{
		Entity: entity,
		Op:     trigger.OpUpdate,
		Key:    id,
		Old:    old,
		New:    row.Clone(),
	}

	if err := s.engine.Before(ctx, m); err != nil {
		return err
	}
	if err := s.backend.Update(ctx, entity, id, m.New); err != nil {
		return err
	}

	s.engine.After(ctx, m)
	return nil
}

// Delete proposes removing the row. A soft-delete Transform may substitute
// the operation, in which case the backend applies an update instead and
// the row stays queryable.
func (s *Store) Delete(ctx context.Context, entity, id string) error {
	old, err := s.backend.Get(ctx, entity, id)
	if err != nil {
		return err
	}

	m := &trigger.Mutation{
		Entity: entity,
		Op:     trigger.OpDelete,
		Key:    id,
		Old:    old,
	}

	if err := s.engine.Before(ctx, m); err != nil {
		return err
	}

	if m.Substituted() && m.Op == trigger.OpUpdate {
		s.logger.Debug("delete substituted with update",
			"entity", entity,
			"id", id,
		)
		if err := s.backend.Update(ctx, entity, id, m.New); err != nil {
			return err
		}
	} else {
		if err := s.backend.Delete(ctx, entity, id); err != nil {
			return err
		}
	}

	s.engine.After(ctx, m)
	return nil
}

// Get returns a snapshot of the row.
func (s *Store) Get(ctx context.Context, entity, id string) (trigger.Row, error) {
	return s.backend.Get(ctx, entity, id)
}

// Count returns the number of rows for the entity.
func (s *Store) Count(ctx context.Context, entity string) (int, error) {
	return s.backend.Count(ctx, entity)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
