package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/tripwire/pkg/trigger"
)

// Registry maps (entity, op, timing) to the ordered list of policies that
// apply. Policies are immutable once registered and kept in registration
// order: order is the tie-break that determines, for example, that a Protect
// guarding a field runs before a Transform that would otherwise silently
// permit the same update.
type Registry struct {
	mu       sync.RWMutex
	entities map[string][]trigger.Policy
	frozen   bool
	logger   *slog.Logger
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entities: make(map[string][]trigger.Policy),
		logger:   slog.Default().With("component", "trigger.registry"),
	}
}

// Register adds a policy. It fails with trigger.DuplicatePolicyError if the
// name already exists on the entity, with trigger.InvalidPolicyError if the
// policy's shape is inconsistent, and with ErrFrozen after Freeze.
func (r *Registry) Register(p trigger.Policy) error {
	if err := validate(&p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}

	for _, existing := range r.entities[p.Entity] {
		if existing.Name == p.Name {
			return trigger.NewDuplicatePolicyError(p.Entity, p.Name)
		}
	}

	r.entities[p.Entity] = append(r.entities[p.Entity], p)

	r.logger.Debug("policy registered",
		"entity", p.Entity,
		"policy", p.Name,
		"kind", p.Kind,
		"timing", p.Timing,
		"ops", fmt.Sprintf("%v", p.Ops),
	)

	return nil
}

// RegisterAll registers the given policies in order, stopping at the first
// failure.
func (r *Registry) RegisterAll(policies ...trigger.Policy) error {
	for _, p := range policies {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the policies on the entity that apply to the given op and
// timing, in registration order. The returned slice is a snapshot; callers
// may iterate it without holding any lock.
func (r *Registry) Lookup(entity string, op trigger.Op, timing trigger.Timing) []trigger.Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []trigger.Policy
	for _, p := range r.entities[entity] {
		if p.Timing == timing && p.Ops.Contains(op) {
			out = append(out, p)
		}
	}
	return out
}

// Policies returns all policies registered on the entity, in registration
// order.
func (r *Registry) Policies(entity string) []trigger.Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]trigger.Policy, len(r.entities[entity]))
	copy(out, r.entities[entity])
	return out
}

// Entities returns the names of all entities with at least one policy.
func (r *Registry) Entities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entities))
	for name := range r.entities {
		out = append(out, name)
	}
	return out
}

// Freeze rejects all further registration. Hosts that hot-reload declarative
// policy files build a fresh registry and swap it atomically instead of
// mutating a live one.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// validate checks kind/timing consistency and kind parameters.
func validate(p *trigger.Policy) error {
	if p.Name == "" {
		return trigger.NewInvalidPolicyError(p.Entity, p.Name, "policy name cannot be empty")
	}
	if p.Entity == "" {
		return trigger.NewInvalidPolicyError(p.Entity, p.Name, "entity cannot be empty")
	}
	if len(p.Ops) == 0 {
		return trigger.NewInvalidPolicyError(p.Entity, p.Name, "operation set cannot be empty")
	}
	for _, op := range p.Ops {
		if !op.Valid() {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, fmt.Sprintf("unknown operation %q", op))
		}
	}

	switch p.Kind {
	case trigger.KindProtect:
		if p.Timing != trigger.Before {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "protect policies must run before commit")
		}
	case trigger.KindTransform:
		if p.Timing != trigger.Before {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "transform policies must run before commit")
		}
		if p.Transform == nil {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "transform policies need a transform function")
		}
	case trigger.KindFSMGuard:
		if p.Timing != trigger.Before {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "fsm policies must run before commit")
		}
		if p.Field == "" {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "fsm policies need a guarded field")
		}
		if len(p.Transitions) == 0 {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "fsm policies need at least one transition")
		}
		if !p.Ops.Contains(trigger.OpUpdate) {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "fsm policies apply to updates")
		}
	case trigger.KindAudit:
		if p.Timing != trigger.After {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "audit policies must run after commit")
		}
		if p.Label == "" {
			return trigger.NewInvalidPolicyError(p.Entity, p.Name, "audit policies need an event label")
		}
	default:
		return trigger.NewInvalidPolicyError(p.Entity, p.Name, fmt.Sprintf("unknown kind %q", p.Kind))
	}

	return nil
}
