package policies

import (
	"mercator-hq/tripwire/pkg/trigger"
	"mercator-hq/tripwire/pkg/trigger/condition"
)

// Protect rejects the given operations on the entity. A nil condition
// rejects unconditionally.
func Protect(entity, name string, ops trigger.OpSet, cond trigger.Condition) trigger.Policy {
	return trigger.Policy{
		Name:      name,
		Entity:    entity,
		Ops:       ops,
		Timing:    trigger.Before,
		Kind:      trigger.KindProtect,
		Condition: cond,
	}
}

// AppendOnly rejects updates and deletes, making the entity insert-only.
func AppendOnly(entity, name string) trigger.Policy {
	return Protect(entity, name, trigger.Ops(trigger.OpUpdate, trigger.OpDelete), nil)
}

// ReadOnly rejects updates that change any of the named fields. Updates to
// other fields pass.
func ReadOnly(entity, name string, fields ...string) trigger.Policy {
	children := make([]*condition.Node, len(fields))
	for i, f := range fields {
		children[i] = condition.Old(f).DistinctFrom(condition.New(f))
	}
	var cond *condition.Node
	if len(children) == 1 {
		cond = children[0]
	} else {
		cond = condition.Any(children...)
	}
	return Protect(entity, name, trigger.Ops(trigger.OpUpdate), cond)
}

// SoftDelete substitutes deletes with an update that sets the designated
// field to the given value. The row stays queryable; only the flag flips.
func SoftDelete(entity, name, field string, value any) trigger.Policy {
	return trigger.Policy{
		Name:   name,
		Entity: entity,
		Ops:    trigger.Ops(trigger.OpDelete),
		Timing: trigger.Before,
		Kind:   trigger.KindTransform,
		Field:  field,
		Transform: func(m *trigger.Mutation) {
			m.Op = trigger.OpUpdate
			m.New = m.Old.Clone()
			m.New[field] = value
		},
	}
}

// Transform wraps an arbitrary rewrite function as a Before policy.
func Transform(entity, name string, ops trigger.OpSet, cond trigger.Condition, fn trigger.TransformFunc) trigger.Policy {
	return trigger.Policy{
		Name:      name,
		Entity:    entity,
		Ops:       ops,
		Timing:    trigger.Before,
		Kind:      trigger.KindTransform,
		Condition: cond,
		Transform: fn,
	}
}

// Versioned returns the two policies of a versioned entity, in the order
// they must be registered: a Protect that rejects direct edits of the
// version field, then a Transform that increments it on every update that
// changes anything else. A redundant save (no field changed) does not
// increment.
func Versioned(entity, field string) []trigger.Policy {
	protect := Protect(entity, "protect_"+field+"_edits",
		trigger.Ops(trigger.OpUpdate),
		condition.Old(field).DistinctFrom(condition.New(field)),
	)

	increment := trigger.Policy{
		Name:      "increment_" + field,
		Entity:    entity,
		Ops:       trigger.Ops(trigger.OpUpdate),
		Timing:    trigger.Before,
		Kind:      trigger.KindTransform,
		Condition: condition.RowDistinct(),
		Field:     field,
		Transform: func(m *trigger.Mutation) {
			m.New[field] = asInt(m.New[field]) + 1
		},
	}

	return []trigger.Policy{protect, increment}
}

// FSM restricts the field to the allow-listed value transitions during
// updates. Transitions not listed reject with an unknown-transition
// error; self-transitions reject too unless explicitly listed.
func FSM(entity, name, field string, transitions ...trigger.Transition) trigger.Policy {
	return trigger.Policy{
		Name:        name,
		Entity:      entity,
		Ops:         trigger.Ops(trigger.OpUpdate),
		Timing:      trigger.Before,
		Kind:        trigger.KindFSMGuard,
		Field:       field,
		Transitions: transitions,
	}
}

// T is shorthand for one FSM transition.
func T(from, to any) trigger.Transition {
	return trigger.Transition{From: from, To: to}
}

// asInt coerces the stored version counter to int64, treating anything
// non-numeric as zero.
func asInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
