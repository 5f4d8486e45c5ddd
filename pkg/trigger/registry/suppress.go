package registry

import (
	"context"
	"errors"
)

// ErrFrozen is returned by Register after Freeze.
var ErrFrozen = errors.New("registry is frozen")

// suppressKey is the context key for the suppression frame chain.
type suppressKey struct{}

// frame is one suppressed (entity, policy) pair. Frames form an immutable
// linked list hanging off the context, so concurrent units of work never
// observe each other's suppressions and unwinding is just dropping the
// derived context.
type frame struct {
	parent *frame
	entity string
	policy string
}

// WithSuppressed returns a context in which the named policy on the entity is
// ignored. The suppression lasts exactly as long as the derived context is
// in use:
//
//	ctx = registry.WithSuppressed(ctx, "app.OfficialInterface", "protect_inserts")
//	err := store.Insert(ctx, ...)
func WithSuppressed(ctx context.Context, entity, policy string) context.Context {
	parent, _ := ctx.Value(suppressKey{}).(*frame)
	return context.WithValue(ctx, suppressKey{}, &frame{
		parent: parent,
		entity: entity,
		policy: policy,
	})
}

// Suppressed runs fn with the named policy suppressed. The suppression is
// released on every exit path, including panics, because it only lives on the
// derived context passed to fn.
func Suppressed(ctx context.Context, entity, policy string, fn func(ctx context.Context) error) error {
	return fn(WithSuppressed(ctx, entity, policy))
}

// IsSuppressed reports whether the named policy on the entity is suppressed
// in the given unit of work.
func IsSuppressed(ctx context.Context, entity, policy string) bool {
	f, _ := ctx.Value(suppressKey{}).(*frame)
	for ; f != nil; f = f.parent {
		if f.entity == entity && f.policy == policy {
			return true
		}
	}
	return false
}
