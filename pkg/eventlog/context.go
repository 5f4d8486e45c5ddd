package eventlog

import "context"

// metaKey is the context key for caller-supplied event metadata.
type metaKey struct{}

// WithMeta attaches unit-of-work metadata (current user, request id, ...) to
// the context. Every event appended within this unit of work carries a copy.
// Nested calls merge, with inner keys winning.
func WithMeta(ctx context.Context, meta map[string]string) context.Context {
	if len(meta) == 0 {
		return ctx
	}
	merged := make(map[string]string)
	if parent, ok := ctx.Value(metaKey{}).(map[string]string); ok {
		for k, v := range parent {
			merged[k] = v
		}
	}
	for k, v := range meta {
		merged[k] = v
	}
	return context.WithValue(ctx, metaKey{}, merged)
}

// MetaFromContext returns the metadata attached to the unit of work, or nil.
// The returned map must not be mutated.
func MetaFromContext(ctx context.Context) map[string]string {
	meta, _ := ctx.Value(metaKey{}).(map[string]string)
	return meta
}
