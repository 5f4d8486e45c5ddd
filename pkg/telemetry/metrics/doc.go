// Package metrics exposes prometheus instrumentation for the interceptor
// and the event log: evaluation counts and latency, rejections, transforms,
// operation substitutions, and event append outcomes.
package metrics
