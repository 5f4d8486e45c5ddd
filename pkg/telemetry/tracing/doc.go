// Package tracing wraps the OpenTelemetry SDK for the interceptor: one span
// per intercepted mutation, carrying entity, operation, and decision
// attributes. When tracing is disabled a noop tracer keeps the overhead
// negligible.
package tracing
