// Package recorder provides the asynchronous event appender used between the
// interceptor and event storage. Identity, sequence, timestamp, and
// unit-of-work metadata are assigned synchronously so ordering is fixed at
// append time; the storage write happens on a background worker that drains
// fully on close.
package recorder
