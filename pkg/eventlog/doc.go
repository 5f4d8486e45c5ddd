// Package eventlog defines the append-only audit event store fed by Audit
// policies: the Event record, the Storage interface, query shapes, and
// field-level diffing between snapshots.
//
// Events are immutable once appended. Ordering is per entity: each event
// carries a creation timestamp and a per-entity monotonic sequence number
// used as the tie-break within one entity's stream; there is no global total
// order across entities.
//
// Backends live in eventlog/storage (memory, sqlite), the async appender in
// eventlog/recorder, retention pruning in eventlog/retention, and JSON/CSV
// export in eventlog/export.
package eventlog
