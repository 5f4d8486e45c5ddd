// Tripwire is a trigger-style policy engine for row mutations.
//
// It intercepts inserts, updates, and deletes before they reach storage,
// enforcing protect, transform, state-machine, and audit policies declared
// per entity:
//   - Reject forbidden operations with structured violations
//   - Rewrite mutations in flight (soft delete, version counters)
//   - Restrict field values to allow-listed state transitions
//   - Record tamper-evident audit events with per-entity ordering
//
// Usage:
//
//	# Validate declarative policy files
//	tripwire lint --file policies.yaml
//
//	# Query the event log
//	tripwire events list --db events.db --entity order
//
//	# Export events for offline analysis
//	tripwire events export --db events.db --format csv --output events.csv
//
//	# Show version information
//	tripwire version
package main

func main() {
	Execute()
}
