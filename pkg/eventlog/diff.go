package eventlog

import "mercator-hq/tripwire/pkg/trigger"

// Diff computes the field-level before/after mapping between two snapshots,
// restricted to fields whose values changed under the engine's equality
// semantics. Unchanged fields are omitted; a field present on only one side
// appears with a nil counterpart.
func Diff(previous, current trigger.Row) map[string]FieldChange {
	changes := make(map[string]FieldChange)

	for _, name := range trigger.FieldNames(previous, current) {
		before, beforeOK := previous[name]
		after, afterOK := current[name]
		if beforeOK && afterOK && trigger.Equal(before, after) {
			continue
		}
		if !beforeOK && !afterOK {
			continue
		}
		changes[name] = FieldChange{Before: before, After: after}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}
