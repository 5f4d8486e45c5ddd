package policies

import "mercator-hq/tripwire/pkg/trigger"

// History-tracking sugar: audit policies in the shapes used for change
// tracking, named after what they capture.

// Snapshot emits a full-row event on every insert and update.
func Snapshot(entity, name, label string) trigger.Policy {
	return trigger.Policy{
		Name:   name,
		Entity: entity,
		Ops:    trigger.Ops(trigger.OpInsert, trigger.OpUpdate),
		Timing: trigger.After,
		Kind:   trigger.KindAudit,
		Label:  label,
	}
}

// AfterInsert emits a full-row event whenever a row is created.
func AfterInsert(entity, name, label string) trigger.Policy {
	return trigger.Policy{
		Name:   name,
		Entity: entity,
		Ops:    trigger.Ops(trigger.OpInsert),
		Timing: trigger.After,
		Kind:   trigger.KindAudit,
		Label:  label,
	}
}

// AfterUpdate emits a changed-fields diff event on updates matching the
// condition (nil means every update).
func AfterUpdate(entity, name, label string, cond trigger.Condition) trigger.Policy {
	return trigger.Policy{
		Name:      name,
		Entity:    entity,
		Ops:       trigger.Ops(trigger.OpUpdate),
		Timing:    trigger.After,
		Kind:      trigger.KindAudit,
		Label:     label,
		Condition: cond,
		DiffOnly:  true,
	}
}

// AfterDelete emits a last-known-state event when a row is deleted.
func AfterDelete(entity, name, label string) trigger.Policy {
	return trigger.Policy{
		Name:   name,
		Entity: entity,
		Ops:    trigger.Ops(trigger.OpDelete),
		Timing: trigger.After,
		Kind:   trigger.KindAudit,
		Label:  label,
	}
}
