package policies

import (
	"testing"

	"mercator-hq/tripwire/pkg/trigger"
)

func TestAppendOnly(t *testing.T) {
	p := AppendOnly("access_log", "append_only")

	if p.Kind != trigger.KindProtect || p.Timing != trigger.Before {
		t.Errorf("Unexpected shape: kind=%s timing=%s", p.Kind, p.Timing)
	}
	if p.Ops.Contains(trigger.OpInsert) {
		t.Error("Append-only must not cover inserts")
	}
	if !p.Ops.Contains(trigger.OpUpdate) || !p.Ops.Contains(trigger.OpDelete) {
		t.Error("Append-only must cover updates and deletes")
	}
}

func TestReadOnly_Condition(t *testing.T) {
	p := ReadOnly("post", "read_only", "author", "created_at")

	base := trigger.Row{"author": "ada", "created_at": "t0", "title": "a"}

	titleEdit := base.Clone()
	titleEdit["title"] = "b"
	if p.Condition.Eval(base, titleEdit) {
		t.Error("Editing an unguarded field should not match")
	}

	authorEdit := base.Clone()
	authorEdit["author"] = "bob"
	if !p.Condition.Eval(base, authorEdit) {
		t.Error("Editing a guarded field should match")
	}

	timeEdit := base.Clone()
	timeEdit["created_at"] = "t1"
	if !p.Condition.Eval(base, timeEdit) {
		t.Error("Editing any guarded field should match")
	}
}

func TestSoftDelete_Transform(t *testing.T) {
	p := SoftDelete("post", "soft_delete", "is_active", false)

	m := &trigger.Mutation{
		Entity: "post", Op: trigger.OpDelete,
		Old: trigger.Row{"title": "intro", "is_active": true},
	}
	p.Transform(m)

	if m.Op != trigger.OpUpdate {
		t.Errorf("Expected update after transform, got %s", m.Op)
	}
	if m.New["is_active"] != false {
		t.Errorf("Expected flag flipped, got %v", m.New["is_active"])
	}
	if m.New["title"] != "intro" {
		t.Error("Other fields must carry over from the old row")
	}
	if m.Old["is_active"] != true {
		t.Error("The old snapshot must stay untouched")
	}
}

func TestVersioned_Shape(t *testing.T) {
	ps := Versioned("wiki_page", "version")
	if len(ps) != 2 {
		t.Fatalf("Expected protect+increment pair, got %d policies", len(ps))
	}

	protect, increment := ps[0], ps[1]
	if protect.Kind != trigger.KindProtect {
		t.Errorf("First policy must be the protect, got %s", protect.Kind)
	}
	if increment.Kind != trigger.KindTransform {
		t.Errorf("Second policy must be the transform, got %s", increment.Kind)
	}

	// The increment coerces whatever numeric type the store returned.
	m := &trigger.Mutation{
		Entity: "wiki_page", Op: trigger.OpUpdate,
		Old: trigger.Row{"version": float64(2)},
		New: trigger.Row{"version": float64(2), "body": "x"},
	}
	increment.Transform(m)
	if m.New["version"] != int64(3) {
		t.Errorf("Expected version 3, got %v", m.New["version"])
	}
}

func TestFSM_Shape(t *testing.T) {
	p := FSM("article", "status_fsm", "status",
		T("unpublished", "published"),
	)

	if p.Kind != trigger.KindFSMGuard || p.Field != "status" {
		t.Errorf("Unexpected shape: kind=%s field=%s", p.Kind, p.Field)
	}
	if !p.AllowsTransition("unpublished", "published") {
		t.Error("Listed transition should be allowed")
	}
	if p.AllowsTransition("published", "unpublished") {
		t.Error("Unlisted transition should not be allowed")
	}
}

func TestHistoryConstructors(t *testing.T) {
	snap := Snapshot("wiki_page", "track", "wiki_page.snapshot")
	if snap.Timing != trigger.After || snap.Kind != trigger.KindAudit || snap.DiffOnly {
		t.Errorf("Unexpected snapshot shape: %+v", snap)
	}
	if !snap.Ops.Contains(trigger.OpInsert) || !snap.Ops.Contains(trigger.OpUpdate) {
		t.Error("Snapshot should cover inserts and updates")
	}

	diff := AfterUpdate("article", "track", "article.changed", nil)
	if !diff.DiffOnly {
		t.Error("AfterUpdate should record diffs only")
	}

	del := AfterDelete("post", "track", "post.deleted")
	if !del.Ops.Contains(trigger.OpDelete) || len(del.Ops) != 1 {
		t.Error("AfterDelete should cover deletes only")
	}
}
