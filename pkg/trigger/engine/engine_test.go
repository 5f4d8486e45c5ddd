package engine

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/tripwire/pkg/eventlog"
	elstorage "mercator-hq/tripwire/pkg/eventlog/storage"
	"mercator-hq/tripwire/pkg/trigger"
	"mercator-hq/tripwire/pkg/trigger/condition"
	"mercator-hq/tripwire/pkg/trigger/policies"
	"mercator-hq/tripwire/pkg/trigger/registry"
)

// captureAppender records events synchronously for assertions.
type captureAppender struct {
	events []*eventlog.Event
	fail   error
}

func (c *captureAppender) Append(ctx context.Context, ev *eventlog.Event) error {
	if c.fail != nil {
		return c.fail
	}
	c.events = append(c.events, ev)
	return nil
}

func newTestEngine(t *testing.T, appender eventlog.Appender, ps ...trigger.Policy) *Engine {
	t.Helper()
	reg := registry.New()
	if err := reg.RegisterAll(ps...); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	return New(reg, appender)
}

func TestBefore_ProtectRejects(t *testing.T) {
	eng := newTestEngine(t, nil,
		policies.Protect("species", "protect_deletes", trigger.Ops(trigger.OpDelete), nil))

	m := &trigger.Mutation{
		Entity: "species",
		Op:     trigger.OpDelete,
		Key:    "1",
		Old:    trigger.Row{"name": "kakapo"},
	}

	err := eng.Before(context.Background(), m)
	var violation *trigger.PolicyViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("Expected PolicyViolationError, got %v", err)
	}
	if violation.Policy != "protect_deletes" || violation.Op != trigger.OpDelete {
		t.Errorf("Unexpected violation details: %+v", violation)
	}

	// Inserts are untouched.
	insert := &trigger.Mutation{Entity: "species", Op: trigger.OpInsert, New: trigger.Row{"name": "kea"}}
	if err := eng.Before(context.Background(), insert); err != nil {
		t.Errorf("Insert should pass: %v", err)
	}
}

func TestBefore_ConditionGates(t *testing.T) {
	eng := newTestEngine(t, nil,
		policies.Protect("order", "protect_shipped", trigger.Ops(trigger.OpUpdate),
			condition.Old("status").Eq("shipped")))

	pending := &trigger.Mutation{
		Entity: "order", Op: trigger.OpUpdate,
		Old: trigger.Row{"status": "pending"},
		New: trigger.Row{"status": "shipped"},
	}
	if err := eng.Before(context.Background(), pending); err != nil {
		t.Errorf("Non-matching condition should pass: %v", err)
	}

	shipped := &trigger.Mutation{
		Entity: "order", Op: trigger.OpUpdate,
		Old: trigger.Row{"status": "shipped"},
		New: trigger.Row{"status": "pending"},
	}
	if err := eng.Before(context.Background(), shipped); err == nil {
		t.Error("Matching condition should reject")
	}
}

func TestBefore_SoftDeleteSubstitution(t *testing.T) {
	eng := newTestEngine(t, nil,
		policies.SoftDelete("post", "soft_delete", "is_active", false))

	m := &trigger.Mutation{
		Entity: "post", Op: trigger.OpDelete, Key: "7",
		Old: trigger.Row{"title": "intro", "is_active": true},
	}

	if err := eng.Before(context.Background(), m); err != nil {
		t.Fatalf("Before failed: %v", err)
	}
	if m.Op != trigger.OpUpdate {
		t.Errorf("Expected op substituted to update, got %s", m.Op)
	}
	if m.SourceOp != trigger.OpDelete {
		t.Errorf("Expected SourceOp delete, got %s", m.SourceOp)
	}
	if !m.Substituted() {
		t.Error("Expected mutation to report substitution")
	}
	if m.New["is_active"] != false || m.New["title"] != "intro" {
		t.Errorf("Expected flipped flag on a copy of the old row, got %v", m.New)
	}
}

func TestBefore_TransformChaining(t *testing.T) {
	// Two transforms registered in order; the second sees the first's output.
	first := policies.Transform("doc", "normalize", trigger.Ops(trigger.OpUpdate), nil,
		func(m *trigger.Mutation) { m.New["title"] = "normalized" })
	second := policies.Transform("doc", "stamp", trigger.Ops(trigger.OpUpdate),
		condition.New("title").Eq("normalized"),
		func(m *trigger.Mutation) { m.New["stamped"] = true })

	eng := newTestEngine(t, nil, first, second)

	m := &trigger.Mutation{
		Entity: "doc", Op: trigger.OpUpdate,
		Old: trigger.Row{"title": "Raw"},
		New: trigger.Row{"title": "Raw"},
	}
	if err := eng.Before(context.Background(), m); err != nil {
		t.Fatalf("Before failed: %v", err)
	}
	if m.New["stamped"] != true {
		t.Error("Second transform should observe the first's rewrite")
	}
}

func TestBefore_Versioned(t *testing.T) {
	eng := newTestEngine(t, nil, policies.Versioned("wiki_page", "version")...)

	// A content edit increments the counter.
	edit := &trigger.Mutation{
		Entity: "wiki_page", Op: trigger.OpUpdate,
		Old: trigger.Row{"body": "one", "version": 3},
		New: trigger.Row{"body": "two", "version": 3},
	}
	if err := eng.Before(context.Background(), edit); err != nil {
		t.Fatalf("Edit should pass: %v", err)
	}
	if edit.New["version"] != int64(4) {
		t.Errorf("Expected version 4, got %v", edit.New["version"])
	}

	// A redundant save does not increment.
	redundant := &trigger.Mutation{
		Entity: "wiki_page", Op: trigger.OpUpdate,
		Old: trigger.Row{"body": "one", "version": 3},
		New: trigger.Row{"body": "one", "version": 3},
	}
	if err := eng.Before(context.Background(), redundant); err != nil {
		t.Fatalf("Redundant save should pass: %v", err)
	}
	if redundant.New["version"] != 3 {
		t.Errorf("Redundant save must not increment, got %v", redundant.New["version"])
	}

	// A direct version edit rejects before any transform runs.
	direct := &trigger.Mutation{
		Entity: "wiki_page", Op: trigger.OpUpdate,
		Old: trigger.Row{"body": "one", "version": 3},
		New: trigger.Row{"body": "one", "version": 9},
	}
	if err := eng.Before(context.Background(), direct); err == nil {
		t.Error("Direct version edit should reject")
	}
}

func TestBefore_FSMGuard(t *testing.T) {
	eng := newTestEngine(t, nil,
		policies.FSM("article", "status_fsm", "status",
			policies.T("unpublished", "published"),
			policies.T("published", "inactive"),
		))

	allowed := &trigger.Mutation{
		Entity: "article", Op: trigger.OpUpdate,
		Old: trigger.Row{"status": "unpublished"},
		New: trigger.Row{"status": "published"},
	}
	if err := eng.Before(context.Background(), allowed); err != nil {
		t.Errorf("Listed transition should pass: %v", err)
	}

	denied := &trigger.Mutation{
		Entity: "article", Op: trigger.OpUpdate,
		Old: trigger.Row{"status": "published"},
		New: trigger.Row{"status": "unpublished"},
	}
	err := eng.Before(context.Background(), denied)

	var unknown *trigger.UnknownTransitionError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownTransitionError, got %v", err)
	}
	if unknown.Field != "status" || unknown.From != "published" || unknown.To != "unpublished" {
		t.Errorf("Unexpected transition details: %+v", unknown)
	}

	// The specific error still matches the generic violation type.
	var violation *trigger.PolicyViolationError
	if !errors.As(err, &violation) {
		t.Error("UnknownTransitionError should match PolicyViolationError")
	}

	// Self-transitions reject unless listed.
	self := &trigger.Mutation{
		Entity: "article", Op: trigger.OpUpdate,
		Old: trigger.Row{"status": "published"},
		New: trigger.Row{"status": "published"},
	}
	if err := eng.Before(context.Background(), self); err == nil {
		t.Error("Unlisted self-transition should reject")
	}
}

func TestBefore_Suppression(t *testing.T) {
	eng := newTestEngine(t, nil,
		policies.Protect("article", "official_insert_only", trigger.Ops(trigger.OpInsert), nil))

	m := func() *trigger.Mutation {
		return &trigger.Mutation{Entity: "article", Op: trigger.OpInsert, New: trigger.Row{"a": 1}}
	}

	if err := eng.Before(context.Background(), m()); err == nil {
		t.Fatal("Unsuppressed insert should reject")
	}

	ctx := registry.WithSuppressed(context.Background(), "article", "official_insert_only")
	if err := eng.Before(ctx, m()); err != nil {
		t.Errorf("Suppressed insert should pass: %v", err)
	}

	// The suppression ends with the derived context.
	if err := eng.Before(context.Background(), m()); err == nil {
		t.Error("Suppression must not outlive its scope")
	}
}

func TestBefore_ShapeValidation(t *testing.T) {
	eng := newTestEngine(t, nil)

	tests := []struct {
		name string
		m    *trigger.Mutation
	}{
		{"nil mutation", nil},
		{"empty entity", &trigger.Mutation{Op: trigger.OpInsert, New: trigger.Row{}}},
		{"bad op", &trigger.Mutation{Entity: "e", Op: trigger.Op("upsert"), New: trigger.Row{}}},
		{"insert without new", &trigger.Mutation{Entity: "e", Op: trigger.OpInsert}},
		{"update without old", &trigger.Mutation{Entity: "e", Op: trigger.OpUpdate, New: trigger.Row{}}},
		{"delete without old", &trigger.Mutation{Entity: "e", Op: trigger.OpDelete}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := eng.Before(context.Background(), tt.m); err == nil {
				t.Error("Expected shape error")
			}
		})
	}
}

func TestAfter_AuditSnapshot(t *testing.T) {
	capture := &captureAppender{}
	eng := newTestEngine(t, capture,
		policies.Snapshot("wiki_page", "track", "wiki_page.snapshot"))

	ctx := eventlog.WithMeta(context.Background(), map[string]string{"user": "ada"})
	m := &trigger.Mutation{
		Entity: "wiki_page", Op: trigger.OpUpdate, Key: "9",
		Old: trigger.Row{"body": "one"},
		New: trigger.Row{"body": "two"},
	}
	eng.After(ctx, m)

	if len(capture.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(capture.events))
	}
	ev := capture.events[0]
	if ev.Label != "wiki_page.snapshot" || ev.EntityID != "9" || ev.Op != trigger.OpUpdate {
		t.Errorf("Unexpected event header: %+v", ev)
	}
	if ev.Snapshot["body"] != "two" {
		t.Errorf("Expected committed new row in snapshot, got %v", ev.Snapshot)
	}
	if ev.Meta["user"] != "ada" {
		t.Errorf("Expected context metadata on event, got %v", ev.Meta)
	}

	// Snapshots alias nothing: mutating the event must not touch the row.
	ev.Snapshot["body"] = "tampered"
	if m.New["body"] != "two" {
		t.Error("Event snapshot must be a copy of the row")
	}
}

func TestAfter_DirectStorageStampsEvents(t *testing.T) {
	// Passing a Storage as the appender skips the recorder; stored events
	// must still come back with an id, sequence, and timestamp.
	store := elstorage.NewMemoryStorage()
	eng := newTestEngine(t, store,
		policies.Snapshot("wiki_page", "track", "wiki_page.snapshot"))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		eng.After(ctx, &trigger.Mutation{
			Entity: "wiki_page", Op: trigger.OpUpdate, Key: "9",
			Old: trigger.Row{"body": "one"},
			New: trigger.Row{"body": "two"},
		})
	}

	got, err := store.Query(ctx, &eventlog.Query{Entity: "wiki_page"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	for i, ev := range got {
		if ev.ID == "" {
			t.Error("Expected a stamped event id")
		}
		if ev.CreatedAt.IsZero() {
			t.Error("Expected a stamped creation time")
		}
		if ev.Seq != uint64(i+1) {
			t.Errorf("Expected seq %d, got %d", i+1, ev.Seq)
		}
	}

	after, _ := store.Query(ctx, &eventlog.Query{Entity: "wiki_page", AfterSeq: 1})
	if len(after) != 1 || after[0].Seq != 2 {
		t.Errorf("AfterSeq restart should deliver only seq 2, got %v", after)
	}
}

func TestAfter_DeleteCapturesLastState(t *testing.T) {
	capture := &captureAppender{}
	eng := newTestEngine(t, capture,
		policies.AfterDelete("post", "track_delete", "post.deleted"))

	m := &trigger.Mutation{
		Entity: "post", Op: trigger.OpDelete, Key: "7",
		Old: trigger.Row{"title": "last words"},
	}
	eng.After(context.Background(), m)

	if len(capture.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(capture.events))
	}
	if capture.events[0].Snapshot["title"] != "last words" {
		t.Errorf("Delete event should carry the old row, got %v", capture.events[0].Snapshot)
	}
}

func TestAfter_ConditionalDiff(t *testing.T) {
	capture := &captureAppender{}
	eng := newTestEngine(t, capture,
		policies.AfterUpdate("article", "track_status", "article.status_changed",
			condition.Old("status").DistinctFrom(condition.New("status"))))

	unchanged := &trigger.Mutation{
		Entity: "article", Op: trigger.OpUpdate, Key: "a1",
		Old: trigger.Row{"status": "published", "title": "a"},
		New: trigger.Row{"status": "published", "title": "b"},
	}
	eng.After(context.Background(), unchanged)
	if len(capture.events) != 0 {
		t.Fatal("Unchanged status should not emit")
	}

	changed := &trigger.Mutation{
		Entity: "article", Op: trigger.OpUpdate, Key: "a1",
		Old: trigger.Row{"status": "published", "title": "a"},
		New: trigger.Row{"status": "inactive", "title": "a"},
	}
	eng.After(context.Background(), changed)
	if len(capture.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(capture.events))
	}

	ev := capture.events[0]
	if ev.Snapshot != nil {
		t.Error("Diff-only event should carry no snapshot")
	}
	change, ok := ev.Diff["status"]
	if !ok || change.Before != "published" || change.After != "inactive" {
		t.Errorf("Unexpected diff: %v", ev.Diff)
	}
	if _, ok := ev.Diff["title"]; ok {
		t.Error("Unchanged fields must not appear in the diff")
	}
}

func TestAfter_AppendFailureIsIsolated(t *testing.T) {
	var reported *trigger.EventAppendError
	capture := &captureAppender{fail: errors.New("disk full")}

	reg := registry.New()
	if err := reg.Register(policies.Snapshot("wiki_page", "track", "wiki_page.snapshot")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	eng := New(reg, capture, WithAppendErrorHandler(func(e *trigger.EventAppendError) {
		reported = e
	}))

	m := &trigger.Mutation{
		Entity: "wiki_page", Op: trigger.OpInsert, Key: "9",
		New: trigger.Row{"body": "one"},
	}

	// After never panics or propagates; the handler observes the failure.
	eng.After(context.Background(), m)

	if reported == nil {
		t.Fatal("Expected append error handler to fire")
	}
	if reported.Label != "wiki_page.snapshot" || reported.Entity != "wiki_page" {
		t.Errorf("Unexpected append error details: %+v", reported)
	}
}

func TestAfter_NilAppenderSkipsAudit(t *testing.T) {
	eng := newTestEngine(t, nil,
		policies.Snapshot("wiki_page", "track", "wiki_page.snapshot"))

	m := &trigger.Mutation{
		Entity: "wiki_page", Op: trigger.OpInsert, Key: "9",
		New: trigger.Row{"body": "one"},
	}
	// Must not panic.
	eng.After(context.Background(), m)
}

func TestAfter_SuppressionSkipsAudit(t *testing.T) {
	capture := &captureAppender{}
	eng := newTestEngine(t, capture,
		policies.Snapshot("wiki_page", "track", "wiki_page.snapshot"))

	ctx := registry.WithSuppressed(context.Background(), "wiki_page", "track")
	m := &trigger.Mutation{
		Entity: "wiki_page", Op: trigger.OpInsert, Key: "9",
		New: trigger.Row{"body": "one"},
	}
	eng.After(ctx, m)

	if len(capture.events) != 0 {
		t.Errorf("Suppressed audit policy should not emit, got %d events", len(capture.events))
	}
}
