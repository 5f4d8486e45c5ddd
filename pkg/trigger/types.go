package trigger

// Op identifies a row mutation kind.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Valid returns true if the op is one of insert, update, delete.
func (o Op) Valid() bool {
	return o == OpInsert || o == OpUpdate || o == OpDelete
}

// OpSet is the set of mutation kinds a policy applies to.
type OpSet []Op

// Ops builds an OpSet from the given operations.
func Ops(ops ...Op) OpSet {
	return OpSet(ops)
}

// Contains returns true if the set includes the given op.
func (s OpSet) Contains(op Op) bool {
	for _, o := range s {
		if o == op {
			return true
		}
	}
	return false
}

// AllOps is the set covering insert, update, and delete.
func AllOps() OpSet {
	return Ops(OpInsert, OpUpdate, OpDelete)
}

// Timing says whether a policy runs before or after the mutation commits.
type Timing string

const (
	Before Timing = "before"
	After  Timing = "after"
)

// Kind is the enforcement variant of a policy.
type Kind string

const (
	// KindProtect rejects the mutation when its condition holds.
	KindProtect Kind = "protect"

	// KindTransform rewrites the proposed new row, or substitutes the
	// operation itself, before commit. Never rejects.
	KindTransform Kind = "transform"

	// KindFSMGuard rejects unless the guarded field's (old, new) value pair
	// is in the allow-listed transition set.
	KindFSMGuard Kind = "fsm"

	// KindAudit appends an immutable event record after commit. Never
	// rejects; append failures are reported, not propagated.
	KindAudit Kind = "audit"
)

// Row is a snapshot of one entity row's field values. Rows handed to the
// interceptor are never aliased with live storage: callers pass copies and
// the engine clones before rewriting.
type Row map[string]any

// Clone returns a shallow copy of the row. Field values are snapshots
// already, so a shallow copy is sufficient.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FieldNames returns the union of field names present in the given rows.
func FieldNames(rows ...Row) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range rows {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	return names
}

// Mutation is one proposed insert, update, or delete against a single entity
// row. Old is absent for inserts, New is absent for deletes. Transform
// policies may rewrite New in place and may substitute Op (soft delete turns
// a delete into an update); the engine records the original operation in
// SourceOp when it does.
type Mutation struct {
	// Entity is the target entity name.
	Entity string

	// Op is the mutation kind. A Transform policy may substitute it.
	Op Op

	// SourceOp is the operation as proposed by the caller. It differs from
	// Op only after a substitution.
	SourceOp Op

	// Key is the row's stable identity key.
	Key string

	// Old is the pre-mutation snapshot (nil for inserts).
	Old Row

	// New is the proposed post-mutation snapshot (nil for deletes).
	New Row
}

// Substituted returns true if a Transform policy replaced the caller's
// operation with a different one.
func (m *Mutation) Substituted() bool {
	return m.SourceOp != "" && m.SourceOp != m.Op
}

// Condition is a boolean predicate over the old/new row pair. Implementations
// must be pure: identical inputs always yield identical output. The tree
// implementation lives in the condition package; a nil Condition on a policy
// means implicitly true.
type Condition interface {
	// Eval reports whether the condition holds for the given snapshots.
	// Old is nil for inserts and new is nil for deletes; a condition that
	// references an absent row's field evaluates to false rather than
	// erroring, except for distinctness, which treats an absent side as
	// distinct from any present value.
	Eval(old, new Row) bool
}

// TransformFunc rewrites the proposed mutation before commit. It may only
// touch the mutation it is handed: rewrite m.New, or substitute m.Op.
// Historical rows are out of reach by construction.
type TransformFunc func(m *Mutation)

// Transition is one allow-listed (from, to) value pair for an FSMGuard
// policy. Matching is exact; self-transitions must be listed explicitly.
type Transition struct {
	From any
	To   any
}

// Policy is a named, declarative rule attached to an entity. Policies are
// immutable once registered.
type Policy struct {
	// Name is unique per entity. Registering a duplicate fails.
	Name string

	// Entity is the target entity name.
	Entity string

	// Ops is the set of mutation kinds the policy applies to.
	Ops OpSet

	// Timing is Before for Protect, Transform, and FSMGuard; After for Audit.
	Timing Timing

	// Condition gates the policy. Nil means always applicable.
	Condition Condition

	// Kind selects the enforcement variant.
	Kind Kind

	// Transform is the rewrite function (KindTransform only).
	Transform TransformFunc

	// Field is the guarded field (KindFSMGuard) or has kind-specific meaning
	// for canned constructors.
	Field string

	// Transitions is the allow-list (KindFSMGuard only).
	Transitions []Transition

	// Label names the emitted event stream (KindAudit only).
	Label string

	// DiffOnly makes audit events carry a changed-field diff instead of a
	// full row snapshot (KindAudit only).
	DiffOnly bool
}

// AllowsTransition reports whether the (from, to) pair is in the policy's
// allow-list. Values compare by the engine-wide equality semantics.
func (p *Policy) AllowsTransition(from, to any) bool {
	for _, t := range p.Transitions {
		if Equal(t.From, from) && Equal(t.To, to) {
			return true
		}
	}
	return false
}
