package condition

import (
	"testing"

	"mercator-hq/tripwire/pkg/trigger"
)

func TestEval_Comparisons(t *testing.T) {
	old := trigger.Row{"count": 5, "status": "active"}
	new := trigger.Row{"count": 7, "status": "active"}

	tests := []struct {
		name string
		node *Node
		want bool
	}{
		{"eq literal match", New("status").Eq("active"), true},
		{"eq literal mismatch", New("status").Eq("inactive"), false},
		{"ne", New("status").Ne("inactive"), true},
		{"lt", Old("count").Lt(6), true},
		{"le equal", Old("count").Le(5), true},
		{"gt cross row", New("count").Gt(Old("count")), true},
		{"ge false", Old("count").Ge(6), false},
		{"numeric widening", New("count").Eq(7.0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Eval(old, new); got != tt.want {
				t.Errorf("Eval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEval_NilNodeIsTrue(t *testing.T) {
	var n *Node
	if !n.Eval(nil, trigger.Row{"a": 1}) {
		t.Error("nil condition should evaluate true")
	}
}

func TestEval_AbsentRowReference(t *testing.T) {
	// Comparisons that reference a field of an absent row fail the whole
	// condition, even under negation.
	new := trigger.Row{"count": 3}

	cmp := Old("count").Eq(3)
	if cmp.Eval(nil, new) {
		t.Error("comparison against absent old row should be false")
	}
	if Not(cmp).Eval(nil, new) {
		t.Error("negation of an absent-row comparison should still be false")
	}
	if Any(cmp, New("count").Eq(3)).Eval(nil, new) {
		t.Error("absent-row reference should fail the enclosing condition")
	}
}

func TestEval_Distinct(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		old  trigger.Row
		new  trigger.Row
		want bool
	}{
		{"both nil values not distinct",
			Old("f").DistinctFrom(New("f")),
			trigger.Row{"f": nil}, trigger.Row{"f": nil}, false},
		{"nil vs value distinct",
			Old("f").DistinctFrom(New("f")),
			trigger.Row{"f": nil}, trigger.Row{"f": 1}, true},
		{"equal values not distinct",
			Old("f").DistinctFrom(New("f")),
			trigger.Row{"f": "x"}, trigger.Row{"f": "x"}, false},
		{"changed values distinct",
			Old("f").DistinctFrom(New("f")),
			trigger.Row{"f": "x"}, trigger.Row{"f": "y"}, true},
		{"absent old row distinct from present",
			Old("f").DistinctFrom(New("f")),
			nil, trigger.Row{"f": 1}, true},
		{"both rows absent not distinct",
			Old("f").DistinctFrom(New("f")),
			nil, nil, false},
		{"distinct from literal",
			New("f").DistinctFrom(42),
			nil, trigger.Row{"f": 41}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Eval(tt.old, tt.new); got != tt.want {
				t.Errorf("Eval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEval_RowDistinct(t *testing.T) {
	base := trigger.Row{"a": 1, "b": "x"}

	if RowDistinct().Eval(base, base.Clone()) {
		t.Error("identical rows should not be distinct")
	}
	if !RowDistinct().Eval(base, trigger.Row{"a": 2, "b": "x"}) {
		t.Error("changed field should make rows distinct")
	}
	if !RowDistinct().Eval(base, trigger.Row{"a": 1}) {
		t.Error("removed field should make rows distinct")
	}
	if RowDistinct("a").Eval(base, trigger.Row{"a": 99, "b": "x"}) {
		t.Error("excepted field changes should be ignored")
	}
	if !RowDistinct().Eval(nil, base) {
		t.Error("absent old row should be distinct from present new row")
	}
	if RowDistinct().Eval(nil, nil) {
		t.Error("two absent rows should not be distinct")
	}
}

func TestEval_Combinators(t *testing.T) {
	old := trigger.Row{"a": 1}
	new := trigger.Row{"a": 2}

	all := All(Old("a").Eq(1), New("a").Eq(2))
	if !all.Eval(old, new) {
		t.Error("All with matching children should be true")
	}

	any := Any(Old("a").Eq(9), New("a").Eq(2))
	if !any.Eval(old, new) {
		t.Error("Any with one matching child should be true")
	}

	if Not(Old("a").Eq(1)).Eval(old, new) {
		t.Error("Not of a true child should be false")
	}

	// Empty combinators follow AND/OR identities.
	if !All().Eval(old, new) {
		t.Error("empty All should be true")
	}
	if Any().Eval(old, new) {
		t.Error("empty Any should be false")
	}
}

func TestEval_UnorderedTypesDoNotMatch(t *testing.T) {
	old := trigger.Row{"a": "text"}
	new := trigger.Row{"a": 5}
	if Old("a").Lt(New("a")).Eval(old, new) {
		t.Error("unordered operands should not satisfy an ordering comparison")
	}
}
