package condition

import (
	"mercator-hq/tripwire/pkg/trigger"
)

// errAbsentRef signals that a comparison referenced a field of an absent row.
// It bubbles to the top of Eval and turns the whole condition false.
type errAbsentRef struct{}

func (errAbsentRef) Error() string { return "reference into absent row" }

// Eval reports whether the condition holds for the given old/new snapshots.
// It implements trigger.Condition.
func (n *Node) Eval(old, new trigger.Row) bool {
	if n == nil {
		return true
	}
	matched, err := n.eval(old, new)
	if err != nil {
		return false
	}
	return matched
}

func (n *Node) eval(old, new trigger.Row) (bool, error) {
	switch n.Type {
	case TypeCompare:
		return n.evalCompare(old, new)
	case TypeDistinct:
		return n.evalDistinct(old, new)
	case TypeRowDistinct:
		return n.evalRowDistinct(old, new), nil
	case TypeAll:
		for _, c := range n.Children {
			matched, err := c.eval(old, new)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	case TypeAny:
		for _, c := range n.Children {
			matched, err := c.eval(old, new)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil
	case TypeNot:
		if len(n.Children) != 1 {
			return false, nil
		}
		matched, err := n.Children[0].eval(old, new)
		if err != nil {
			return false, err
		}
		return !matched, nil
	default:
		return false, nil
	}
}

// evalCompare evaluates left op right. A reference into an absent row fails
// the whole condition.
func (n *Node) evalCompare(old, new trigger.Row) (bool, error) {
	left, ok := resolve(n.Left, old, new)
	if !ok {
		return false, errAbsentRef{}
	}
	right, ok := resolve(n.Right, old, new)
	if !ok {
		return false, errAbsentRef{}
	}

	switch n.Operator {
	case OpEq:
		return trigger.Equal(left, right), nil
	case OpNe:
		return !trigger.Equal(left, right), nil
	case OpLt, OpLe, OpGt, OpGe:
		cmp, ordered := trigger.Compare(left, right)
		if !ordered {
			return false, nil
		}
		switch n.Operator {
		case OpLt:
			return cmp < 0, nil
		case OpLe:
			return cmp <= 0, nil
		case OpGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	default:
		return false, nil
	}
}

// evalDistinct evaluates the tri-valued IS DISTINCT FROM: absent-vs-present
// is distinct, absent-vs-absent is not, and nil equals nil.
func (n *Node) evalDistinct(old, new trigger.Row) (bool, error) {
	left, leftOK := resolve(n.Left, old, new)
	right, rightOK := resolve(n.Right, old, new)

	if !leftOK && !rightOK {
		return false, nil
	}
	if leftOK != rightOK {
		return true, nil
	}
	return !trigger.Equal(left, right), nil
}

// evalRowDistinct reports whether any field differs between old and new,
// skipping the Except list. An absent row is distinct from a present one;
// two absent rows are not distinct.
func (n *Node) evalRowDistinct(old, new trigger.Row) bool {
	if old == nil && new == nil {
		return false
	}
	if (old == nil) != (new == nil) {
		return true
	}

	skip := make(map[string]struct{}, len(n.Except))
	for _, f := range n.Except {
		skip[f] = struct{}{}
	}

	for _, name := range trigger.FieldNames(old, new) {
		if _, ok := skip[name]; ok {
			continue
		}
		oldVal, oldOK := old[name]
		newVal, newOK := new[name]
		if oldOK != newOK {
			return true
		}
		if !trigger.Equal(oldVal, newVal) {
			return true
		}
	}
	return false
}

// resolve reads an operand's value. For field references the second result is
// false when the referenced row is absent; a present row with a missing field
// yields a nil value, which is present-but-null.
func resolve(o Operand, old, new trigger.Row) (any, bool) {
	if o.Ref == nil {
		return o.Value, true
	}
	var row trigger.Row
	if o.Ref.Side == SideOld {
		row = old
	} else {
		row = new
	}
	if row == nil {
		return nil, false
	}
	return row[o.Ref.Field], true
}
