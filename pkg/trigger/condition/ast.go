package condition

import (
	"fmt"
	"strings"
)

// NodeType represents the type of a condition expression node.
type NodeType string

const (
	TypeCompare     NodeType = "compare"      // left op right
	TypeDistinct    NodeType = "distinct"     // left IS DISTINCT FROM right
	TypeRowDistinct NodeType = "row_distinct" // any field differs between old and new
	TypeAll         NodeType = "all"          // AND of children
	TypeAny         NodeType = "any"          // OR of children
	TypeNot         NodeType = "not"          // NOT of single child
)

// Operator represents a comparison operator.
type Operator string

const (
	OpEq Operator = "eq"
	OpNe Operator = "ne"
	OpLt Operator = "lt"
	OpLe Operator = "le"
	OpGt Operator = "gt"
	OpGe Operator = "ge"
)

// Side names which row snapshot a field reference reads from.
type Side string

const (
	SideOld Side = "old"
	SideNew Side = "new"
)

// Operand is one side of a comparison: either a field reference into the old
// or new row, or a literal value.
type Operand struct {
	// Ref is non-nil for field references.
	Ref *FieldRef

	// Value is the literal (ignored when Ref is set).
	Value any
}

// FieldRef is a path into one of the two row snapshots, e.g. old.created_at.
type FieldRef struct {
	Side  Side
	Field string
}

// String renders the reference as "old.field" / "new.field".
func (r *FieldRef) String() string {
	return string(r.Side) + "." + r.Field
}

// Node is one expression in the condition tree.
type Node struct {
	Type NodeType

	// Left/Operator/Right apply to compare and distinct nodes.
	Left     Operand
	Operator Operator
	Right    Operand

	// Except lists fields ignored by a row_distinct node.
	Except []string

	// Children apply to all/any/not nodes. Not takes exactly one child.
	Children []*Node
}

// String renders the tree in a compact SQL-ish form, for logs and lint
// output.
func (n *Node) String() string {
	if n == nil {
		return "true"
	}
	switch n.Type {
	case TypeCompare:
		return fmt.Sprintf("%s %s %s", operandString(n.Left), n.Operator, operandString(n.Right))
	case TypeDistinct:
		return fmt.Sprintf("%s is distinct from %s", operandString(n.Left), operandString(n.Right))
	case TypeRowDistinct:
		if len(n.Except) > 0 {
			return fmt.Sprintf("old.* is distinct from new.* (except %s)", strings.Join(n.Except, ", "))
		}
		return "old.* is distinct from new.*"
	case TypeAll, TypeAny:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}
		sep := " and "
		if n.Type == TypeAny {
			sep = " or "
		}
		return "(" + strings.Join(parts, sep) + ")"
	case TypeNot:
		if len(n.Children) == 1 {
			return "not " + n.Children[0].String()
		}
		return "not ()"
	default:
		return fmt.Sprintf("<%s>", n.Type)
	}
}

func operandString(o Operand) string {
	if o.Ref != nil {
		return o.Ref.String()
	}
	if s, ok := o.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", o.Value)
}

// Validate checks structural well-formedness of the tree.
func (n *Node) Validate() error {
	if n == nil {
		return nil
	}
	switch n.Type {
	case TypeCompare:
		switch n.Operator {
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		default:
			return fmt.Errorf("unknown operator %q", n.Operator)
		}
		if n.Left.Ref == nil && n.Right.Ref == nil {
			return fmt.Errorf("comparison has no field reference")
		}
	case TypeDistinct:
		if n.Left.Ref == nil && n.Right.Ref == nil {
			return fmt.Errorf("distinctness has no field reference")
		}
	case TypeRowDistinct:
		// Nothing to check; Except may be empty.
	case TypeAll, TypeAny:
		if len(n.Children) == 0 {
			return fmt.Errorf("%s node has no children", n.Type)
		}
		for _, c := range n.Children {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	case TypeNot:
		if len(n.Children) != 1 {
			return fmt.Errorf("not node must have exactly one child, got %d", len(n.Children))
		}
		return n.Children[0].Validate()
	default:
		return fmt.Errorf("unknown condition type %q", n.Type)
	}
	return nil
}
