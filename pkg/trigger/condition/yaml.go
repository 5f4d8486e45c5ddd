package condition

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlNode is the on-disk shape of a condition node. Exactly one of the
// combinator keys (all/any/not/row_distinct) or the comparison keys
// (field/op/...) is expected:
//
//	all:
//	  - field: old.created_at
//	    op: distinct_from
//	    ref: new.created_at
//	  - field: new.int_field
//	    op: lt
//	    value: 0
//	row_distinct:
//	  except: [version]
type yamlNode struct {
	All []*Node  `yaml:"all"`
	Any []*Node  `yaml:"any"`
	Not *Node    `yaml:"not"`
	Row *yamlRow `yaml:"row_distinct"`

	Field string     `yaml:"field"`
	Op    string     `yaml:"op"`
	Value *yaml.Node `yaml:"value"`
	Ref   string     `yaml:"ref"`
}

type yamlRow struct {
	Except []string `yaml:"except"`
}

// UnmarshalYAML implements yaml.Unmarshaler for condition trees.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var raw yamlNode
	if err := value.Decode(&raw); err != nil {
		return err
	}

	switch {
	case len(raw.All) > 0:
		*n = Node{Type: TypeAll, Children: raw.All}
	case len(raw.Any) > 0:
		*n = Node{Type: TypeAny, Children: raw.Any}
	case raw.Not != nil:
		*n = Node{Type: TypeNot, Children: []*Node{raw.Not}}
	case raw.Row != nil:
		*n = Node{Type: TypeRowDistinct, Except: raw.Row.Except}
	case raw.Field != "":
		node, err := raw.comparison()
		if err != nil {
			return err
		}
		*n = *node
	default:
		return fmt.Errorf("condition node needs one of all/any/not/row_distinct/field")
	}

	return n.Validate()
}

// comparison builds a compare or distinct node from the flat yaml form.
func (raw *yamlNode) comparison() (*Node, error) {
	left, err := parseRef(raw.Field)
	if err != nil {
		return nil, err
	}

	var right Operand
	switch {
	case raw.Ref != "":
		ref, err := parseRef(raw.Ref)
		if err != nil {
			return nil, err
		}
		right = Operand{Ref: ref}
	case raw.Value != nil:
		var v any
		if err := raw.Value.Decode(&v); err != nil {
			return nil, err
		}
		right = Operand{Value: v}
	default:
		return nil, fmt.Errorf("comparison on %q needs value or ref", raw.Field)
	}

	op := raw.Op
	if op == "" {
		op = string(OpEq)
	}
	if op == "distinct_from" {
		return &Node{Type: TypeDistinct, Left: Operand{Ref: left}, Right: right}, nil
	}

	switch Operator(op) {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return &Node{Type: TypeCompare, Left: Operand{Ref: left}, Operator: Operator(op), Right: right}, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

// parseRef parses "old.field" / "new.field" paths.
func parseRef(path string) (*FieldRef, error) {
	side, field, ok := strings.Cut(path, ".")
	if !ok || field == "" {
		return nil, fmt.Errorf("field reference %q must be old.<field> or new.<field>", path)
	}
	switch Side(side) {
	case SideOld, SideNew:
		return &FieldRef{Side: Side(side), Field: field}, nil
	default:
		return nil, fmt.Errorf("field reference %q must start with old. or new.", path)
	}
}
