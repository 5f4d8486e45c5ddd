package condition

// Field starts a fluent comparison against a field of the old or new row:
//
//	condition.Old("created_at").DistinctFrom(condition.New("created_at"))
//	condition.New("int_field").Lt(0)
type Field struct {
	ref FieldRef
}

// Old references a field of the pre-mutation snapshot.
func Old(name string) Field {
	return Field{ref: FieldRef{Side: SideOld, Field: name}}
}

// New references a field of the proposed post-mutation snapshot.
func New(name string) Field {
	return Field{ref: FieldRef{Side: SideNew, Field: name}}
}

// operand converts a builder argument to an Operand. Field arguments become
// references; anything else is a literal.
func operand(v any) Operand {
	if f, ok := v.(Field); ok {
		ref := f.ref
		return Operand{Ref: &ref}
	}
	return Operand{Value: v}
}

func (f Field) compare(op Operator, v any) *Node {
	ref := f.ref
	return &Node{
		Type:     TypeCompare,
		Left:     Operand{Ref: &ref},
		Operator: op,
		Right:    operand(v),
	}
}

// Eq builds an equality comparison. The argument may be a literal or a Field.
func (f Field) Eq(v any) *Node { return f.compare(OpEq, v) }

// Ne builds an inequality comparison.
func (f Field) Ne(v any) *Node { return f.compare(OpNe, v) }

// Lt builds a less-than comparison.
func (f Field) Lt(v any) *Node { return f.compare(OpLt, v) }

// Le builds a less-or-equal comparison.
func (f Field) Le(v any) *Node { return f.compare(OpLe, v) }

// Gt builds a greater-than comparison.
func (f Field) Gt(v any) *Node { return f.compare(OpGt, v) }

// Ge builds a greater-or-equal comparison.
func (f Field) Ge(v any) *Node { return f.compare(OpGe, v) }

// DistinctFrom builds the tri-valued distinctness test.
func (f Field) DistinctFrom(v any) *Node {
	ref := f.ref
	return &Node{
		Type:  TypeDistinct,
		Left:  Operand{Ref: &ref},
		Right: operand(v),
	}
}

// All builds an AND over the given children.
func All(children ...*Node) *Node {
	return &Node{Type: TypeAll, Children: children}
}

// Any builds an OR over the given children.
func Any(children ...*Node) *Node {
	return &Node{Type: TypeAny, Children: children}
}

// Not negates a single child.
func Not(child *Node) *Node {
	return &Node{Type: TypeNot, Children: []*Node{child}}
}

// RowDistinct builds the whole-row distinctness test (old.* IS DISTINCT FROM
// new.*), optionally ignoring the named fields.
func RowDistinct(except ...string) *Node {
	return &Node{Type: TypeRowDistinct, Except: except}
}
