// Package condition implements the declarative predicate language evaluated
// against old/new row pairs: a tagged expression tree of comparisons, the
// tri-valued distinctness operator, and the all/any/not combinators.
//
// Trees are built with the fluent constructors (Old, New, All, Any, Not,
// RowDistinct) or decoded from YAML policy files. Evaluation is pure and
// deterministic; a comparison that references a field of an absent row makes
// the whole condition false instead of erroring, while distinctness treats an
// absent side as distinct from any present value.
package condition
