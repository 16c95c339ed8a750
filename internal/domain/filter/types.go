// Package filter holds the column filter model: variants, operators, operands,
// descriptors and the evaluator that applies them to rows.
package filter

// Variant determines which operators a column accepts and which widget edits it.
type Variant string

const (
	VariantText        Variant = "text"
	VariantNumber      Variant = "number"
	VariantRange       Variant = "range"
	VariantDate        Variant = "date"
	VariantDateRange   Variant = "dateRange"
	VariantSelect      Variant = "select"
	VariantMultiSelect Variant = "multiSelect"
	VariantBoolean     Variant = "boolean"
)

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	_, ok := operatorTable[v]
	return ok
}

// Operator is a comparison applied between a row value and an operand.
type Operator string

const (
	ILike          Operator = "iLike"    // substring, case-insensitive
	NotILike       Operator = "notILike" // no substring, case-insensitive
	Equal          Operator = "eq"
	NotEqual       Operator = "ne"
	Less           Operator = "lt"
	LessOrEqual    Operator = "lte"
	Greater        Operator = "gt"
	GreaterOrEqual Operator = "gte"
	Between        Operator = "isBetween" // inclusive [lo, hi]
	InArray        Operator = "inArray"
	NotInArray     Operator = "notInArray"
	IsEmpty        Operator = "isEmpty"
	IsNotEmpty     Operator = "isNotEmpty"

	// RelativeToToday is reserved. No variant lists it, so descriptors using it
	// are rejected on construction and dropped on restore.
	RelativeToToday Operator = "isRelativeToToday"
)

// NeedsOperand reports whether the operator compares against a value.
// isEmpty and isNotEmpty inspect the row value only.
func (o Operator) NeedsOperand() bool {
	return o != IsEmpty && o != IsNotEmpty
}

// JoinOperator combines the descriptors of a set.
type JoinOperator string

const (
	JoinAnd JoinOperator = "and"
	JoinOr  JoinOperator = "or"
)

// ParseJoinOperator parses a join operator, accepting any letter case.
func ParseJoinOperator(s string) (JoinOperator, bool) {
	switch JoinOperator(lower(s)) {
	case JoinAnd:
		return JoinAnd, true
	case JoinOr:
		return JoinOr, true
	}
	return "", false
}

// Descriptor is one column's active filter.
type Descriptor struct {
	ID       string   `json:"id"`       // column identifier
	Value    Operand  `json:"value"`    // operand
	Variant  Variant  `json:"variant"`  // column variant
	Operator Operator `json:"operator"` // comparison
	FilterID string   `json:"filterId"` // opaque token, stable across edits
}

// Empty reports whether the descriptor carries no usable operand.
// Empty descriptors are never kept in a Set.
func (d Descriptor) Empty() bool {
	return d.Operator.NeedsOperand() && d.Value.IsEmpty()
}
