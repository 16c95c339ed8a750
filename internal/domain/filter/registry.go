package filter

import (
	"slices"
	"strings"

	"datagrid/internal/core/apperror"
	"datagrid/internal/core/id"
)

var comparisonOperators = []Operator{
	Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual, Between, IsEmpty, IsNotEmpty,
}

// operatorTable lists the legal operators per variant. The first entry is the default.
var operatorTable = map[Variant][]Operator{
	VariantText:        {ILike, NotILike, Equal, NotEqual, IsEmpty, IsNotEmpty},
	VariantNumber:      comparisonOperators,
	VariantRange:       comparisonOperators,
	VariantDate:        comparisonOperators,
	VariantDateRange:   comparisonOperators,
	VariantSelect:      {Equal, NotEqual, IsEmpty, IsNotEmpty},
	VariantMultiSelect: {InArray, NotInArray, IsEmpty, IsNotEmpty},
	VariantBoolean:     {Equal, NotEqual},
}

// Variants returns all known variants in a stable order.
func Variants() []Variant {
	return []Variant{
		VariantText, VariantNumber, VariantRange, VariantDate,
		VariantDateRange, VariantSelect, VariantMultiSelect, VariantBoolean,
	}
}

// OperatorsFor returns the ordered operator set for a variant.
// Unknown variants have none.
func OperatorsFor(v Variant) []Operator {
	return slices.Clone(operatorTable[v])
}

// DefaultOperatorFor returns the operator assigned when a filter is first
// created for a column of variant v.
func DefaultOperatorFor(v Variant) Operator {
	ops := operatorTable[v]
	if len(ops) == 0 {
		return ""
	}
	return ops[0]
}

// Supports reports whether op is legal for v.
func Supports(v Variant, op Operator) bool {
	return slices.Contains(operatorTable[v], op)
}

// Validate checks that a descriptor names a column, a known variant and an
// operator legal for that variant.
func Validate(d Descriptor) error {
	if strings.TrimSpace(d.ID) == "" {
		return apperror.NewValidation("filter column id is required")
	}
	if !d.Variant.Valid() {
		return apperror.NewValidation("unknown filter variant").
			WithDetail("column", d.ID).
			WithDetail("variant", string(d.Variant))
	}
	if !Supports(d.Variant, d.Operator) {
		return apperror.NewUnsupportedOperator(string(d.Variant), string(d.Operator)).
			WithDetail("column", d.ID)
	}
	return nil
}

// NewDescriptor builds a validated descriptor. An empty operator takes the
// variant's default. A fresh FilterID is assigned.
func NewDescriptor(columnID string, v Variant, op Operator, value Operand) (Descriptor, error) {
	if op == "" {
		op = DefaultOperatorFor(v)
	}
	d := Descriptor{
		ID:       columnID,
		Value:    value,
		Variant:  v,
		Operator: op,
		FilterID: id.Token(),
	}
	if err := Validate(d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// MustDescriptor is NewDescriptor that panics on an invalid pair.
// Use only for static setup and tests.
func MustDescriptor(columnID string, v Variant, op Operator, value Operand) Descriptor {
	d, err := NewDescriptor(columnID, v, op, value)
	if err != nil {
		panic(err)
	}
	return d
}
