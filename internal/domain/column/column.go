// Package column describes table columns: how to read a value from a row and
// which filter, sort and search capabilities the column offers.
package column

import (
	"datagrid/internal/core/apperror"
	"datagrid/internal/domain/filter"
)

// Reserved column ids for non-data columns.
const (
	SelectID  = "select"
	ActionsID = "actions"
)

// Option is one choice of a select or multi-select filter.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Count int    `json:"count,omitempty"`
}

// Range bounds a numeric filter slider.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Def declares one column of a table over rows of type T.
type Def[T any] struct {
	ID          string
	Label       string
	Placeholder string
	// Variant selects the filter widget and operators. Empty means not filterable.
	Variant filter.Variant
	Options []Option
	Range   *Range
	Unit    string
	// Accessor reads the column value. Columns without one hold no data.
	Accessor func(T) any

	DisableFilter bool
	DisableSort   bool
	DisableHiding bool
	// Search overrides whether the column takes part in global search.
	Search *bool
}

// Header returns the label, or the id when there is none.
func (d Def[T]) Header() string {
	if d.Label != "" {
		return d.Label
	}
	return d.ID
}

// Set is an ordered collection of column definitions with unique ids.
type Set[T any] struct {
	defs  []Def[T]
	index map[string]int
}

// NewSet builds a Set, rejecting empty and duplicate ids.
func NewSet[T any](defs ...Def[T]) (*Set[T], error) {
	s := &Set[T]{defs: make([]Def[T], 0, len(defs)), index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if err := s.add(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSet is NewSet that panics on invalid definitions.
func MustSet[T any](defs ...Def[T]) *Set[T] {
	s, err := NewSet(defs...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Set[T]) add(d Def[T]) error {
	if d.ID == "" {
		return apperror.NewValidation("column id is required")
	}
	if _, dup := s.index[d.ID]; dup {
		return apperror.NewValidation("duplicate column id").WithDetail("column", d.ID)
	}
	if d.Variant != "" && !d.Variant.Valid() {
		return apperror.NewValidation("unknown filter variant").
			WithDetail("column", d.ID).
			WithDetail("variant", string(d.Variant))
	}
	s.index[d.ID] = len(s.defs)
	s.defs = append(s.defs, d)
	return nil
}

// With returns a new Set with extra columns appended.
func (s *Set[T]) With(defs ...Def[T]) (*Set[T], error) {
	return NewSet(append(s.Defs(), defs...)...)
}

// Defs returns the definitions in order.
func (s *Set[T]) Defs() []Def[T] {
	out := make([]Def[T], len(s.defs))
	copy(out, s.defs)
	return out
}

// IDs returns the column ids in order.
func (s *Set[T]) IDs() []string {
	ids := make([]string, len(s.defs))
	for i, d := range s.defs {
		ids[i] = d.ID
	}
	return ids
}

// Get returns the definition of a column.
func (s *Set[T]) Get(id string) (Def[T], bool) {
	i, ok := s.index[id]
	if !ok {
		return Def[T]{}, false
	}
	return s.defs[i], true
}

// Accessor implements filter.Accessors.
func (s *Set[T]) Accessor(id string) (func(T) any, bool) {
	d, ok := s.Get(id)
	if !ok || d.Accessor == nil {
		return nil, false
	}
	return d.Accessor, true
}

// Variant returns the filter variant of a filterable column.
func (s *Set[T]) Variant(id string) (filter.Variant, bool) {
	d, ok := s.Get(id)
	if !ok || !filterable(d) {
		return "", false
	}
	return d.Variant, true
}

// Sortable reports whether rows may be ordered by the column.
func (s *Set[T]) Sortable(id string) bool {
	d, ok := s.Get(id)
	return ok && sortable(d)
}

// Searchable returns the columns global search looks at.
func (s *Set[T]) Searchable() []Def[T] {
	var out []Def[T]
	for _, d := range s.defs {
		if searchable(d) {
			out = append(out, d)
		}
	}
	return out
}

func filterable[T any](d Def[T]) bool {
	return d.Variant != "" && d.Accessor != nil && !d.DisableFilter
}

func sortable[T any](d Def[T]) bool {
	return d.Accessor != nil && !d.DisableSort
}

func searchable[T any](d Def[T]) bool {
	if d.Accessor == nil {
		return false
	}
	if d.Search != nil {
		return *d.Search
	}
	switch d.Variant {
	case filter.VariantText, filter.VariantSelect, filter.VariantMultiSelect:
		return true
	}
	return false
}
