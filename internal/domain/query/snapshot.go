// Package query keeps table query state (filters, sorting, pagination, search)
// in sync with a flat string-keyed parameter store such as a URL query string.
package query

import (
	"encoding/json"
	"math"
	"slices"

	"datagrid/internal/domain/filter"
)

// Sort orders rows by one column.
type Sort struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// Snapshot is the complete query state of one table.
type Snapshot struct {
	Filters   filter.Set          `json:"filters"`
	Join      filter.JoinOperator `json:"joinOperator"`
	Sorts     []Sort              `json:"sort"`
	PageIndex int                 `json:"pageIndex"` // 0-based
	PageSize  int                 `json:"pageSize"`
	Search    string              `json:"search"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Filters = slices.Clone(s.Filters)
	out.Sorts = slices.Clone(s.Sorts)
	return out
}

// RowKey identifies the row set a snapshot selects, ignoring pagination and
// filter ids. Snapshots with equal keys filter and sort rows identically.
func (s Snapshot) RowKey() string {
	type keyFilter struct {
		ID       string          `json:"i"`
		Variant  filter.Variant  `json:"v"`
		Operator filter.Operator `json:"o"`
		Value    filter.Operand  `json:"x"`
	}
	key := struct {
		Filters []keyFilter         `json:"f"`
		Join    filter.JoinOperator `json:"j"`
		Sorts   []Sort              `json:"s"`
		Search  string              `json:"q"`
	}{Join: s.Join, Sorts: s.Sorts, Search: s.Search}
	for _, d := range s.Filters {
		key.Filters = append(key.Filters, keyFilter{d.ID, d.Variant, d.Operator, d.Value})
	}
	b, _ := json.Marshal(key)
	return string(b)
}

// MaxPage is the largest 1-based page number a snapshot keeps.
const MaxPage = math.MaxInt32

// Defaults are the values a parameter takes when it is absent from the store.
// Parameters equal to their default are removed from the store on write.
type Defaults struct {
	PageSize    int
	MaxPageSize int
	Join        filter.JoinOperator
	Sorts       []Sort
}

// DefaultDefaults returns the stock defaults: 10 rows per page, AND join, no sorting.
func DefaultDefaults() Defaults {
	return Defaults{PageSize: 10, MaxPageSize: 1000, Join: filter.JoinAnd}
}

// Snapshot returns the state that an empty parameter store decodes to.
func (d Defaults) Snapshot() Snapshot {
	return Snapshot{
		Join:     d.Join,
		Sorts:    slices.Clone(d.Sorts),
		PageSize: d.PageSize,
	}
}

// Keys names the parameters in the store.
type Keys struct {
	Page    string
	PerPage string
	Sort    string
	Filters string
	Join    string
	Search  string
}

// DefaultKeys returns the standard parameter names.
func DefaultKeys() Keys {
	return Keys{
		Page:    "page",
		PerPage: "perPage",
		Sort:    "sort",
		Filters: "filters",
		Join:    "joinOperator",
		Search:  "search",
	}
}

// WithPrefix namespaces every key, so several tables can share one store.
func (k Keys) WithPrefix(prefix string) Keys {
	if prefix == "" {
		return k
	}
	return Keys{
		Page:    prefix + k.Page,
		PerPage: prefix + k.PerPage,
		Sort:    prefix + k.Sort,
		Filters: prefix + k.Filters,
		Join:    prefix + k.Join,
		Search:  prefix + k.Search,
	}
}

// All returns the keys in a fixed order.
func (k Keys) All() []string {
	return []string{k.Filters, k.Join, k.Sort, k.Page, k.PerPage, k.Search}
}
