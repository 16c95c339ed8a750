package pipeline

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"datagrid/internal/domain/filter"
	"datagrid/internal/domain/query"
)

type sortKey[T any] struct {
	get  func(T) any
	desc bool
}

// sort orders rows in place by sorts, first key first. Rows equal on every
// key keep their input order. Empty values sort last in both directions.
// Sorts on unknown or unsortable columns are ignored.
func (p *Pipeline[T]) sort(rows []T, sorts []query.Sort) {
	var keys []sortKey[T]
	for _, s := range sorts {
		if !p.columns.Sortable(s.ID) {
			continue
		}
		get, _ := p.columns.Accessor(s.ID)
		keys = append(keys, sortKey[T]{get: get, desc: s.Desc})
	}
	if len(keys) == 0 {
		return
	}

	slices.SortStableFunc(rows, func(a, b T) int {
		for _, k := range keys {
			va, vb := k.get(a), k.get(b)
			ea, eb := filter.IsEmptyValue(va), filter.IsEmptyValue(vb)
			switch {
			case ea && eb:
				continue
			case ea:
				return 1
			case eb:
				return -1
			}
			c := compareValues(va, vb)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// compareValues orders two non-empty values. Numbers compare numerically,
// times chronologically, booleans false first, everything else as
// case-insensitive text.
func compareValues(a, b any) int {
	a, b = filter.Indirect(a), filter.Indirect(b)
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := b.(decimal.Decimal); ok {
			return da.Cmp(db)
		}
	}
	if _, isText := a.(string); !isText {
		na, okA := filter.ValueNumber(a)
		nb, okB := filter.ValueNumber(b)
		if okA && okB {
			return cmp.Compare(na, nb)
		}
	}

	sa, sb := filter.ValueText(a), filter.ValueText(b)
	if c := strings.Compare(strings.ToLower(sa), strings.ToLower(sb)); c != 0 {
		return c
	}
	return strings.Compare(sa, sb)
}
