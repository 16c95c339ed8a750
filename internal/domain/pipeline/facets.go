package pipeline

import (
	"cmp"
	"context"
	"slices"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain/filter"
	"datagrid/internal/domain/query"
)

// FacetValue is one distinct value of a column and how many rows hold it.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facet summarizes a column over the filtered rows.
type Facet struct {
	ColumnID string       `json:"columnId"`
	Rows     int          `json:"rows"`
	Values   []FacetValue `json:"values"`
	// Min and Max are set for number, range and date columns holding at
	// least one coercible value. Dates are reported as millisecond epochs.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// FacetOptions tunes Facets.
type FacetOptions struct {
	// ExcludeOwnFilter drops the column's own filters before counting, so a
	// select column still lists the values its filter excludes.
	ExcludeOwnFilter bool
	// Limit caps the number of values returned. Zero means no cap.
	Limit int
}

// Facets counts distinct values of columnID across the rows matching snap.
// Collection values count each member. Values are ordered by count, then value.
func (p *Pipeline[T]) Facets(ctx context.Context, rows []T, snap query.Snapshot, columnID string, opts FacetOptions) (Facet, error) {
	_, span := tracer.Start(ctx, "pipeline.facets")
	defer span.End()

	def, ok := p.columns.Get(columnID)
	if !ok || def.Accessor == nil {
		return Facet{}, apperror.NewNotFound("column", columnID)
	}

	if opts.ExcludeOwnFilter {
		snap = snap.Clone()
		snap.Filters = slices.DeleteFunc(snap.Filters, func(d filter.Descriptor) bool {
			return d.ID == columnID
		})
	}
	filtered := p.Filtered(rows, snap)

	facet := Facet{ColumnID: columnID, Rows: len(filtered)}
	counts := make(map[string]int)
	isDate := def.Variant == filter.VariantDate || def.Variant == filter.VariantDateRange
	bounded := isDate || def.Variant == filter.VariantNumber || def.Variant == filter.VariantRange

	observe := func(v any) {
		if filter.IsEmptyValue(v) {
			return
		}
		counts[filter.ValueText(v)]++
		if !bounded {
			return
		}

		var (
			n  float64
			ok bool
		)
		if isDate {
			if t, tok := filter.ValueTime(v, p.loc); tok {
				n, ok = float64(t.UnixMilli()), true
			}
		} else {
			n, ok = filter.ValueNumber(v)
		}
		if !ok {
			return
		}
		if facet.Min == nil || n < *facet.Min {
			facet.Min = &n
		}
		if facet.Max == nil || n > *facet.Max {
			facet.Max = &n
		}
	}

	for _, row := range filtered {
		v := def.Accessor(row)
		if items, isList := filter.ValueElements(v); isList {
			for _, item := range items {
				observe(item)
			}
			continue
		}
		observe(v)
	}

	facet.Values = make([]FacetValue, 0, len(counts))
	for v, c := range counts {
		facet.Values = append(facet.Values, FacetValue{Value: v, Count: c})
	}
	slices.SortFunc(facet.Values, func(a, b FacetValue) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	if opts.Limit > 0 && len(facet.Values) > opts.Limit {
		facet.Values = facet.Values[:opts.Limit]
	}
	return facet, nil
}
