package products

import (
	"fmt"

	"datagrid/internal/domain/column"
	"datagrid/internal/domain/filter"
	"datagrid/internal/domain/query"
	"datagrid/internal/metadata"
)

// Columns returns the product table columns: a selection column, every
// inspected Product field, derived stock and margin columns, and the row
// actions column.
func Columns() (*column.Set[Product], error) {
	fields, err := metadata.Columns[Product]()
	if err != nil {
		return nil, fmt.Errorf("inspect product: %w", err)
	}

	defs := make([]column.Def[Product], 0, len(fields)+4)
	defs = append(defs, column.Def[Product]{ID: column.SelectID, Label: "Select", DisableSort: true, DisableHiding: true})
	for _, d := range fields {
		switch d.ID {
		case "discountPercent":
			d.Range = &column.Range{Min: 0, Max: 40}
			d.Unit = "%"
		case "rating":
			d.Range = &column.Range{Min: 1, Max: 5}
		case "name":
			d.DisableHiding = true
		}
		defs = append(defs, d)
	}
	defs = append(defs, column.Def[Product]{
		ID:          "available",
		Label:       "Available",
		Placeholder: "Filter available...",
		Variant:     filter.VariantNumber,
		Accessor:    func(p Product) any { return p.Available() },
	})

	base, err := column.NewSet(defs...)
	if err != nil {
		return nil, err
	}

	margin, err := column.Computed(base, column.Def[Product]{
		ID:          "margin",
		Label:       "Margin",
		Placeholder: "Filter margin...",
		Variant:     filter.VariantNumber,
	}, "row.finalPrice - row.costPrice")
	if err != nil {
		return nil, err
	}

	return base.With(margin, column.Def[Product]{ID: column.ActionsID, Label: "Actions", DisableSort: true, DisableHiding: true})
}

// DefaultSorts is the initial ordering: newest first.
func DefaultSorts() []query.Sort {
	return []query.Sort{{ID: "createdAt", Desc: true}}
}
