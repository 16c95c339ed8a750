package column

import (
	"slices"

	"datagrid/internal/domain/filter"
)

// Widget names the filter input a column renders.
type Widget string

const (
	WidgetNone            Widget = "none"
	WidgetTextInput       Widget = "text-input"
	WidgetNumberInput     Widget = "number-input"
	WidgetRangeSlider     Widget = "range-slider"
	WidgetDatePicker      Widget = "date-picker"
	WidgetDateRangePicker Widget = "date-range-picker"
	WidgetSelect          Widget = "select"
	WidgetMultiSelect     Widget = "multi-select"
	WidgetBooleanSelect   Widget = "boolean-select"
)

var widgets = map[filter.Variant]Widget{
	filter.VariantText:        WidgetTextInput,
	filter.VariantNumber:      WidgetNumberInput,
	filter.VariantRange:       WidgetRangeSlider,
	filter.VariantDate:        WidgetDatePicker,
	filter.VariantDateRange:   WidgetDateRangePicker,
	filter.VariantSelect:      WidgetSelect,
	filter.VariantMultiSelect: WidgetMultiSelect,
	filter.VariantBoolean:     WidgetBooleanSelect,
}

// Capability is what a client needs to render a column's header and filter.
type Capability struct {
	ColumnID        string            `json:"id"`
	Label           string            `json:"label"`
	Placeholder     string            `json:"placeholder,omitempty"`
	Widget          Widget            `json:"widget"`
	Variant         filter.Variant    `json:"variant,omitempty"`
	Operators       []filter.Operator `json:"operators,omitempty"`
	DefaultOperator filter.Operator   `json:"defaultOperator,omitempty"`
	Options         []Option          `json:"options,omitempty"`
	// DynamicOptions is set for select columns without static options;
	// clients load them from facets.
	DynamicOptions bool   `json:"dynamicOptions,omitempty"`
	Range          *Range `json:"range,omitempty"`
	Unit           string `json:"unit,omitempty"`
	Filterable     bool   `json:"filterable"`
	Sortable       bool   `json:"sortable"`
	Searchable     bool   `json:"searchable"`
	Hideable       bool   `json:"hideable"`
}

// Resolve derives a column's capabilities from its definition.
func Resolve[T any](d Def[T]) Capability {
	c := Capability{
		ColumnID:    d.ID,
		Label:       d.Header(),
		Placeholder: d.Placeholder,
		Widget:      WidgetNone,
		Unit:        d.Unit,
		Sortable:    sortable(d),
		Searchable:  searchable(d),
		Hideable:    !d.DisableHiding,
	}
	if !filterable(d) {
		return c
	}

	c.Filterable = true
	c.Variant = d.Variant
	c.Widget = widgets[d.Variant]
	c.Operators = filter.OperatorsFor(d.Variant)
	c.DefaultOperator = filter.DefaultOperatorFor(d.Variant)

	switch d.Variant {
	case filter.VariantSelect, filter.VariantMultiSelect:
		c.Options = slices.Clone(d.Options)
		c.DynamicOptions = len(d.Options) == 0
	case filter.VariantBoolean:
		c.Options = []Option{{Label: "True", Value: "true"}, {Label: "False", Value: "false"}}
	case filter.VariantNumber, filter.VariantRange:
		if d.Range != nil {
			r := *d.Range
			c.Range = &r
		}
	}
	return c
}

// ResolveAll resolves every column of s in order.
func ResolveAll[T any](s *Set[T]) []Capability {
	defs := s.Defs()
	out := make([]Capability, len(defs))
	for i, d := range defs {
		out[i] = Resolve(d)
	}
	return out
}
