package products

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagrid/internal/core/types"
	"datagrid/internal/domain/column"
	"datagrid/internal/domain/filter"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestColumns(t *testing.T) {
	set, err := Columns()
	require.NoError(t, err)

	ids := set.IDs()
	assert.Equal(t, column.SelectID, ids[0])
	assert.Equal(t, column.ActionsID, ids[len(ids)-1])
	assert.Contains(t, ids, "margin")
	assert.Contains(t, ids, "available")

	caps := map[string]column.Capability{}
	for _, c := range column.ResolveAll(set) {
		caps[c.ColumnID] = c
	}
	tests := []struct {
		id     string
		widget column.Widget
	}{
		{"name", column.WidgetTextInput},
		{"category", column.WidgetSelect},
		{"status", column.WidgetSelect},
		{"costPrice", column.WidgetNumberInput},
		{"discountPercent", column.WidgetRangeSlider},
		{"isFeatured", column.WidgetBooleanSelect},
		{"launchDate", column.WidgetDatePicker},
		{"createdAt", column.WidgetDateRangePicker},
		{"tags", column.WidgetMultiSelect},
		{"owner", column.WidgetTextInput},
		{"id", column.WidgetNone},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.widget, caps[tt.id].Widget)
		})
	}

	assert.Equal(t, "Out of stock", caps["status"].Options[2].Label)
	assert.Equal(t, "Cost", caps["costPrice"].Label)
	assert.Equal(t, 40.0, caps["discountPercent"].Range.Max)
	assert.False(t, caps["name"].Hideable)
}

func TestGenerate(t *testing.T) {
	a := Generate(GeneratorConfig{Seed: 7, Count: 25, Users: 3, Now: now})
	b := Generate(GeneratorConfig{Seed: 7, Count: 25, Users: 3, Now: now})
	require.Len(t, a, 25)
	assert.Equal(t, a, b, "same seed, same rows")

	owners := map[string]bool{}
	for _, p := range a {
		assert.NotEmpty(t, p.ID)
		assert.True(t, p.RetailPrice.GreaterThan(p.CostPrice))
		assert.True(t, p.FinalPrice.Equal(types.Discounted(p.RetailPrice, float64(p.DiscountPercent))))
		assert.False(t, p.CreatedAt.After(now))
		assert.LessOrEqual(t, len(p.Tags), 3)
		if p.ExpiryDate != nil {
			assert.Equal(t, CategoryGrocery, p.Category)
		}
		owners[p.Owner.ID] = true
	}
	assert.LessOrEqual(t, len(owners), 3)
}

func TestColumns_FilterProducts(t *testing.T) {
	set, err := Columns()
	require.NoError(t, err)
	ev := filter.NewEvaluator[Product](set)

	p := Product{
		Name:        "Ergonomic Steel Chair",
		Status:      StatusOutOfStock,
		CostPrice:   types.MustMoney("10"),
		FinalPrice:  types.MustMoney("14.50"),
		StockQty:    5,
		ReservedQty: 8,
		Tags:        []string{"sleek", "rustic"},
		Owner:       User{Name: "Ada Lovelace"},
	}

	tests := []struct {
		name string
		d    filter.Descriptor
		want bool
	}{
		{"owner by name", filter.MustDescriptor("owner", filter.VariantText, filter.ILike, filter.Scalar("lovelace")), true},
		{"status select", filter.MustDescriptor("status", filter.VariantSelect, filter.Equal, filter.Scalar("out_of_stock")), true},
		{"tags any", filter.MustDescriptor("tags", filter.VariantMultiSelect, filter.InArray, filter.List("rustic", "modern")), true},
		{"margin", filter.MustDescriptor("margin", filter.VariantNumber, filter.Equal, filter.Scalar("4.5")), true},
		{"available floors at zero", filter.MustDescriptor("available", filter.VariantNumber, filter.Equal, filter.Scalar("0")), true},
		{"notes empty", filter.MustDescriptor("notes", filter.VariantText, filter.IsEmpty, filter.Operand{}), true},
		{"restocked empty", filter.MustDescriptor("lastRestockedAt", filter.VariantDate, filter.IsEmpty, filter.Operand{}), true},
		{"cost gt", filter.MustDescriptor("costPrice", filter.VariantNumber, filter.Greater, filter.Scalar("10")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ev.Matches(p, tt.d.ID, tt.d))
		})
	}
}
