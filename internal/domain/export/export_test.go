package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain/column"
	"datagrid/internal/domain/filter"
)

type row struct {
	Name    string
	Price   decimal.Decimal
	Tags    []string
	Active  bool
	Created time.Time
	Note    *string
}

func columns() []column.Def[row] {
	return []column.Def[row]{
		{ID: column.SelectID},
		{ID: "name", Label: "Name", Variant: filter.VariantText, Accessor: func(r row) any { return r.Name }},
		{ID: "price", Label: "Price", Accessor: func(r row) any { return r.Price }},
		{ID: "tags", Accessor: func(r row) any { return r.Tags }},
		{ID: "active", Label: "Active", Accessor: func(r row) any { return r.Active }},
		{ID: "created", Label: "Created", Accessor: func(r row) any { return r.Created }},
		{ID: "note", Label: "Note", Accessor: func(r row) any { return r.Note }},
		{ID: column.ActionsID, Accessor: func(r row) any { return "menu" }},
	}
}

func sampleRows() []row {
	return []row{
		{
			Name:    "Linen shirt",
			Price:   decimal.RequireFromString("19.90"),
			Tags:    []string{"summer", "sale"},
			Active:  true,
			Created: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		},
		{Name: "Boots, leather", Price: decimal.RequireFromString("120")},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.True(t, apperror.IsAppError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "export.csv", Filename("", FormatCSV))
	assert.Equal(t, "products.xlsx", Filename("products", FormatXLSX))
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRows(), columns(), Options{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Name", "Price", "tags", "Active", "Created", "Note"}, records[0])
	assert.Equal(t, []string{"Linen shirt", "19.9", "summer, sale", "true", "2024-05-01T09:30:00Z", ""}, records[1])
	assert.Equal(t, []string{"Boots, leather", "120", "", "false", "", ""}, records[2])
}

func TestWrite_ExcludeColumns(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{ExcludeColumns: []string{"price", "tags", "active", "created", "note"}}
	require.NoError(t, Write(&buf, FormatCSV, sampleRows()[:1], columns(), opts))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", column.ActionsID}, records[0], "explicit list replaces the defaults")
	assert.Equal(t, []string{"Linen shirt", "menu"}, records[1])
}

func TestWrite_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleRows(), columns(), Options{SheetName: "Products"}))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{"Products"}, book.GetSheetList())

	rows, err := book.GetRows("Products")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Price", "tags", "Active", "Created", "Note"}, rows[0])
	assert.Equal(t, "Linen shirt", rows[1][0])
	assert.Equal(t, "summer, sale", rows[1][2])
	assert.Equal(t, "Boots, leather", rows[2][0])

	width, err := book.GetColWidth("Products", "A")
	require.NoError(t, err)
	assert.Greater(t, width, float64(len("Boots, leather")))
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("pdf"), sampleRows(), columns(), Options{})
	assert.Error(t, err)
}
