// Package export writes table rows as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain/column"
	"datagrid/internal/domain/filter"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", apperror.NewValidation("unsupported export format").WithDetail("format", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename appends the format extension to base, defaulting base to "export".
func Filename(base string, f Format) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "export"
	}
	return base + "." + string(f)
}

// Options tunes an export.
type Options struct {
	// ExcludeColumns lists column ids left out of the file.
	// Nil means the select and actions columns.
	ExcludeColumns []string
	// SheetName names the XLSX worksheet. Default "Data".
	SheetName string
	// Location renders times. Default UTC.
	Location *time.Location
}

// DefaultExcluded returns the non-data columns skipped by default.
func DefaultExcluded() []string {
	return []string{column.SelectID, column.ActionsID}
}

const (
	minColWidth = 10
	maxColWidth = 60
)

// Write renders rows through cols in the given format. Each column's header
// is its label, or its id when unlabelled. Columns without an accessor are skipped.
func Write[T any](w io.Writer, f Format, rows []T, cols []column.Def[T], opts Options) error {
	if opts.ExcludeColumns == nil {
		opts.ExcludeColumns = DefaultExcluded()
	}
	if opts.SheetName == "" {
		opts.SheetName = "Data"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	cols = slices.DeleteFunc(slices.Clone(cols), func(d column.Def[T]) bool {
		return d.Accessor == nil || slices.Contains(opts.ExcludeColumns, d.ID)
	})

	var err error
	switch f {
	case FormatCSV:
		err = writeCSV(w, rows, cols, opts)
	case FormatXLSX:
		err = writeXLSX(w, rows, cols, opts)
	default:
		return apperror.NewValidation("unsupported export format").WithDetail("format", string(f))
	}
	if err != nil {
		return apperror.NewExport(string(f), err)
	}
	return nil
}

func headers[T any](cols []column.Def[T]) []string {
	out := make([]string, len(cols))
	for i, d := range cols {
		out[i] = d.Header()
	}
	return out
}

func writeCSV[T any](w io.Writer, rows []T, cols []column.Def[T], opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers(cols)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, d := range cols {
			record[i] = text(d.Accessor(row), opts.Location)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX[T any](w io.Writer, rows []T, cols []column.Def[T], opts Options) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName(book.GetSheetName(0), opts.SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	head := headers(cols)
	widths := make([]int, len(cols))
	for i, h := range head {
		widths[i] = max(minColWidth, utf8.RuneCountInString(h))
	}
	cells := make([][]any, len(rows))
	for r, row := range rows {
		cells[r] = make([]any, len(cols))
		for i, d := range cols {
			v := d.Accessor(row)
			cells[r][i] = cellValue(v, opts.Location)
			widths[i] = max(widths[i], utf8.RuneCountInString(text(v, opts.Location)))
		}
	}

	sw, err := book.NewStreamWriter(opts.SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	for i, width := range widths {
		if err := sw.SetColWidth(i+1, i+1, float64(min(width, maxColWidth))+2); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	headRow := make([]any, len(head))
	for i, h := range head {
		headRow[i] = h
	}
	if err := sw.SetRow("A1", headRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r, values := range cells {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// text renders a cell for delimited output.
func text(v any, loc *time.Location) string {
	v = filter.Indirect(v)
	if filter.IsEmptyValue(v) {
		return ""
	}
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.In(loc).Format(time.RFC3339)
	case decimal.Decimal:
		return x.String()
	}
	if items, ok := filter.ValueElements(v); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, text(item, loc))
		}
		return strings.Join(parts, ", ")
	}
	return filter.ValueText(v)
}

// cellValue keeps numbers, booleans and times typed in spreadsheets.
func cellValue(v any, loc *time.Location) any {
	v = filter.Indirect(v)
	if filter.IsEmptyValue(v) {
		return ""
	}
	switch x := v.(type) {
	case bool, string:
		return x
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.In(loc).Format(time.DateTime)
	case decimal.Decimal:
		return x.InexactFloat64()
	}
	if _, isList := filter.ValueElements(v); !isList {
		if n, ok := filter.ValueNumber(v); ok {
			return n
		}
	}
	return text(v, loc)
}
