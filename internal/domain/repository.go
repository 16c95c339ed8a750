// Package domain ties columns, query state, the row pipeline and row storage
// together into servable tables.
package domain

import (
	"context"
)

// RowRepository is the persistent source of a table's rows.
type RowRepository[T any] interface {
	// List loads every row.
	List(ctx context.Context) ([]T, error)

	// Delete removes rows by id and returns how many were removed.
	Delete(ctx context.Context, ids []string) (int64, error)
}

// Page is one page of projected rows.
type Page struct {
	Columns       []string         `json:"columns"`
	Rows          []map[string]any `json:"rows"`
	RowIDs        []string         `json:"rowIds"`
	TotalCount    int              `json:"totalCount"`
	FilteredCount int              `json:"filteredCount"`
	PageIndex     int              `json:"pageIndex"`
	PageSize      int              `json:"pageSize"`
	PageCount     int              `json:"pageCount"`
	// Query is the canonical parameter set for the page, with defaults omitted.
	Query map[string]string `json:"query"`
}
