// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// TableContext identifies the table a request operates on.
type TableContext struct {
	Table string
	// Query starts as the raw query string and is replaced by the canonical
	// state once the handler has decoded it.
	Query string
}

type tableContextKey struct{}

// WithTable adds TableContext to context.
func WithTable(ctx context.Context, table *TableContext) context.Context {
	return context.WithValue(ctx, tableContextKey{}, table)
}

// GetTable returns TableContext from context.
func GetTable(ctx context.Context) *TableContext {
	if v, ok := ctx.Value(tableContextKey{}).(*TableContext); ok {
		return v
	}
	return nil
}
