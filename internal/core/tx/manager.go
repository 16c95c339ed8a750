// Package tx defines transaction boundaries independent of the database driver.
package tx

import (
	"context"
)

// Manager runs fn in a transaction: rolled back when fn fails, committed
// otherwise. Nested calls reuse the transaction in ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
