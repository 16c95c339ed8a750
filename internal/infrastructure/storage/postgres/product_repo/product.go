// Package product_repo stores the demo product catalogue in PostgreSQL.
package product_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain"
	"datagrid/internal/domain/products"
	"datagrid/internal/infrastructure/storage/postgres"
)

const (
	productsTable = "products"
	usersTable    = "users"
)

var _ domain.RowRepository[products.Product] = (*ProductRepo)(nil)

// ProductRepo loads and deletes products. Owners live in the users table and
// are joined into Product.Owner.
type ProductRepo struct {
	txm         *postgres.TxManager
	productCols []string
	userCols    []string
}

// NewProductRepo creates a product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:         txm,
		productCols: postgres.ExtractDBColumns[products.Product](),
		userCols:    postgres.ExtractDBColumns[products.User](),
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *ProductRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// selectQuery reads products with owner columns aliased as "owner.<col>",
// the nesting pgxscan maps onto Product.Owner.
func (r *ProductRepo) selectQuery() squirrel.SelectBuilder {
	cols := make([]string, 0, len(r.productCols)+len(r.userCols))
	for _, c := range r.productCols {
		cols = append(cols, "p."+c)
	}
	for _, c := range r.userCols {
		cols = append(cols, fmt.Sprintf(`u.%s AS "owner.%s"`, c, c))
	}
	return r.Builder().
		Select(cols...).
		From(productsTable + " p").
		Join(usersTable + " u ON u.id = p.owner_id").
		OrderBy("p.created_at DESC", "p.id")
}

// List loads every product.
func (r *ProductRepo) List(ctx context.Context) ([]products.Product, error) {
	sql, args, err := r.selectQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []products.Product
	err = r.txm.ReadOnly(ctx, func(ctx context.Context) error {
		return pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...)
	})
	if err != nil {
		return nil, apperror.NewDatabase("list products", err)
	}
	return rows, nil
}

func (r *ProductRepo) deleteQuery(ids []string) squirrel.DeleteBuilder {
	return r.Builder().
		Delete(productsTable).
		Where(squirrel.Eq{"id": ids})
}

// Delete removes products by id.
func (r *ProductRepo) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sql, args, err := r.deleteQuery(ids).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	var n int64
	err = r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, apperror.NewDatabase("delete products", err)
	}
	return n, nil
}

// upsertUsersQuery inserts owners, leaving existing ones untouched.
func (r *ProductRepo) upsertUsersQuery(users []products.User) squirrel.InsertBuilder {
	q := r.Builder().Insert(usersTable).Columns(r.userCols...)
	for _, u := range users {
		q = q.Values(postgres.StructValues(u)...)
	}
	return q.Suffix("ON CONFLICT (id) DO NOTHING")
}

// Seed writes rows and their owners in one transaction. With truncate set,
// existing products are removed first.
func (r *ProductRepo) Seed(ctx context.Context, rows []products.Product, truncate bool) (int64, error) {
	users := owners(rows)
	copyCols := append(append([]string(nil), r.productCols...), "owner_id")
	values := make([][]any, len(rows))
	for i, p := range rows {
		values[i] = append(postgres.StructValues(p), p.Owner.ID)
	}

	var n int64
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.txm.GetQuerier(ctx)
		if truncate {
			if _, err := q.Exec(ctx, "TRUNCATE "+productsTable); err != nil {
				return fmt.Errorf("truncate: %w", err)
			}
		}
		if len(users) > 0 {
			sql, args, err := r.upsertUsersQuery(users).ToSql()
			if err != nil {
				return fmt.Errorf("build users insert: %w", err)
			}
			if _, err := q.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("insert users: %w", err)
			}
		}
		var err error
		n, err = postgres.NewBatchInserter(r.txm).CopyFromSlice(ctx, productsTable, copyCols, values)
		return err
	})
	if err != nil {
		return 0, apperror.NewDatabase("seed products", err)
	}
	return n, nil
}

func owners(rows []products.Product) []products.User {
	seen := make(map[string]struct{})
	var out []products.User
	for _, p := range rows {
		if p.Owner.ID == "" {
			continue
		}
		if _, ok := seen[p.Owner.ID]; ok {
			continue
		}
		seen[p.Owner.ID] = struct{}{}
		out = append(out, p.Owner)
	}
	return out
}
