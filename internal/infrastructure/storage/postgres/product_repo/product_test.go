package product_repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagrid/internal/domain/products"
)

func TestSelectQuery(t *testing.T) {
	repo := NewProductRepo(nil)

	sql, args, err := repo.selectQuery().ToSql()
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.True(t, strings.HasPrefix(sql, "SELECT p.id, p.sku, "))
	assert.Contains(t, sql, `u.name AS "owner.name"`)
	assert.Contains(t, sql, "FROM products p JOIN users u ON u.id = p.owner_id")
	assert.True(t, strings.HasSuffix(sql, "ORDER BY p.created_at DESC, p.id"))
	assert.NotContains(t, sql, "p.owner,")
	assert.Contains(t, repo.productCols, "tags")
	assert.NotContains(t, repo.productCols, "owner")
}

func TestDeleteQuery(t *testing.T) {
	repo := NewProductRepo(nil)

	sql, args, err := repo.deleteQuery([]string{"a", "b"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM products WHERE id IN ($1,$2)", sql)
	assert.Equal(t, []any{"a", "b"}, args)
}

func TestUpsertUsersQuery(t *testing.T) {
	repo := NewProductRepo(nil)
	rows := []products.Product{
		{ID: "p1", Owner: products.User{ID: "u1", Name: "Ada"}},
		{ID: "p2", Owner: products.User{ID: "u1", Name: "Ada"}},
		{ID: "p3", Owner: products.User{ID: "u2", Name: "Grace"}},
		{ID: "p4"},
	}
	users := owners(rows)
	require.Len(t, users, 2)

	sql, args, err := repo.upsertUsersQuery(users).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"INSERT INTO users (id,name,avatar_url,role,email) VALUES ($1,$2,$3,$4,$5),($6,$7,$8,$9,$10) ON CONFLICT (id) DO NOTHING",
		sql)
	assert.Equal(t, "u2", args[5])
}
