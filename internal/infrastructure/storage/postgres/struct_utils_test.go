package postgres

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type audit struct {
	CreatedAt time.Time  `db:"created_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type owner struct {
	ID string `db:"id"`
}

type item struct {
	audit
	ID    string          `db:"id"`
	Price decimal.Decimal `db:"price"`
	Tags  []string        `db:"tags"`
	Owner owner           `db:"owner"`
	Skip  string          `db:"-"`
	Plain string
}

func TestExtractDBColumns(t *testing.T) {
	assert.Equal(t,
		[]string{"created_at", "deleted_at", "id", "price", "tags"},
		ExtractDBColumns[item]())
	assert.Equal(t, ExtractDBColumns[item](), ExtractDBColumns[*item]())
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	it := item{
		audit: audit{CreatedAt: now},
		ID:    "a1",
		Price: decimal.RequireFromString("9.99"),
		Tags:  []string{"x"},
		Owner: owner{ID: "u1"},
	}

	m := StructToMap(&it)
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, "a1", m["id"])
	assert.Equal(t, []string{"x"}, m["tags"])
	assert.NotContains(t, m, "owner")
	assert.Nil(t, StructToMap(42))

	vals := StructValues(it)
	assert.Len(t, vals, 5)
	assert.Equal(t, "a1", vals[2])
}
