package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagrid/internal/domain/column"
	"datagrid/internal/domain/filter"
	"datagrid/internal/domain/query"
)

type item struct {
	Name     string
	Category string
	Price    float64
	Tags     []string
	Stock    *int
	Created  time.Time
}

func intPtr(n int) *int { return &n }

func itemColumns() *column.Set[item] {
	return column.MustSet(
		column.Def[item]{ID: "name", Variant: filter.VariantText, Accessor: func(i item) any { return i.Name }},
		column.Def[item]{ID: "category", Variant: filter.VariantSelect, Accessor: func(i item) any { return i.Category }},
		column.Def[item]{ID: "price", Variant: filter.VariantNumber, Accessor: func(i item) any { return i.Price }},
		column.Def[item]{ID: "tags", Variant: filter.VariantMultiSelect, Accessor: func(i item) any { return i.Tags }},
		column.Def[item]{ID: "stock", Variant: filter.VariantNumber, Accessor: func(i item) any { return i.Stock }},
		column.Def[item]{ID: "created", Variant: filter.VariantDate, Accessor: func(i item) any { return i.Created }},
	)
}

func names(rows []item) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestRun_Pagination(t *testing.T) {
	rows := make([]item, 101)
	for i := range rows {
		rows[i] = item{Name: "row", Price: float64(i)}
	}
	p := New(itemColumns(), Config{})

	res := p.Run(context.Background(), rows, query.Snapshot{PageIndex: 5, PageSize: 20})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 100.0, res.Rows[0].Price)
	assert.Equal(t, 6, res.PageCount)
	assert.Equal(t, 101, res.Total)
	assert.Equal(t, 101, res.FilteredCount)

	res = p.Run(context.Background(), rows, query.Snapshot{PageIndex: 9, PageSize: 20})
	assert.Empty(t, res.Rows)
	assert.Equal(t, 6, res.PageCount)

	res = p.Run(context.Background(), rows, query.Snapshot{PageSize: 0})
	assert.Len(t, res.Rows, 101)
	assert.Equal(t, 1, res.PageCount)
}

func TestRun_PageBeyondRange(t *testing.T) {
	rows := []item{{Name: "a"}, {Name: "b"}}
	p := New(itemColumns(), Config{})

	huge := query.Snapshot{PageIndex: math.MaxInt, PageSize: 10}
	var res Result[item]
	require.NotPanics(t, func() { res = p.Run(context.Background(), rows, huge) })
	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, 2, res.Total)
}

func TestPaginate(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name        string
		index, size int
		want        []int
		wantCount   int
	}{
		{"first page", 0, 2, []int{1, 2}, 3},
		{"last partial page", 2, 2, []int{5}, 3},
		{"index past count", 3, 2, []int{}, 3},
		{"negative index", -1, 2, []int{}, 3},
		{"index overflowing multiplication", math.MaxInt, 4, []int{}, 2},
		{"no page size", 0, 0, rows, 1},
		{"no page size past first", 1, 0, []int{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := paginate(rows, tt.index, tt.size)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRun_PriceBetween(t *testing.T) {
	rows := []item{{Name: "a", Price: 10}, {Name: "b", Price: 50}, {Name: "c", Price: 90}}
	snap := query.Snapshot{
		PageSize: 10,
		Filters: filter.Set{
			filter.MustDescriptor("price", filter.VariantNumber, filter.Between, filter.List("20", "80")),
		},
	}

	res := New(itemColumns(), Config{}).Run(context.Background(), rows, snap)
	assert.Equal(t, []string{"b"}, names(res.Rows))
}

func TestRun_SearchNarrowsFilters(t *testing.T) {
	rows := []item{
		{Name: "Blue shirt", Category: "clothing"},
		{Name: "Shirt press", Category: "appliances"},
		{Name: "Jeans", Category: "clothing"},
	}
	for _, join := range []filter.JoinOperator{filter.JoinAnd, filter.JoinOr} {
		t.Run(string(join), func(t *testing.T) {
			snap := query.Snapshot{
				Join:   join,
				Search: "SHIRT",
				Filters: filter.Set{
					filter.MustDescriptor("category", filter.VariantSelect, filter.Equal, filter.Scalar("clothing")),
				},
			}
			res := New(itemColumns(), Config{}).Run(context.Background(), rows, snap)
			assert.Equal(t, []string{"Blue shirt"}, names(res.Rows))
		})
	}
}

func TestRun_SearchMatchesCollections(t *testing.T) {
	rows := []item{{Name: "a", Tags: []string{"Summer", "sale"}}, {Name: "b", Tags: []string{"winter"}}}
	res := New(itemColumns(), Config{}).Run(context.Background(), rows, query.Snapshot{Search: "summ"})
	assert.Equal(t, []string{"a"}, names(res.Rows))
}

func TestRun_StableMultiKeySort(t *testing.T) {
	rows := []item{
		{Name: "d", Category: "b", Price: 1},
		{Name: "a", Category: "a", Price: 2},
		{Name: "c", Category: "b", Price: 2},
		{Name: "b", Category: "a", Price: 2},
		{Name: "e", Category: "A", Price: 1},
	}
	snap := query.Snapshot{Sorts: []query.Sort{{ID: "price", Desc: true}, {ID: "category"}}}

	res := New(itemColumns(), Config{}).Run(context.Background(), rows, snap)
	assert.Equal(t, []string{"a", "b", "c", "e", "d"}, names(res.Rows))
	assert.Equal(t, "d", rows[0].Name, "input is not reordered")
}

func TestRun_EmptyValuesSortLast(t *testing.T) {
	rows := []item{{Name: "x"}, {Name: "lo", Stock: intPtr(1)}, {Name: "hi", Stock: intPtr(9)}}
	p := New(itemColumns(), Config{})

	asc := p.Run(context.Background(), rows, query.Snapshot{Sorts: []query.Sort{{ID: "stock"}}})
	assert.Equal(t, []string{"lo", "hi", "x"}, names(asc.Rows))

	desc := p.Run(context.Background(), rows, query.Snapshot{Sorts: []query.Sort{{ID: "stock", Desc: true}}})
	assert.Equal(t, []string{"hi", "lo", "x"}, names(desc.Rows))
}

func TestRun_SortsTimesAndIgnoresUnknownColumns(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []item{{Name: "late", Created: day.AddDate(0, 0, 2)}, {Name: "early", Created: day}}
	snap := query.Snapshot{Sorts: []query.Sort{{ID: "missing"}, {ID: "created"}}}

	res := New(itemColumns(), Config{}).Run(context.Background(), rows, snap)
	assert.Equal(t, []string{"early", "late"}, names(res.Rows))
}

func TestRun_MemoInvalidatesOnFreshCollection(t *testing.T) {
	p := New(itemColumns(), Config{})
	snap := query.Snapshot{Search: "a"}

	rows := []item{{Name: "a"}, {Name: "b"}}
	first := p.Run(context.Background(), rows, snap)
	again := p.Run(context.Background(), rows, snap)
	assert.Same(t, &first.Matched[0], &again.Matched[0], "same collection reuses the memo")

	fresh := append([]item{{Name: "aa"}}, rows...)
	res := p.Run(context.Background(), fresh, snap)
	assert.Equal(t, []string{"aa", "a"}, names(res.Rows))

	paged := p.Run(context.Background(), fresh, query.Snapshot{Search: "a", PageSize: 1, PageIndex: 1})
	assert.Equal(t, []string{"a"}, names(paged.Rows))
}

func TestFacets(t *testing.T) {
	rows := []item{
		{Name: "a", Category: "clothing", Price: 10, Tags: []string{"new", "sale"}},
		{Name: "b", Category: "clothing", Price: 30, Tags: []string{"sale"}},
		{Name: "c", Category: "toys", Price: 90},
		{Name: "d", Category: "garden", Price: 200},
	}
	p := New(itemColumns(), Config{})
	ctx := context.Background()
	snap := query.Snapshot{Filters: filter.Set{
		filter.MustDescriptor("price", filter.VariantNumber, filter.LessOrEqual, filter.Scalar("100")),
	}}

	t.Run("counts collection members", func(t *testing.T) {
		f, err := p.Facets(ctx, rows, snap, "tags", FacetOptions{})
		require.NoError(t, err)
		assert.Equal(t, []FacetValue{{"sale", 2}, {"new", 1}}, f.Values)
		assert.Nil(t, f.Min)
	})

	t.Run("min max over filtered rows", func(t *testing.T) {
		f, err := p.Facets(ctx, rows, snap, "price", FacetOptions{})
		require.NoError(t, err)
		require.NotNil(t, f.Min)
		require.NotNil(t, f.Max)
		assert.Equal(t, 10.0, *f.Min)
		assert.Equal(t, 90.0, *f.Max)
		assert.Equal(t, 3, f.Rows)
	})

	t.Run("exclude own filter", func(t *testing.T) {
		f, err := p.Facets(ctx, rows, snap, "price", FacetOptions{ExcludeOwnFilter: true})
		require.NoError(t, err)
		assert.Equal(t, 200.0, *f.Max)
	})

	t.Run("limit", func(t *testing.T) {
		f, err := p.Facets(ctx, rows, query.Snapshot{}, "category", FacetOptions{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []FacetValue{{"clothing", 2}}, f.Values)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := p.Facets(ctx, rows, snap, "missing", FacetOptions{})
		assert.Error(t, err)
	})
}
