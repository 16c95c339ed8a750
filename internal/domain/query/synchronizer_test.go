package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain/filter"
)

type recordingStore struct {
	*MemoryStore
	writes int
}

func (s *recordingStore) WriteAll(values map[string]string, mode Mode) {
	s.writes++
	s.MemoryStore.WriteAll(values, mode)
}

func newTestSync(t *testing.T, initial map[string]string, mode Mode) (*Synchronizer, *recordingStore, *manualClock) {
	t.Helper()
	clock := newManualClock()
	store := &recordingStore{MemoryStore: NewMemoryStore(initial)}
	codec := newTestCodec(t, CodecConfig{})
	s := NewSynchronizer(store, codec, SyncConfig{
		Debounce: 300 * time.Millisecond,
		Throttle: time.Second,
		Mode:     mode,
		Clock:    clock,
	})
	return s, store, clock
}

func readFilters(t *testing.T, store ParamStore) filter.Set {
	t.Helper()
	codec := newTestCodec(t, CodecConfig{})
	v, _ := store.Read("filters")
	return codec.DecodeFilters(v)
}

func TestSynchronizer_RestoresFromStore(t *testing.T) {
	initial := map[string]string{
		"filters": `[{"id":"name","value":"pro","variant":"text","operator":"iLike","filterId":"a"},{"id":"ghost","value":"x","variant":"text","operator":"iLike","filterId":"b"}]`,
		"page":    "3",
		"sort":    "-price",
	}
	s, _, _ := newTestSync(t, initial, Shallow)

	snap := s.Snapshot()
	assert.Equal(t, []string{"name"}, snap.Filters.IDs())
	assert.Equal(t, 2, snap.PageIndex)
	assert.Equal(t, []Sort{{ID: "price", Desc: true}}, snap.Sorts)
}

func TestSynchronizer_DebouncesValueEdits(t *testing.T) {
	s, store, clock := newTestSync(t, nil, Shallow)

	for _, text := range []string{"p", "pr", "pro"} {
		require.NoError(t, s.UpdateFilterValue("name", filter.Scalar(text)))
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 0, store.writes, "still typing")

	d, ok := s.Snapshot().Filters.Get("name")
	require.True(t, ok, "state updates synchronously")
	assert.Equal(t, filter.ILike, d.Operator, "default operator")

	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, 1, store.writes)
	got := readFilters(t, store)
	require.Len(t, got, 1)
	assert.Equal(t, "pro", got[0].Value.String())
}

func TestSynchronizer_ThrottlesStructuralEdits(t *testing.T) {
	s, store, clock := newTestSync(t, nil, Shallow)

	require.NoError(t, s.SetFilterOperator("status", filter.IsEmpty))
	assert.Equal(t, 1, store.writes, "leading write")

	require.NoError(t, s.SetFilterOperator("tags", filter.IsNotEmpty))
	require.NoError(t, s.SetFilterOperator("active", filter.Equal))
	require.NoError(t, s.SetJoinOperator(filter.JoinOr))
	assert.Equal(t, 1, store.writes)

	clock.Advance(time.Second)
	assert.Equal(t, 2, store.writes, "one trailing write")
	assert.Equal(t, []string{"status", "tags"}, readFilters(t, store).IDs(), "operator without a value is not persisted")
	join, _ := store.Read("joinOperator")
	assert.Equal(t, "or", join)
}

func TestSynchronizer_LastWriteWins(t *testing.T) {
	s, store, clock := newTestSync(t, nil, Shallow)

	require.NoError(t, s.UpdateFilterValue("name", filter.Scalar("shi")))
	s.RemoveFilter("name")
	assert.Empty(t, readFilters(t, store))

	clock.Advance(time.Second)
	assert.Empty(t, readFilters(t, store), "stale debounced write is skipped")
	assert.Empty(t, s.Snapshot().Filters)
}

func TestSynchronizer_ClearingValueRemovesFilter(t *testing.T) {
	s, store, clock := newTestSync(t, nil, Shallow)

	require.NoError(t, s.UpdateFilterValue("tags", filter.List("red")))
	clock.Advance(time.Second)
	require.Len(t, readFilters(t, store), 1)

	require.NoError(t, s.UpdateFilterValue("tags", filter.List()))
	clock.Advance(time.Second)
	assert.Empty(t, s.Snapshot().Filters)
	_, ok := store.Read("filters")
	assert.False(t, ok, "parameter removed, not left with a stale operator")
}

func TestSynchronizer_ClearFilters(t *testing.T) {
	s, store, _ := newTestSync(t, nil, Shallow)

	require.NoError(t, s.UpdateFilterValue("tags", filter.List("red")))
	require.NoError(t, s.SetFilterOperator("name", filter.IsEmpty))
	s.Flush()
	require.Len(t, readFilters(t, store), 2)

	s.ClearFilters()
	s.Flush()
	assert.Empty(t, s.Snapshot().Filters)
	_, ok := store.Read("filters")
	assert.False(t, ok)
}

func TestSynchronizer_FilterChangesResetPage(t *testing.T) {
	s, store, _ := newTestSync(t, nil, Shallow)

	s.SetPage(4)
	page, _ := store.Read("page")
	assert.Equal(t, "5", page)

	s.SetSearch("hat")
	assert.Equal(t, 0, s.Snapshot().PageIndex)

	s.SetPage(2)
	s.SetSorting([]Sort{{ID: "price"}})
	assert.Equal(t, 2, s.Snapshot().PageIndex, "sorting keeps the page")

	s.SetPageSize(50)
	assert.Equal(t, 0, s.Snapshot().PageIndex)
	assert.Equal(t, 50, s.Snapshot().PageSize)
}

func TestSynchronizer_ToggleSort(t *testing.T) {
	s, _, _ := newTestSync(t, nil, Shallow)

	s.ToggleSort("price", false)
	assert.Equal(t, []Sort{{ID: "price"}}, s.Snapshot().Sorts)
	s.ToggleSort("price", false)
	assert.Equal(t, []Sort{{ID: "price", Desc: true}}, s.Snapshot().Sorts)
	s.ToggleSort("name", true)
	assert.Equal(t, []Sort{{ID: "price", Desc: true}, {ID: "name"}}, s.Snapshot().Sorts)
	s.ToggleSort("price", true)
	assert.Equal(t, []Sort{{ID: "name"}}, s.Snapshot().Sorts)
	s.ToggleSort("bogus", false)
	assert.Empty(t, s.Snapshot().Sorts, "unsortable column is dropped")
}

func TestSynchronizer_RemoveSort(t *testing.T) {
	s, _, _ := newTestSync(t, nil, Shallow)

	s.SetSorting([]Sort{{ID: "price", Desc: true}, {ID: "name"}})
	s.RemoveSort("price")
	assert.Equal(t, []Sort{{ID: "name"}}, s.Snapshot().Sorts)
	s.RemoveSort("missing")
	assert.Equal(t, []Sort{{ID: "name"}}, s.Snapshot().Sorts)
}

func TestSynchronizer_DeepWritesAddHistory(t *testing.T) {
	s, store, _ := newTestSync(t, nil, Deep)

	s.SetPage(1)
	s.SetPage(2)
	s.SetPage(2)
	assert.Equal(t, 3, store.Len(), "initial entry plus two changes")

	require.True(t, store.Back())
	snap := s.Load()
	assert.Equal(t, 1, snap.PageIndex)
}

func TestSynchronizer_HistoryUpdateInShallowMode(t *testing.T) {
	s, store, _ := newTestSync(t, nil, Shallow)

	s.Update(UpdateHistory, func(snap *Snapshot) { snap.PageIndex = 1 })
	assert.Equal(t, 2, store.Len(), "history update pushes an entry")

	s.SetPage(2)
	assert.Equal(t, 2, store.Len(), "immediate update replaces it")
	v, _ := store.Read("page")
	assert.Equal(t, "3", v)

	require.True(t, store.Back())
	assert.Equal(t, 0, s.Load().PageIndex)
}

func TestSynchronizer_ClearedSortSurvivesReload(t *testing.T) {
	codec := newTestCodec(t, CodecConfig{Defaults: Defaults{Sorts: []Sort{{ID: "createdAt", Desc: true}}}})
	newSync := func(store ParamStore) *Synchronizer {
		return NewSynchronizer(store, codec, SyncConfig{Clock: newManualClock()})
	}

	tests := []struct {
		name  string
		clear func(s *Synchronizer)
	}{
		{"set sorting to nil", func(s *Synchronizer) { s.SetSorting(nil) }},
		{"remove default sort", func(s *Synchronizer) { s.RemoveSort("createdAt") }},
		{"toggle through unsorted", func(s *Synchronizer) {
			s.ToggleSort("price", false)
			s.ToggleSort("price", false)
			s.ToggleSort("price", false)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(nil)
			s := newSync(store)
			require.Equal(t, []Sort{{ID: "createdAt", Desc: true}}, s.Snapshot().Sorts)

			tt.clear(s)
			assert.Empty(t, s.Snapshot().Sorts)
			v, ok := store.Read("sort")
			require.True(t, ok)
			assert.Equal(t, NoSorts, v)

			assert.Empty(t, newSync(store).Snapshot().Sorts)
		})
	}

	t.Run("reset restores the defaults", func(t *testing.T) {
		store := NewMemoryStore(map[string]string{"sort": NoSorts})
		s := newSync(store)
		s.Reset()
		s.Flush()
		_, ok := store.Read("sort")
		assert.False(t, ok)
		assert.Equal(t, []Sort{{ID: "createdAt", Desc: true}}, newSync(store).Snapshot().Sorts)
	})
}

func TestSynchronizer_RejectsInvalidEdits(t *testing.T) {
	s, _, _ := newTestSync(t, nil, Shallow)

	err := s.SetFilterOperator("active", filter.ILike)
	assert.True(t, apperror.IsUnsupportedOperator(err))

	err = s.UpdateFilterValue("ghost", filter.Scalar("x"))
	assert.True(t, apperror.IsNotFound(err))

	err = s.SetFilter(filter.Descriptor{ID: "price", Variant: filter.VariantText, Operator: filter.ILike, Value: filter.Scalar("1")})
	assert.Error(t, err)

	assert.Error(t, s.SetJoinOperator("xor"))
	assert.Empty(t, s.Snapshot().Filters)
}

func TestSynchronizer_FlushAndClose(t *testing.T) {
	s, store, _ := newTestSync(t, nil, Shallow)

	var seen []Snapshot
	s.OnChange(func(snap Snapshot) { seen = append(seen, snap) })

	s.SetSearch("boots")
	_, ok := store.Read("search")
	assert.False(t, ok)

	s.Close()
	v, _ := store.Read("search")
	assert.Equal(t, "boots", v)

	s.SetSearch("ignored")
	assert.Equal(t, "boots", s.Snapshot().Search)
	assert.Len(t, seen, 1)
}

func TestSynchronizer_ResetClearsStore(t *testing.T) {
	s, store, clock := newTestSync(t, map[string]string{"search": "x", "page": "2", "perPage": "50"}, Shallow)

	s.Reset()
	clock.Advance(time.Second)
	assert.Empty(t, store.Values())
}

func TestMemoryStore_History(t *testing.T) {
	store := NewMemoryStore(map[string]string{"a": "1"})
	store.Write("a", "2", Deep)
	store.Write("b", "x", Shallow)
	store.Write("a", "", Deep)

	assert.Equal(t, map[string]string{"b": "x"}, store.Values())
	require.True(t, store.Back())
	assert.Equal(t, map[string]string{"a": "2", "b": "x"}, store.Values())
	require.True(t, store.Back())
	assert.Equal(t, map[string]string{"a": "1"}, store.Values())
	assert.False(t, store.Back())

	store.Write("c", "y", Deep)
	assert.False(t, store.Forward(), "new entry truncates forward history")
	assert.Equal(t, "a=1&c=y", store.Encode())
	assert.Equal(t, []map[string]string{{"a": "1"}, {"a": "1", "c": "y"}}, store.Entries())
}
