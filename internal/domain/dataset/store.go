// Package dataset holds a table's in-memory row collection.
package dataset

import (
	"slices"
	"sync/atomic"
)

// Store is a copy-on-write row collection. Readers get an immutable slice;
// every change publishes a fresh slice, so memoized views keyed on the slice
// reference invalidate on their own.
type Store[T any] struct {
	rows    atomic.Pointer[[]T]
	version atomic.Uint64
	rowID   func(T) string
}

// NewStore creates a store holding rows.
func NewStore[T any](rowID func(T) string, rows []T) *Store[T] {
	s := &Store[T]{rowID: rowID}
	s.Replace(rows)
	return s
}

// Rows returns the current collection. Callers must not modify it.
func (s *Store[T]) Rows() []T {
	if p := s.rows.Load(); p != nil {
		return *p
	}
	return nil
}

// Version increments on every change.
func (s *Store[T]) Version() uint64 { return s.version.Load() }

// Len returns the number of rows.
func (s *Store[T]) Len() int { return len(s.Rows()) }

// Replace publishes a copy of rows.
func (s *Store[T]) Replace(rows []T) {
	fresh := slices.Clone(rows)
	if fresh == nil {
		fresh = []T{}
	}
	s.rows.Store(&fresh)
	s.version.Add(1)
}

// Find returns the row with the given id.
func (s *Store[T]) Find(id string) (T, bool) {
	for _, row := range s.Rows() {
		if s.rowID(row) == id {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// Delete removes the rows with the given ids and returns how many were removed.
func (s *Store[T]) Delete(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	for {
		cur := s.rows.Load()
		var old []T
		if cur != nil {
			old = *cur
		}
		fresh := make([]T, 0, len(old))
		for _, row := range old {
			if _, gone := drop[s.rowID(row)]; !gone {
				fresh = append(fresh, row)
			}
		}
		removed := len(old) - len(fresh)
		if removed == 0 {
			return 0
		}
		if s.rows.CompareAndSwap(cur, &fresh) {
			s.version.Add(1)
			return removed
		}
	}
}
