// Package selection tracks selected rows and runs bulk actions over them.
package selection

import (
	"context"
	"encoding/json"
	"slices"

	"datagrid/internal/core/apperror"
)

// Selection is a set of row ids. The zero value is empty and ready to use.
type Selection struct {
	ids map[string]struct{}
}

// New returns a selection holding ids.
func New(ids ...string) Selection {
	var s Selection
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

func (s Selection) clone() Selection {
	out := Selection{ids: make(map[string]struct{}, len(s.ids)+1)}
	for id := range s.ids {
		out.ids[id] = struct{}{}
	}
	return out
}

// Add returns s with id selected. Blank ids are ignored.
func (s Selection) Add(id string) Selection {
	if id == "" || s.Has(id) {
		return s
	}
	out := s.clone()
	out.ids[id] = struct{}{}
	return out
}

// Remove returns s without id.
func (s Selection) Remove(id string) Selection {
	if !s.Has(id) {
		return s
	}
	out := s.clone()
	delete(out.ids, id)
	return out
}

// Toggle flips id.
func (s Selection) Toggle(id string) Selection {
	if s.Has(id) {
		return s.Remove(id)
	}
	return s.Add(id)
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids, sorted.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// MarshalJSON encodes the selection as a sorted id array.
func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes an id array.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = New(ids...)
	return nil
}

// ActionBar offers bulk actions over the selected rows of a table.
type ActionBar[T any] struct {
	RowID  func(T) string
	Export func(ctx context.Context, rows []T) error
	Delete func(ctx context.Context, ids []string) error
}

// Selected returns the rows of rows whose ids are selected, in row order.
// Selected ids missing from rows are ignored, so passing the filtered rows
// limits actions to what the user can see.
func (b ActionBar[T]) Selected(rows []T, sel Selection) []T {
	if sel.Len() == 0 {
		return nil
	}
	var out []T
	for _, row := range rows {
		if sel.Has(b.RowID(row)) {
			out = append(out, row)
		}
	}
	return out
}

// Open reports whether the bar has anything to act on.
func (b ActionBar[T]) Open(rows []T, sel Selection) bool {
	return len(b.Selected(rows, sel)) > 0
}

// ExportSelected exports the selected rows and returns how many were exported.
func (b ActionBar[T]) ExportSelected(ctx context.Context, rows []T, sel Selection) (int, error) {
	if b.Export == nil {
		return 0, apperror.NewValidation("export is not available")
	}
	picked := b.Selected(rows, sel)
	if len(picked) == 0 {
		return 0, apperror.NewValidation("no rows selected")
	}
	if err := b.Export(ctx, picked); err != nil {
		return 0, err
	}
	return len(picked), nil
}

// DeleteSelected deletes the selected rows. On success the returned selection
// no longer holds the deleted ids.
func (b ActionBar[T]) DeleteSelected(ctx context.Context, rows []T, sel Selection) (Selection, int, error) {
	if b.Delete == nil {
		return sel, 0, apperror.NewValidation("delete is not available")
	}
	picked := b.Selected(rows, sel)
	if len(picked) == 0 {
		return sel, 0, apperror.NewValidation("no rows selected")
	}
	ids := make([]string, len(picked))
	for i, row := range picked {
		ids[i] = b.RowID(row)
	}
	if err := b.Delete(ctx, ids); err != nil {
		return sel, 0, err
	}
	for _, id := range ids {
		sel = sel.Remove(id)
	}
	return sel, len(ids), nil
}
