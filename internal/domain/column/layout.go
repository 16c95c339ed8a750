package column

import (
	"slices"
	"strings"
)

// Layout holds a table's column visibility, order and pinning.
type Layout struct {
	Hidden []string `json:"hidden,omitempty"`
	Order  []string `json:"order,omitempty"`
	Left   []string `json:"left,omitempty"`
	Right  []string `json:"right,omitempty"`
}

// ParseList splits a comma-separated id list, dropping blanks.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Arrange returns the visible columns of s in display order: left-pinned
// columns first, then the rest by Order (unlisted columns keep their
// position), then right-pinned columns. Columns that cannot be hidden
// stay visible.
func Arrange[T any](s *Set[T], l Layout) []Def[T] {
	defs := s.Defs()

	rank := func(id string) int {
		if i := slices.Index(l.Order, id); i >= 0 {
			return i
		}
		return len(l.Order)
	}
	slices.SortStableFunc(defs, func(a, b Def[T]) int {
		return rank(a.ID) - rank(b.ID)
	})

	defs = slices.DeleteFunc(defs, func(d Def[T]) bool {
		return !d.DisableHiding && slices.Contains(l.Hidden, d.ID)
	})

	var left, center, right []Def[T]
	for _, d := range defs {
		switch {
		case slices.Contains(l.Left, d.ID):
			left = append(left, d)
		case slices.Contains(l.Right, d.ID):
			right = append(right, d)
		default:
			center = append(center, d)
		}
	}
	byPin := func(pins []string) func(a, b Def[T]) int {
		return func(a, b Def[T]) int {
			return slices.Index(pins, a.ID) - slices.Index(pins, b.ID)
		}
	}
	slices.SortStableFunc(left, byPin(l.Left))
	slices.SortStableFunc(right, byPin(l.Right))

	out := make([]Def[T], 0, len(defs))
	out = append(out, left...)
	out = append(out, center...)
	return append(out, right...)
}
