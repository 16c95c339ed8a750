package filter

import (
	"slices"

	"datagrid/internal/core/id"
)

// Set is the ordered active filter set, unique by column id.
// Order matters for serialization only. Methods never modify the receiver.
type Set []Descriptor

// Upsert returns a set with d in place of any descriptor for the same column.
// An empty d removes the column's descriptor instead. A replacement keeps the
// previous FilterID when d has none.
func (s Set) Upsert(d Descriptor) Set {
	if d.Empty() {
		return s.Remove(d.ID)
	}

	out := slices.Clone(s)
	for i := range out {
		if out[i].ID != d.ID {
			continue
		}
		if d.FilterID == "" {
			d.FilterID = out[i].FilterID
		}
		out[i] = d
		return out
	}

	if d.FilterID == "" {
		d.FilterID = id.Token()
	}
	return append(out, d)
}

// Remove returns a set without the descriptor for columnID.
func (s Set) Remove(columnID string) Set {
	return slices.DeleteFunc(slices.Clone(s), func(d Descriptor) bool {
		return d.ID == columnID
	})
}

// RemoveByFilterID returns a set without the descriptor carrying filterID.
func (s Set) RemoveByFilterID(filterID string) Set {
	return slices.DeleteFunc(slices.Clone(s), func(d Descriptor) bool {
		return d.FilterID == filterID
	})
}

// Get returns the descriptor for columnID.
func (s Set) Get(columnID string) (Descriptor, bool) {
	for _, d := range s {
		if d.ID == columnID {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ByFilterID returns the descriptor carrying filterID.
func (s Set) ByFilterID(filterID string) (Descriptor, bool) {
	for _, d := range s {
		if d.FilterID == filterID {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Valid returns the descriptors that pass Validate and are not empty,
// keeping the first descriptor per column.
func (s Set) Valid() Set {
	out := make(Set, 0, len(s))
	seen := make(map[string]struct{}, len(s))
	for _, d := range s {
		if d.Empty() || Validate(d) != nil {
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out
}

// IDs returns the column ids in set order.
func (s Set) IDs() []string {
	ids := make([]string, len(s))
	for i, d := range s {
		ids[i] = d.ID
	}
	return ids
}

// Equal compares two sets descriptor by descriptor, including order.
func (s Set) Equal(other Set) bool {
	return slices.EqualFunc(s, other, func(a, b Descriptor) bool {
		return a.ID == b.ID && a.Variant == b.Variant && a.Operator == b.Operator &&
			a.FilterID == b.FilterID && a.Value.Equal(b.Value)
	})
}
