package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Operand is the value side of a descriptor: a scalar, or a list used for
// range bounds and multi-select candidates. Numbers are kept in their
// decimal text form so values round-trip through the query string unchanged.
type Operand struct {
	scalar string
	list   []string
	isList bool
}

// Scalar returns a single-value operand.
func Scalar(s string) Operand {
	return Operand{scalar: s}
}

// List returns a multi-value operand.
func List(values ...string) Operand {
	return Operand{list: slices.Clone(values), isList: true}
}

// Range returns a two-element operand with inclusive bounds.
// Either bound may be empty.
func Range(lo, hi string) Operand {
	return List(lo, hi)
}

// IsList reports whether the operand was built as a list.
func (o Operand) IsList() bool { return o.isList }

// String returns the scalar text. Lists are joined with commas.
func (o Operand) String() string {
	if o.isList {
		return strings.Join(o.list, ",")
	}
	return o.scalar
}

// Values normalizes the operand to a candidate list: a non-empty scalar
// becomes a one-element list.
func (o Operand) Values() []string {
	if o.isList {
		return slices.Clone(o.list)
	}
	if o.scalar == "" {
		return nil
	}
	return []string{o.scalar}
}

// Bounds returns the two range bounds. ok is false unless the operand is a
// list of exactly two elements.
func (o Operand) Bounds() (lo, hi string, ok bool) {
	if !o.isList || len(o.list) != 2 {
		return "", "", false
	}
	return o.list[0], o.list[1], true
}

// IsEmpty reports whether the operand carries nothing: an empty string,
// an empty list, or a list of empty strings.
func (o Operand) IsEmpty() bool {
	if !o.isList {
		return strings.TrimSpace(o.scalar) == ""
	}
	for _, v := range o.list {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Equal compares two operands by shape and content.
func (o Operand) Equal(other Operand) bool {
	if o.isList != other.isList {
		return false
	}
	if o.isList {
		return slices.Equal(o.list, other.list)
	}
	return o.scalar == other.scalar
}

// MarshalJSON encodes scalars as strings and lists as string arrays.
func (o Operand) MarshalJSON() ([]byte, error) {
	if o.isList {
		list := o.list
		if list == nil {
			list = []string{}
		}
		return json.Marshal(list)
	}
	return json.Marshal(o.scalar)
}

// UnmarshalJSON accepts a string, number, boolean, null, or an array of
// strings, numbers and nulls.
func (o *Operand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = Operand{}
		return nil
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("operand list: %w", err)
		}
		list := make([]string, 0, len(raw))
		for i, item := range raw {
			s, err := scalarText(item)
			if err != nil {
				return fmt.Errorf("operand list element %d: %w", i, err)
			}
			list = append(list, s)
		}
		*o = Operand{list: list, isList: true}
		return nil
	}

	s, err := scalarText(data)
	if err != nil {
		return err
	}
	*o = Operand{scalar: s}
	return nil
}

func scalarText(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return "", nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		return string(data), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("unsupported operand %s", data)
	}
	return n.String(), nil
}
