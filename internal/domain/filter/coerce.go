package filter

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// lower folds keywords such as join operators and boolean literals.
// Text operands are only lower-cased, never trimmed.
func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// indirect dereferences pointers. A nil pointer yields nil.
func indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// isEmptyValue is the universal emptiness rule: nil, "", or a zero-length collection.
func isEmptyValue(v any) bool {
	v = indirect(v)
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// elements returns the members of a collection value. ok is false for scalars.
// Strings and byte slices are scalars.
func elements(v any) ([]any, bool) {
	switch v.(type) {
	case string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = indirect(rv.Index(i).Interface())
	}
	return out, true
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	if items, ok := elements(v); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = toText(item)
		}
		return strings.Join(parts, ",")
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

func toNumber(v any) (float64, bool) {
	var (
		f   float64
		err error
	)
	switch x := v.(type) {
	case decimal.Decimal:
		f = x.InexactFloat64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	case time.Time:
		return 0, false
	default:
		f, err = cast.ToFloat64E(v)
	}
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// toTime accepts time values, parseable strings, and integers as
// millisecond epochs.
func toTime(v any, loc *time.Location) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).In(loc), true
		}
		t, err := cast.ToTimeInDefaultLocationE(s, loc)
		return t, err == nil
	case int, int32, int64, uint, uint32, uint64:
		ms, err := cast.ToInt64E(x)
		return time.UnixMilli(ms).In(loc), err == nil
	case float32, float64:
		f, _ := cast.ToFloat64E(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(f)).In(loc), true
	}
	return time.Time{}, false
}

func toBool(v any) (bool, bool) {
	b, err := cast.ToBoolE(v)
	return b, err == nil
}

// parseBoolOperand accepts only the literals the boolean widget writes.
func parseBoolOperand(s string) (bool, bool) {
	switch lower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Exported coercions, shared with sorting, search and facets so they read
// row values the same way filters do.

// IsEmptyValue reports whether v is nil, "", or an empty collection.
func IsEmptyValue(v any) bool { return isEmptyValue(v) }

// ValueText renders v as text; collections are comma-joined.
func ValueText(v any) string { return toText(indirect(v)) }

// ValueNumber coerces v to a float. ok is false for non-numeric values.
func ValueNumber(v any) (float64, bool) {
	v = indirect(v)
	if v == nil {
		return 0, false
	}
	return toNumber(v)
}

// ValueTime coerces v to a time in loc.
func ValueTime(v any, loc *time.Location) (time.Time, bool) {
	v = indirect(v)
	if v == nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	return toTime(v, loc)
}

// ValueElements returns the members of a collection value.
func ValueElements(v any) ([]any, bool) { return elements(indirect(v)) }

// Indirect dereferences pointers; a nil pointer yields nil.
func Indirect(v any) any { return indirect(v) }
