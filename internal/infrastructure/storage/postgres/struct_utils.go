package postgres

import (
	"database/sql/driver"
	"reflect"
	"sync"
	"time"
)

// fieldInfo is one stored column of a struct.
type fieldInfo struct {
	index []int
	dbTag string
}

var (
	typeCache  sync.Map // map[reflect.Type][]fieldInfo
	valuerType = reflect.TypeFor[driver.Valuer]()
	timeType   = reflect.TypeFor[time.Time]()
)

// ExtractDBColumns returns the stored column names of T from its "db" tags,
// in field order. Embedded structs are flattened. Tagged struct fields that
// are neither times nor driver.Valuer (joined records such as an owner) are
// not stored columns and are skipped.
func ExtractDBColumns[T any]() []string {
	fields := fieldsOf(reflect.TypeFor[T]())
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.dbTag
	}
	return cols
}

// StructToMap maps stored column names to field values.
func StructToMap(v any) map[string]any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	fields := fieldsOf(rv.Type())
	res := make(map[string]any, len(fields))
	for _, f := range fields {
		res[f.dbTag] = rv.FieldByIndex(f.index).Interface()
	}
	return res
}

// StructValues returns field values in ExtractDBColumns order, ready for COPY.
func StructValues(v any) []any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	fields := fieldsOf(rv.Type())
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = rv.FieldByIndex(f.index).Interface()
	}
	return out
}

func fieldsOf(t reflect.Type) []fieldInfo {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	var fields []fieldInfo
	if t.Kind() == reflect.Struct {
		fields = collect(t, nil)
	}
	typeCache.Store(t, fields)
	return fields
}

func collect(t reflect.Type, prefix []int) []fieldInfo {
	var out []fieldInfo
	for i := range t.NumField() {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			out = append(out, collect(field.Type, index)...)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" || isJoined(field.Type) {
			continue
		}
		out = append(out, fieldInfo{index: index, dbTag: tag})
	}
	return out
}

func isJoined(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != timeType && !t.Implements(valuerType) && !reflect.PointerTo(t).Implements(valuerType)
}
