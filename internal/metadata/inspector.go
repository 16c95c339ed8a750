package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"datagrid/internal/domain/column"
	"datagrid/internal/domain/filter"
)

// Field tags read by Inspect:
//
//	json:"costPrice"          column id
//	label:"Cost Price"        header, defaults to the split field name
//	filter:"number"           filter variant, "-" disables filtering
//	placeholder:"Filter..."   filter input hint
//	options:"usd|eur|inr"     select options
//	grid:"nosort,nohide"      flags: nosort, nohide, search, nosearch; "-" skips the field
//	db:"cost_price"           storage column

type inspected struct {
	FieldDef
	index  []int
	noSort bool
	noHide bool
	search *bool
	filter bool
}

// Inspect describes the exported fields of struct type T. Embedded structs are
// flattened. Slices of structs are skipped.
func Inspect[T any](name string) (TableDef, error) {
	fields, err := inspect[T]()
	if err != nil {
		return TableDef{}, err
	}
	t := structType[T]()
	if name == "" {
		name = t.Name()
	}
	def := TableDef{Name: name, Label: guessLabel(t.Name()), Fields: make([]FieldDef, len(fields))}
	for i, f := range fields {
		def.Fields[i] = f.FieldDef
	}
	return def, nil
}

// Columns derives column definitions with reflective accessors from T's fields.
func Columns[T any]() ([]column.Def[T], error) {
	fields, err := inspect[T]()
	if err != nil {
		return nil, err
	}
	defs := make([]column.Def[T], len(fields))
	for i, f := range fields {
		d := column.Def[T]{
			ID:            f.Name,
			Label:         f.Label,
			Placeholder:   f.Placeholder,
			Accessor:      accessor[T](f.index),
			DisableFilter: !f.filter,
			DisableSort:   f.noSort,
			DisableHiding: f.noHide,
			Search:        f.search,
		}
		if f.filter {
			d.Variant = f.Variant
		}
		for _, o := range f.Options {
			d.Options = append(d.Options, column.Option{Label: humanize(o), Value: o})
		}
		defs[i] = d
	}
	return defs, nil
}

func structType[T any]() reflect.Type {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func inspect[T any]() ([]inspected, error) {
	t := structType[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("inspect %s: not a struct", t)
	}
	var out []inspected
	if err := inspectStruct(t, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func inspectStruct(t reflect.Type, parent []int, out *[]inspected) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		// Handle embedded structs (flattening), exported or not
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := inspectStruct(field.Type, index, out); err != nil {
				return err
			}
			continue
		}

		if field.PkgPath != "" { // unexported
			continue
		}

		flags := strings.Split(field.Tag.Get("grid"), ",")
		if flags[0] == "-" || jsonName(field) == "-" {
			continue
		}

		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Struct {
			continue
		}

		f := inspected{
			FieldDef: FieldDef{
				Name:        jsonName(field),
				Label:       field.Tag.Get("label"),
				Placeholder: field.Tag.Get("placeholder"),
				Column:      field.Tag.Get("db"),
			},
			index:  index,
			filter: true,
		}
		if f.Label == "" {
			f.Label = guessLabel(field.Name)
		}
		if opts := field.Tag.Get("options"); opts != "" {
			f.Options = strings.Split(opts, "|")
		}
		mapFieldType(&f.FieldDef, field.Name, ft)

		switch v := field.Tag.Get("filter"); v {
		case "":
		case "-":
			f.filter = false
		default:
			f.Variant = filter.Variant(v)
			if !f.Variant.Valid() {
				return fmt.Errorf("field %s: unknown filter variant %q", field.Name, v)
			}
		}
		if f.Variant == filter.VariantText && len(f.Options) > 0 {
			f.Variant = filter.VariantSelect
		}

		for _, flag := range flags {
			applyFlag(&f, flag)
		}

		*out = append(*out, f)
	}
	return nil
}

func applyFlag(f *inspected, flag string) {
	yes, no := true, false
	switch strings.TrimSpace(flag) {
	case "nosort":
		f.noSort = true
	case "nohide":
		f.noHide = true
	case "search":
		f.search = &yes
	case "nosearch":
		f.search = &no
	}
}

var (
	timeType    = reflect.TypeFor[time.Time]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
)

func mapFieldType(def *FieldDef, name string, t reflect.Type) {
	switch t {
	case timeType:
		def.Type = TypeDate
		def.Variant = filter.VariantDate
		return
	case decimalType:
		def.Type = TypeNumber
		def.Scale = 2
		// Check if it's Money by name convention
		if strings.Contains(name, "Amount") || strings.Contains(name, "Price") || strings.Contains(name, "Cost") {
			def.Type = TypeMoney
		}
		def.Variant = filter.VariantNumber
		return
	}

	switch t.Kind() {
	case reflect.String:
		def.Type = TypeString
		def.Variant = filter.VariantText
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		def.Type = TypeInteger
		def.Variant = filter.VariantNumber
	case reflect.Float32, reflect.Float64:
		def.Type = TypeNumber
		def.Scale = 2
		def.Variant = filter.VariantNumber
	case reflect.Bool:
		def.Type = TypeBoolean
		def.Variant = filter.VariantBoolean
	case reflect.Slice, reflect.Array:
		def.Type = TypeList
		def.Variant = filter.VariantMultiSelect
	default:
		def.Type = TypeObject
		def.Variant = filter.VariantText
	}
}

// accessor reads the field at index. A nil embedded pointer yields nil.
func accessor[T any](index []int) func(T) any {
	return func(row T) any {
		v := reflect.ValueOf(row)
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		}
		f, err := v.FieldByIndexErr(index)
		if err != nil {
			return nil
		}
		return f.Interface()
	}
}

func jsonName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("json"); ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			return parts[0]
		}
	}
	// Fallback: camelCase
	runes := []rune(field.Name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// guessLabel splits a Go identifier into words: CostPrice -> "Cost Price",
// SKUCode -> "SKU Code".
func guessLabel(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			acronymEnd := unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || acronymEnd {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// humanize turns an option value into a label: out_of_stock -> "Out of stock".
func humanize(v string) string {
	s := strings.ReplaceAll(v, "_", " ")
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
