package column

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"datagrid/internal/core/apperror"
)

// Computed returns def with an accessor that evaluates a CEL expression over
// the columns of base, addressed as row.<id>, e.g.
//
//	row.retailPrice - row.costPrice
//
// Numbers reach the expression as doubles. Evaluation errors yield nil.
func Computed[T any](base *Set[T], def Def[T], expr string) (Def[T], error) {
	env, err := cel.NewEnv(cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return Def[T]{}, fmt.Errorf("create cel env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Def[T]{}, apperror.NewValidation("invalid column expression").
			WithDetail("column", def.ID).
			WithDetail("expr", expr).
			WithCause(iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return Def[T]{}, fmt.Errorf("build cel program for %s: %w", def.ID, err)
	}

	type input struct {
		id  string
		get func(T) any
	}
	var inputs []input
	for _, d := range base.Defs() {
		if d.Accessor != nil && d.ID != def.ID && strings.Contains(expr, d.ID) {
			inputs = append(inputs, input{d.ID, d.Accessor})
		}
	}

	def.Accessor = func(row T) any {
		vars := make(map[string]any, len(inputs))
		for _, in := range inputs {
			vars[in.id] = celValue(in.get(row))
		}
		out, _, err := prg.Eval(map[string]any{"row": vars})
		if err != nil {
			return nil
		}
		return out.Value()
	}
	return def, nil
}

// celValue converts row values into types the CEL runtime adapts natively.
func celValue(v any) any {
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
	v = rv.Interface()

	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case time.Time, string, bool, []string:
		return x
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprint(v)
}
