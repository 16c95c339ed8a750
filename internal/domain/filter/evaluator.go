package filter

import (
	"slices"
	"strings"
	"time"
)

// FallbackHook is called when a descriptor reaches no evaluation rule:
// an unknown variant, an operator the variant does not handle, or a column
// without an accessor. The row is kept.
type FallbackHook func(d Descriptor, value any)

// Option configures a Matcher.
type Option func(*Matcher)

// WithLocation sets the time zone used for calendar-day comparisons. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(m *Matcher) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithFallbackHook registers a hook for permissive fallbacks.
func WithFallbackHook(h FallbackHook) Option {
	return func(m *Matcher) {
		m.fallback = h
	}
}

// Matcher decides whether a single value satisfies a descriptor.
// It never panics: values that cannot be coerced do not match.
type Matcher struct {
	loc      *time.Location
	fallback FallbackHook
}

// NewMatcher creates a Matcher.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{loc: time.UTC}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match is a convenience wrapper around NewMatcher(opts...).Match.
func Match(value any, d Descriptor, opts ...Option) bool {
	return NewMatcher(opts...).Match(value, d)
}

// Match reports whether value satisfies d.
func (m *Matcher) Match(value any, d Descriptor) bool {
	value = indirect(value)

	switch d.Operator {
	case IsEmpty:
		return isEmptyValue(value)
	case IsNotEmpty:
		return !isEmptyValue(value)
	}
	if value == nil {
		return false
	}
	if !evaluable(d.Variant, d.Operator) {
		return m.pass(d, value)
	}

	switch d.Variant {
	case VariantText:
		return m.matchText(value, d)
	case VariantNumber, VariantRange:
		return m.matchNumber(value, d)
	case VariantDate, VariantDateRange:
		return m.matchDate(value, d)
	case VariantSelect, VariantMultiSelect:
		return m.matchSelect(value, d)
	default:
		return m.matchBoolean(value, d)
	}
}

// evaluationRules lists the operators each variant has a rule for. It is wider
// than the registry: select columns also answer membership operators.
var evaluationRules = map[Variant][]Operator{
	VariantText:        {ILike, NotILike, Equal, NotEqual},
	VariantNumber:      {Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual, Between},
	VariantRange:       {Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual, Between},
	VariantDate:        {Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual, Between},
	VariantDateRange:   {Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual, Between},
	VariantSelect:      {Equal, NotEqual, InArray, NotInArray},
	VariantMultiSelect: {Equal, NotEqual, InArray, NotInArray},
	VariantBoolean:     {Equal, NotEqual},
}

func evaluable(v Variant, op Operator) bool {
	return slices.Contains(evaluationRules[v], op)
}

func (m *Matcher) pass(d Descriptor, value any) bool {
	if m.fallback != nil {
		m.fallback(d, value)
	}
	return true
}

func (m *Matcher) matchText(value any, d Descriptor) bool {
	s := strings.ToLower(toText(value))
	needle := strings.ToLower(d.Value.String())

	switch d.Operator {
	case ILike:
		return strings.Contains(s, needle)
	case NotILike:
		return !strings.Contains(s, needle)
	case Equal:
		return s == needle
	default:
		return s != needle
	}
}

func (m *Matcher) matchNumber(value any, d Descriptor) bool {
	v, ok := toNumber(value)
	if !ok {
		return false
	}

	if d.Operator == Between {
		lo, hi, ok := d.Value.Bounds()
		if !ok {
			return false
		}
		from, okFrom := toNumber(lo)
		to, okTo := toNumber(hi)
		if !okFrom || !okTo {
			return false
		}
		return v >= from && v <= to
	}

	operand, ok := toNumber(d.Value.String())
	if !ok {
		return false
	}
	switch d.Operator {
	case Equal:
		return v == operand
	case NotEqual:
		return v != operand
	case Less:
		return v < operand
	case LessOrEqual:
		return v <= operand
	case Greater:
		return v > operand
	default:
		return v >= operand
	}
}

func (m *Matcher) matchDate(value any, d Descriptor) bool {
	t, ok := toTime(value, m.loc)
	if !ok {
		return false
	}
	t = t.In(m.loc)

	if d.Operator == Between {
		lo, hi, ok := d.Value.Bounds()
		if !ok {
			return false
		}
		if lo != "" {
			from, ok := toTime(lo, m.loc)
			if !ok {
				return false
			}
			if t.Before(m.startOfDay(from)) {
				return false
			}
		}
		if hi != "" {
			to, ok := toTime(hi, m.loc)
			if !ok {
				return false
			}
			if !t.Before(m.startOfNextDay(to)) {
				return false
			}
		}
		return true
	}

	operand, ok := toTime(d.Value.String(), m.loc)
	if !ok {
		return false
	}
	start, next := m.startOfDay(operand), m.startOfNextDay(operand)
	sameDay := !t.Before(start) && t.Before(next)

	switch d.Operator {
	case Equal:
		return sameDay
	case NotEqual:
		return !sameDay
	case Less:
		return t.Before(start)
	case LessOrEqual:
		return t.Before(next)
	case Greater:
		return !t.Before(next)
	default:
		return !t.Before(start)
	}
}

func (m *Matcher) startOfDay(t time.Time) time.Time {
	y, mo, d := t.In(m.loc).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, m.loc)
}

func (m *Matcher) startOfNextDay(t time.Time) time.Time {
	return m.startOfDay(t).AddDate(0, 0, 1)
}

func (m *Matcher) matchSelect(value any, d Descriptor) bool {
	candidates := d.Value.Values()

	switch d.Operator {
	case Equal:
		return slices.Contains(candidates, toText(value))
	case NotEqual:
		return !slices.Contains(candidates, toText(value))
	case InArray:
		return anyCandidate(value, candidates)
	default:
		return !anyCandidate(value, candidates)
	}
}

// anyCandidate matches a scalar by membership and a collection when any of
// its elements is a candidate.
func anyCandidate(value any, candidates []string) bool {
	items, ok := elements(value)
	if !ok {
		return slices.Contains(candidates, toText(value))
	}
	for _, item := range items {
		if item != nil && slices.Contains(candidates, toText(item)) {
			return true
		}
	}
	return false
}

func (m *Matcher) matchBoolean(value any, d Descriptor) bool {
	row, ok := toBool(value)
	if !ok {
		return false
	}
	want, ok := parseBoolOperand(d.Value.String())
	if !ok {
		return false
	}
	if d.Operator == Equal {
		return row == want
	}
	return row != want
}

// Accessors resolves a column identifier to its row accessor.
type Accessors[T any] interface {
	Accessor(columnID string) (func(T) any, bool)
}

// AccessorMap is a map-backed Accessors.
type AccessorMap[T any] map[string]func(T) any

// Accessor implements Accessors.
func (m AccessorMap[T]) Accessor(columnID string) (func(T) any, bool) {
	fn, ok := m[columnID]
	return fn, ok && fn != nil
}

// Evaluator applies descriptors to typed rows through column accessors.
type Evaluator[T any] struct {
	matcher   *Matcher
	accessors Accessors[T]
}

// NewEvaluator creates an Evaluator over the given accessors.
func NewEvaluator[T any](accessors Accessors[T], opts ...Option) *Evaluator[T] {
	return &Evaluator[T]{matcher: NewMatcher(opts...), accessors: accessors}
}

// Matches reports whether the row's value for columnID satisfies d.
func (e *Evaluator[T]) Matches(row T, columnID string, d Descriptor) bool {
	get, ok := e.accessors.Accessor(columnID)
	if !ok {
		return e.matcher.pass(d, nil)
	}
	return e.matcher.Match(get(row), d)
}

// MatchesAll combines every descriptor of set with join. An empty set
// matches every row under both joins. Unknown joins behave as AND.
func (e *Evaluator[T]) MatchesAll(row T, set Set, join JoinOperator) bool {
	if len(set) == 0 {
		return true
	}
	if join == JoinOr {
		for _, d := range set {
			if e.Matches(row, d.ID, d) {
				return true
			}
		}
		return false
	}
	for _, d := range set {
		if !e.Matches(row, d.ID, d) {
			return false
		}
	}
	return true
}
