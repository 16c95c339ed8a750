// Package pipeline turns a row collection and a query snapshot into the
// rows of one page: filter, global search, sort, paginate.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"
	"unsafe"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"datagrid/internal/domain/column"
	"datagrid/internal/domain/filter"
	"datagrid/internal/domain/query"
	"datagrid/pkg/logger"
)

var tracer = otel.Tracer("datagrid/pipeline")

// Result is one evaluated page.
type Result[T any] struct {
	Rows []T
	// Matched holds every row that passed filters and search, sorted.
	Matched       []T
	Total         int
	FilteredCount int
	PageIndex     int
	PageSize      int
	PageCount     int
}

// Config tunes a Pipeline.
type Config struct {
	// Location is the zone for calendar-day date filters. Default UTC.
	Location *time.Location
	Logger   *logger.Logger
	// Name labels metrics and spans, usually the table name.
	Name string
}

type memoEntry[T any] struct {
	data *T
	n    int
	key  string
	rows []T
}

// Pipeline evaluates snapshots over rows of type T. It is safe for concurrent
// use. The last matched row set is memoized and reused while the same slice
// is queried with the same filters, search and sorting.
type Pipeline[T any] struct {
	columns *column.Set[T]
	eval    *filter.Evaluator[T]
	loc     *time.Location
	name    string
	log     *logger.Logger

	mu   sync.Mutex
	memo *memoEntry[T]
}

// New creates a Pipeline over the given columns.
func New[T any](columns *column.Set[T], cfg Config) *Pipeline[T] {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	log := cfg.Logger.WithComponent("pipeline")
	p := &Pipeline[T]{
		columns: columns,
		loc:     cfg.Location,
		name:    cfg.Name,
		log:     log,
	}
	p.eval = filter.NewEvaluator[T](columns,
		filter.WithLocation(cfg.Location),
		filter.WithFallbackHook(func(d filter.Descriptor, value any) {
			fallbacks.WithLabelValues(p.name, string(d.Variant), string(d.Operator)).Inc()
			log.Debugw("filter passed through", "column", d.ID, "variant", d.Variant, "operator", d.Operator)
		}),
	)
	return p
}

// Columns returns the column set the pipeline reads.
func (p *Pipeline[T]) Columns() *column.Set[T] { return p.columns }

// Run evaluates snap over rows.
func (p *Pipeline[T]) Run(ctx context.Context, rows []T, snap query.Snapshot) Result[T] {
	ctx, span := tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("table", p.name),
			attribute.Int("rows.total", len(rows)),
			attribute.Int("filters", len(snap.Filters)),
		))
	defer span.End()

	matched := p.Matched(ctx, rows, snap)
	res := Result[T]{
		Matched:       matched,
		Total:         len(rows),
		FilteredCount: len(matched),
		PageIndex:     snap.PageIndex,
		PageSize:      snap.PageSize,
	}
	res.Rows, res.PageCount = paginate(matched, snap.PageIndex, snap.PageSize)

	span.SetAttributes(attribute.Int("rows.matched", len(matched)))
	return res
}

// Matched returns the filtered, searched and sorted rows without paginating.
func (p *Pipeline[T]) Matched(ctx context.Context, rows []T, snap query.Snapshot) []T {
	key := snap.RowKey()
	if cached := p.lookup(rows, key); cached != nil {
		return cached.rows
	}

	start := time.Now()
	out := p.filter(rows, snap)
	out = p.search(out, snap.Search)
	p.sort(out, snap.Sorts)
	evalSeconds.WithLabelValues(p.name).Observe(time.Since(start).Seconds())

	logger.FromContext(ctx).Debugw("rows evaluated",
		"table", p.name, "total", len(rows), "matched", len(out), "elapsed", time.Since(start))

	p.store(rows, key, out)
	return out
}

// Filtered returns the rows passing snap's filters and search, unsorted.
func (p *Pipeline[T]) Filtered(rows []T, snap query.Snapshot) []T {
	return p.search(p.filter(rows, snap), snap.Search)
}

func (p *Pipeline[T]) filter(rows []T, snap query.Snapshot) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if p.eval.MatchesAll(row, snap.Filters, snap.Join) {
			out = append(out, row)
		}
	}
	return out
}

// search keeps rows where any searchable column contains the term,
// case-insensitively. It narrows the filtered rows, whatever the join.
func (p *Pipeline[T]) search(rows []T, term string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}
	cols := p.columns.Searchable()
	out := rows[:0:0]
	for _, row := range rows {
		for _, c := range cols {
			v := c.Accessor(row)
			if filter.IsEmptyValue(v) {
				continue
			}
			if strings.Contains(strings.ToLower(filter.ValueText(v)), term) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func paginate[T any](rows []T, index, size int) ([]T, int) {
	if size <= 0 {
		if len(rows) == 0 {
			return []T{}, 0
		}
		if index == 0 {
			return rows, 1
		}
		return []T{}, 1
	}
	count := (len(rows) + size - 1) / size
	// Compare pages before multiplying: index*size may overflow.
	if index < 0 || index >= count {
		return []T{}, count
	}
	from := index * size
	return rows[from:min(from+size, len(rows))], count
}

func (p *Pipeline[T]) lookup(rows []T, key string) *memoEntry[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.memo
	if m != nil && m.data == unsafe.SliceData(rows) && m.n == len(rows) && m.key == key {
		memoHits.WithLabelValues(p.name).Inc()
		return m
	}
	return nil
}

func (p *Pipeline[T]) store(rows []T, key string, out []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memo = &memoEntry[T]{data: unsafe.SliceData(rows), n: len(rows), key: key, rows: out}
}

// Invalidate drops the memoized result. Call it after mutating rows in place.
func (p *Pipeline[T]) Invalidate() {
	p.mu.Lock()
	p.memo = nil
	p.mu.Unlock()
}
