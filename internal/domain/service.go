package domain

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain/column"
	"datagrid/internal/domain/dataset"
	"datagrid/internal/domain/export"
	"datagrid/internal/domain/filter"
	"datagrid/internal/domain/pipeline"
	"datagrid/internal/domain/query"
	"datagrid/internal/domain/selection"
	"datagrid/internal/metadata"
	"datagrid/pkg/logger"
)

// Table is the type-erased view of a TableService used by transports.
type Table interface {
	Name() string
	Describe() metadata.TableDef
	Capabilities() []column.Capability
	Codec() *query.Codec
	Len() int

	Query(ctx context.Context, snap query.Snapshot, layout column.Layout) Page
	Facet(ctx context.Context, snap query.Snapshot, columnID string, opts pipeline.FacetOptions) (pipeline.Facet, error)
	// Export writes the filtered and sorted rows. A non-nil selection limits
	// the file to selected rows. It returns the number of rows written.
	Export(ctx context.Context, w io.Writer, f export.Format, snap query.Snapshot, layout column.Layout, sel *selection.Selection) (int, error)
	// DeleteSelected deletes the selected rows among those matching snap.
	DeleteSelected(ctx context.Context, snap query.Snapshot, sel selection.Selection) (selection.Selection, int, error)
	Reload(ctx context.Context) error
}

// TableService serves one table over rows of type T.
type TableService[T any] struct {
	def      metadata.TableDef
	columns  *column.Set[T]
	rowID    func(T) string
	store    *dataset.Store[T]
	repo     RowRepository[T]
	pipeline *pipeline.Pipeline[T]
	codec    *query.Codec
	loc      *time.Location
	sheet    string
	log      *logger.Logger
}

// TableServiceConfig configures a table service.
type TableServiceConfig[T any] struct {
	Name    string
	Label   string
	Columns *column.Set[T]
	RowID   func(T) string
	// Rows seeds the table. Ignored when Repo is set; call Reload instead.
	Rows []T
	// Repo is optional. Without one, deletes only affect memory.
	Repo          RowRepository[T]
	Defaults      query.Defaults
	Keys          query.Keys
	CompressAbove int
	Location      *time.Location
	Logger        *logger.Logger
	// SheetName names the XLSX export sheet. Default "Data".
	SheetName string
	// Describe is reported by Describe; Name and Label are filled in.
	Describe metadata.TableDef
}

// NewTableService creates a table service.
func NewTableService[T any](cfg TableServiceConfig[T]) (*TableService[T], error) {
	if cfg.Name == "" || cfg.Columns == nil || cfg.RowID == nil {
		return nil, apperror.NewValidation("table name, columns and row id are required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	log := cfg.Logger.With("table", cfg.Name)

	codec, err := query.NewCodec(cfg.Columns, query.CodecConfig{
		Keys:          cfg.Keys,
		Defaults:      cfg.Defaults,
		CompressAbove: cfg.CompressAbove,
		OnDrop: func(e *apperror.AppError) {
			log.Warnw("dropped query parameter", "code", e.Code, "reason", e.Message, "details", e.Details)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", cfg.Name, err)
	}

	def := cfg.Describe
	def.Name = cfg.Name
	if cfg.Label != "" {
		def.Label = cfg.Label
	}
	if len(def.Fields) == 0 {
		def.Fields = fieldsFromColumns(cfg.Columns)
	}
	if len(cfg.Defaults.Sorts) > 0 && def.DefaultSort == "" {
		def.DefaultSort = codec.EncodeSorts(cfg.Defaults.Sorts)
	}

	return &TableService[T]{
		def:     def,
		columns: cfg.Columns,
		rowID:   cfg.RowID,
		store:   dataset.NewStore(cfg.RowID, cfg.Rows),
		repo:    cfg.Repo,
		pipeline: pipeline.New(cfg.Columns, pipeline.Config{
			Location: cfg.Location,
			Logger:   log,
			Name:     cfg.Name,
		}),
		codec: codec,
		loc:   cfg.Location,
		sheet: cfg.SheetName,
		log:   log,
	}, nil
}

func fieldsFromColumns[T any](set *column.Set[T]) []metadata.FieldDef {
	var out []metadata.FieldDef
	for _, d := range set.Defs() {
		if d.Accessor == nil {
			continue
		}
		out = append(out, metadata.FieldDef{Name: d.ID, Label: d.Header(), Variant: d.Variant, Placeholder: d.Placeholder})
	}
	return out
}

func (s *TableService[T]) Name() string                    { return s.def.Name }
func (s *TableService[T]) Describe() metadata.TableDef     { return s.def }
func (s *TableService[T]) Codec() *query.Codec             { return s.codec }
func (s *TableService[T]) Len() int                        { return s.store.Len() }
func (s *TableService[T]) Columns() *column.Set[T]         { return s.columns }
func (s *TableService[T]) Pipeline() *pipeline.Pipeline[T] { return s.pipeline }

// Capabilities resolves every column.
func (s *TableService[T]) Capabilities() []column.Capability {
	return column.ResolveAll(s.columns)
}

// Rows returns the current row collection.
func (s *TableService[T]) Rows() []T { return s.store.Rows() }

// Run evaluates snap over the current rows.
func (s *TableService[T]) Run(ctx context.Context, snap query.Snapshot) pipeline.Result[T] {
	return s.pipeline.Run(ctx, s.store.Rows(), s.codec.Sanitize(snap))
}

// Query evaluates snap and projects the page through layout.
func (s *TableService[T]) Query(ctx context.Context, snap query.Snapshot, layout column.Layout) Page {
	snap = s.codec.Sanitize(snap)
	res := s.pipeline.Run(ctx, s.store.Rows(), snap)
	cols := column.Arrange(s.columns, layout)

	page := Page{
		Columns:       make([]string, 0, len(cols)),
		Rows:          make([]map[string]any, len(res.Rows)),
		RowIDs:        make([]string, len(res.Rows)),
		TotalCount:    res.Total,
		FilteredCount: res.FilteredCount,
		PageIndex:     res.PageIndex,
		PageSize:      res.PageSize,
		PageCount:     res.PageCount,
		Query:         make(map[string]string),
	}
	for _, d := range cols {
		page.Columns = append(page.Columns, d.ID)
	}
	for i, row := range res.Rows {
		page.Rows[i] = project(row, cols)
		page.RowIDs[i] = s.rowID(row)
	}
	for k, v := range s.codec.Encode(snap) {
		if v != "" {
			page.Query[k] = v
		}
	}
	return page
}

func project[T any](row T, cols []column.Def[T]) map[string]any {
	m := make(map[string]any, len(cols))
	for _, d := range cols {
		if d.Accessor != nil {
			m[d.ID] = filter.Indirect(d.Accessor(row))
		}
	}
	return m
}

// Facet summarizes a column over the rows matching snap.
func (s *TableService[T]) Facet(ctx context.Context, snap query.Snapshot, columnID string, opts pipeline.FacetOptions) (pipeline.Facet, error) {
	return s.pipeline.Facets(ctx, s.store.Rows(), s.codec.Sanitize(snap), columnID, opts)
}

// Export writes the matching rows, or the selected ones among them.
func (s *TableService[T]) Export(ctx context.Context, w io.Writer, f export.Format, snap query.Snapshot, layout column.Layout, sel *selection.Selection) (int, error) {
	rows := s.pipeline.Matched(ctx, s.store.Rows(), s.codec.Sanitize(snap))
	cols := column.Arrange(s.columns, layout)
	opts := export.Options{Location: s.loc, SheetName: s.sheet}

	if sel != nil {
		bar := selection.ActionBar[T]{
			RowID: s.rowID,
			Export: func(_ context.Context, picked []T) error {
				return export.Write(w, f, picked, cols, opts)
			},
		}
		return bar.ExportSelected(ctx, rows, *sel)
	}

	if err := export.Write(w, f, rows, cols, opts); err != nil {
		return 0, err
	}
	s.log.Debugw("table exported", "format", f, "rows", len(rows))
	return len(rows), nil
}

// DeleteSelected deletes the selected rows that match snap, from the
// repository first when there is one.
func (s *TableService[T]) DeleteSelected(ctx context.Context, snap query.Snapshot, sel selection.Selection) (selection.Selection, int, error) {
	rows := s.pipeline.Filtered(s.store.Rows(), s.codec.Sanitize(snap))
	bar := selection.ActionBar[T]{
		RowID: s.rowID,
		Delete: func(ctx context.Context, ids []string) error {
			if s.repo != nil {
				if _, err := s.repo.Delete(ctx, ids); err != nil {
					return err
				}
			}
			s.store.Delete(ids...)
			return nil
		},
	}
	rest, n, err := bar.DeleteSelected(ctx, rows, sel)
	if err != nil {
		return sel, 0, err
	}
	logger.Info(ctx, "rows deleted", "table", s.def.Name, "count", n)
	return rest, n, nil
}

// Reload replaces the rows with the repository's. Without a repository it is a no-op.
func (s *TableService[T]) Reload(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("reload %s: %w", s.def.Name, err)
	}
	s.store.Replace(rows)
	s.log.Infow("table loaded", "rows", len(rows))
	return nil
}

// Tables is the set of served tables.
type Tables struct {
	mu     sync.RWMutex
	tables map[string]Table
	meta   *metadata.Registry
}

// NewTables creates an empty table set.
func NewTables() *Tables {
	return &Tables{tables: make(map[string]Table), meta: metadata.NewRegistry()}
}

// Register adds t, replacing any table with the same name.
func (ts *Tables) Register(t Table) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.tables[t.Name()] = t
	ts.meta.Register(t.Describe())
}

// Get returns a table by name.
func (ts *Tables) Get(name string) (Table, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.tables[name]
	if !ok {
		return nil, apperror.NewNotFound("table", name)
	}
	return t, nil
}

// Describe lists the registered tables, sorted by name.
func (ts *Tables) Describe() []metadata.TableDef {
	return ts.meta.List()
}

// Reload reloads one table from its repository.
func (ts *Tables) Reload(ctx context.Context, name string) error {
	t, err := ts.Get(name)
	if err != nil {
		return err
	}
	return t.Reload(ctx)
}

// ReloadAll reloads every table from its repository.
func (ts *Tables) ReloadAll(ctx context.Context) error {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	for _, t := range ts.tables {
		if err := t.Reload(ctx); err != nil {
			return err
		}
	}
	return nil
}
