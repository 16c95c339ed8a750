package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"datagrid/internal/core/apperror"
	"datagrid/internal/domain"
	"datagrid/internal/domain/column"
	"datagrid/internal/domain/export"
	"datagrid/internal/domain/filter"
	"datagrid/internal/domain/query"
)

type queryOptions struct {
	table   string
	state   string
	filters []string
	join    string
	search  string
	sort    string
	page    int
	perPage int
	reset   bool

	hide     []string
	pinLeft  []string
	pinRight []string

	format string
	out    string
}

// queryResult is the json output: the page plus the canonical state.
type queryResult struct {
	domain.Page
	State string `json:"state"`
}

func newQueryCmd(e *env) *cobra.Command {
	o := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort and page a table",
		Long: `Query applies --state first, then every flag on top of it, in the
order filters, join, search, sort, page size, page.

Filters are written column:operator:value or column:value, where value lists
are comma separated (status:inArray:active,inactive, price:isBetween:10,20).
Operators without a value are written column:isEmpty.

With --format json one page is printed together with the canonical query
string. csv and xlsx export every matching row.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withTable(cmd, o.table, func(t domain.Table) error {
				return runQuery(cmd, e, t, o)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.table, "table", "t", "products", "table name")
	f.StringVar(&o.state, "state", "", "URL query string to start from")
	f.StringArrayVarP(&o.filters, "filter", "f", nil, "column filter, column:operator:value (repeatable)")
	f.StringVar(&o.join, "join", "", "join operator, and|or")
	f.StringVarP(&o.search, "search", "s", "", "global search text")
	f.StringVar(&o.sort, "sort", "", "sort keys, e.g. -createdAt,name")
	f.IntVar(&o.page, "page", 0, "1-based page number")
	f.IntVar(&o.perPage, "per-page", 0, "page size")
	f.BoolVar(&o.reset, "reset", false, "drop --state before applying flags")
	f.StringSliceVar(&o.hide, "hide", nil, "columns to hide")
	f.StringSliceVar(&o.pinLeft, "pin-left", nil, "columns pinned left")
	f.StringSliceVar(&o.pinRight, "pin-right", nil, "columns pinned right")
	f.StringVar(&o.format, "format", "json", "output format, json|csv|xlsx")
	f.StringVarP(&o.out, "out", "o", "", "output file (default stdout; required for xlsx)")
	return cmd
}

func runQuery(cmd *cobra.Command, e *env, t domain.Table, o *queryOptions) error {
	initial, err := parseState(o.state)
	if err != nil {
		return err
	}
	store := query.NewMemoryStore(initial)

	syncer := query.NewSynchronizer(store, t.Codec(), e.cfg.SyncConfig(e.log))
	err = applyFlags(cmd, syncer, t.Capabilities(), o)
	syncer.Close()
	if err != nil {
		return err
	}
	snap := syncer.Snapshot()

	layout := column.Layout{Hidden: o.hide, Left: o.pinLeft, Right: o.pinRight}
	ctx := cmd.Context()

	if o.format == "json" {
		page := t.Query(ctx, snap, layout)
		return printJSON(cmd, queryResult{Page: page, State: store.Encode()})
	}

	format, err := export.ParseFormat(o.format)
	if err != nil {
		return err
	}
	w, closeOut, err := output(cmd, o.out, format)
	if err != nil {
		return err
	}
	n, err := t.Export(ctx, w, format, snap, layout, nil)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	e.log.Infow("table exported", "table", t.Name(), "format", format, "rows", n, "out", o.out)
	return nil
}

// applyFlags replays the flags as state changes.
func applyFlags(cmd *cobra.Command, syncer *query.Synchronizer, caps []column.Capability, o *queryOptions) error {
	if o.reset {
		syncer.Reset()
	}
	for _, raw := range o.filters {
		if err := applyFilter(syncer, caps, raw); err != nil {
			return err
		}
	}
	if o.join != "" {
		if err := syncer.SetJoinOperator(filter.JoinOperator(o.join)); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("search") {
		syncer.SetSearch(o.search)
	}
	if cmd.Flags().Changed("sort") {
		sorts, err := parseSorts(o.sort)
		if err != nil {
			return err
		}
		syncer.SetSorting(sorts)
	}
	if o.perPage > 0 {
		syncer.SetPageSize(o.perPage)
	}
	if o.page > 0 {
		syncer.SetPage(o.page - 1)
	}
	return nil
}

func applyFilter(syncer *query.Synchronizer, caps []column.Capability, raw string) error {
	id, op, value, err := parseFilter(raw)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(caps, func(c column.Capability) bool { return c.ColumnID == id && c.Filterable })
	if i < 0 {
		return apperror.NewNotFound("filterable column", id)
	}
	variant := caps[i].Variant
	if op != "" && !filter.Supports(variant, op) {
		return apperror.NewUnsupportedOperator(string(variant), string(op)).WithDetail("column", id)
	}

	effective := op
	if effective == "" {
		effective = filter.DefaultOperatorFor(variant)
	}
	if !effective.NeedsOperand() {
		return syncer.SetFilterOperator(id, effective)
	}
	return syncer.SetFilter(filter.Descriptor{
		ID:       id,
		Variant:  variant,
		Operator: effective,
		Value:    operandFor(effective, value),
	})
}

// parseFilter splits column:operator:value. A two-part form is column:value,
// unless the second part is an operator that takes no value.
func parseFilter(raw string) (id string, op filter.Operator, value string, err error) {
	parts := strings.SplitN(raw, ":", 3)
	switch len(parts) {
	case 3:
		return parts[0], filter.Operator(parts[1]), parts[2], nil
	case 2:
		if candidate := filter.Operator(parts[1]); !candidate.NeedsOperand() {
			return parts[0], candidate, "", nil
		}
		return parts[0], "", parts[1], nil
	}
	return "", "", "", apperror.NewValidation("filter must be column:operator:value").WithDetail("filter", raw)
}

func operandFor(op filter.Operator, value string) filter.Operand {
	switch op {
	case filter.Between, filter.InArray, filter.NotInArray:
		return filter.List(strings.Split(value, ",")...)
	}
	return filter.Scalar(value)
}

func parseSorts(s string) ([]query.Sort, error) {
	var out []query.Sort
	for _, key := range column.ParseList(s) {
		desc := strings.HasPrefix(key, "-")
		id := strings.TrimPrefix(key, "-")
		if id == "" {
			return nil, apperror.NewValidation("empty sort key").WithDetail("sort", s)
		}
		out = append(out, query.Sort{ID: id, Desc: desc})
	}
	return out, nil
}

// parseState keeps the first value of every parameter.
func parseState(raw string) (map[string]string, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, apperror.NewValidation("invalid --state").WithCause(err)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}

func output(cmd *cobra.Command, path string, format export.Format) (io.Writer, func() error, error) {
	if path == "" {
		if format == export.FormatXLSX {
			return nil, nil, apperror.NewValidation("xlsx output needs --out")
		}
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
