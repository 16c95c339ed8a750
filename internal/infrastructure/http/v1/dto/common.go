// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"datagrid/internal/domain/column"
	"datagrid/internal/domain/pipeline"
	"datagrid/internal/domain/selection"
	"datagrid/internal/metadata"
)

// SuccessResponse acknowledges an action without a payload.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// LayoutQuery carries column visibility, order and pinning as
// comma-separated id lists.
type LayoutQuery struct {
	Hide     string `form:"hide"`
	Order    string `form:"order"`
	PinLeft  string `form:"pinLeft"`
	PinRight string `form:"pinRight"`
}

// ToLayout converts the query into a column layout.
func (q LayoutQuery) ToLayout() column.Layout {
	return column.Layout{
		Hidden: column.ParseList(q.Hide),
		Order:  column.ParseList(q.Order),
		Left:   column.ParseList(q.PinLeft),
		Right:  column.ParseList(q.PinRight),
	}
}

// FacetQuery configures a facet request.
type FacetQuery struct {
	ExcludeSelf bool `form:"excludeSelf"`
	Limit       int  `form:"limit" binding:"min=0,max=1000"`
}

// Options converts the query into pipeline facet options.
func (q FacetQuery) Options() pipeline.FacetOptions {
	return pipeline.FacetOptions{ExcludeOwnFilter: q.ExcludeSelf, Limit: q.Limit}
}

// ExportQuery selects the export file format.
type ExportQuery struct {
	Format string `form:"format"`
}

// SelectionRequest names the selected rows of a table.
type SelectionRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// Selection converts the request into a selection.
func (r SelectionRequest) Selection() selection.Selection {
	return selection.New(r.IDs...)
}

// SelectionDeleteResponse reports a bulk delete.
type SelectionDeleteResponse struct {
	Deleted int `json:"deleted"`
	// Selection is what remains selected: ids outside the filtered view.
	Selection selection.Selection `json:"selection"`
}

// TablesResponse lists the served tables.
type TablesResponse struct {
	Items []TableSummary `json:"items"`
}

// TableSummary describes one table.
type TableSummary struct {
	metadata.TableDef
	Rows int `json:"rows"`
}

// ColumnsResponse lists a table's resolved column capabilities.
type ColumnsResponse struct {
	Table   string              `json:"table"`
	Columns []column.Capability `json:"columns"`
}
