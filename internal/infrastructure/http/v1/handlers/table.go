package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"datagrid/internal/domain/export"
	"datagrid/internal/domain/selection"
	"datagrid/internal/infrastructure/http/v1/dto"
	"datagrid/pkg/logger"
)

// HeaderExportedRows reports how many rows an export contains.
const HeaderExportedRows = "X-Exported-Rows"

// TableHandler serves rows, facets, exports and bulk actions of a table.
type TableHandler struct {
	*BaseHandler
	exportName string
}

// NewTableHandler creates a table handler. exportName is the download file
// name without extension; empty uses the table name.
func NewTableHandler(base *BaseHandler, exportName string) *TableHandler {
	return &TableHandler{BaseHandler: base, exportName: exportName}
}

// Rows returns one page of rows for the query in the URL.
// GET /api/v1/tables/:table/rows
func (h *TableHandler) Rows(c *gin.Context) {
	t, ok := h.Table(c)
	if !ok {
		return
	}
	var layout dto.LayoutQuery
	if !h.BindQuery(c, &layout) {
		return
	}
	h.OK(c, t.Query(c.Request.Context(), h.Snapshot(c, t), layout.ToLayout()))
}

// Facet summarizes one column over the filtered rows.
// GET /api/v1/tables/:table/facets/:column
func (h *TableHandler) Facet(c *gin.Context) {
	t, ok := h.Table(c)
	if !ok {
		return
	}
	var q dto.FacetQuery
	if !h.BindQuery(c, &q) {
		return
	}
	facet, err := t.Facet(c.Request.Context(), h.Snapshot(c, t), c.Param("column"), q.Options())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, facet)
}

// Export downloads the filtered and sorted rows.
// GET /api/v1/tables/:table/export?format=csv|xlsx
func (h *TableHandler) Export(c *gin.Context) {
	h.export(c, nil)
}

// SelectionExport downloads the selected rows among the filtered ones.
// POST /api/v1/tables/:table/selection/export
func (h *TableHandler) SelectionExport(c *gin.Context) {
	var req dto.SelectionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	sel := req.Selection()
	h.export(c, &sel)
}

func (h *TableHandler) export(c *gin.Context, sel *selection.Selection) {
	t, ok := h.Table(c)
	if !ok {
		return
	}
	var q dto.ExportQuery
	var layout dto.LayoutQuery
	if !h.BindQuery(c, &q) || !h.BindQuery(c, &layout) {
		return
	}
	format, err := export.ParseFormat(q.Format)
	if err != nil {
		h.Error(c, err)
		return
	}

	// Buffered so a failed export still gets a JSON error.
	var buf bytes.Buffer
	n, err := t.Export(c.Request.Context(), &buf, format, h.Snapshot(c, t), layout.ToLayout(), sel)
	if err != nil {
		h.Error(c, err)
		return
	}

	name := h.exportName
	if name == "" {
		name = t.Name()
	}
	logger.Info(c.Request.Context(), "table exported", "format", format, "rows", n, "selected", sel != nil)
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(name, format)+`"`)
	c.Header(HeaderExportedRows, strconv.Itoa(n))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// SelectionDelete deletes the selected rows among the filtered ones.
// POST /api/v1/tables/:table/selection/delete
func (h *TableHandler) SelectionDelete(c *gin.Context) {
	t, ok := h.Table(c)
	if !ok {
		return
	}
	var req dto.SelectionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rest, n, err := t.DeleteSelected(c.Request.Context(), h.Snapshot(c, t), req.Selection())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SelectionDeleteResponse{Deleted: n, Selection: rest})
}
