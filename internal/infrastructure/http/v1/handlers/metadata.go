package handlers

import (
	"github.com/gin-gonic/gin"

	"datagrid/internal/domain"
	"datagrid/internal/infrastructure/http/v1/dto"
)

// MetadataHandler describes tables and their columns.
type MetadataHandler struct {
	*BaseHandler
	tables *domain.Tables
}

func NewMetadataHandler(base *BaseHandler, tables *domain.Tables) *MetadataHandler {
	return &MetadataHandler{BaseHandler: base, tables: tables}
}

// ListTables returns every registered table.
// GET /api/v1/tables
func (h *MetadataHandler) ListTables(c *gin.Context) {
	defs := h.tables.Describe()
	resp := dto.TablesResponse{Items: make([]dto.TableSummary, 0, len(defs))}
	for _, def := range defs {
		summary := dto.TableSummary{TableDef: def}
		if t, err := h.tables.Get(def.Name); err == nil {
			summary.Rows = t.Len()
		}
		resp.Items = append(resp.Items, summary)
	}
	h.OK(c, resp)
}

// Columns returns the filter capabilities of every column.
// GET /api/v1/tables/:table/columns
func (h *MetadataHandler) Columns(c *gin.Context) {
	t, ok := h.Table(c)
	if !ok {
		return
	}
	h.OK(c, dto.ColumnsResponse{Table: t.Name(), Columns: t.Capabilities()})
}
