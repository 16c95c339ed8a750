package v1

import (
	"github.com/gin-gonic/gin"

	"datagrid/internal/domain"
	"datagrid/internal/infrastructure/http/v1/handlers"
	"datagrid/internal/infrastructure/http/v1/middleware"
)

// RegisterTableRoutes registers the per-table endpoints under group, which
// must end in the :table parameter.
func RegisterTableRoutes(group *gin.RouterGroup, tables *domain.Tables, meta *handlers.MetadataHandler, table *handlers.TableHandler) {
	group.Use(middleware.Table(tables))
	group.GET("/columns", meta.Columns)
	group.GET("/rows", table.Rows)
	group.GET("/facets/:column", table.Facet)
	group.GET("/export", table.Export)
	group.POST("/selection/export", table.SelectionExport)
	group.POST("/selection/delete", table.SelectionDelete)
}
