package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "datagrid/internal/core/context"
	"datagrid/internal/domain"
)

const tableKey = "table"

// Table resolves the :table path parameter. Unknown tables abort with NOT_FOUND.
func Table(tables *domain.Tables) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("table")
		t, err := tables.Get(name)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		ctx := appctx.WithTable(c.Request.Context(), &appctx.TableContext{
			Table: name,
			Query: c.Request.URL.RawQuery,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set(tableKey, t)

		c.Next()
	}
}

// GetTable returns the table resolved by Table, or nil.
func GetTable(c *gin.Context) domain.Table {
	if v, ok := c.Get(tableKey); ok {
		if t, ok := v.(domain.Table); ok {
			return t
		}
	}
	return nil
}
