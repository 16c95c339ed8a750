package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"datagrid/internal/core/apperror"
	appctx "datagrid/internal/core/context"
	"datagrid/internal/domain"
	"datagrid/internal/domain/query"
	"datagrid/internal/infrastructure/http/v1/dto"
	"datagrid/internal/infrastructure/http/v1/middleware"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates a JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the context and aborts. middleware.ErrorHandler
// writes the response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Table returns the table resolved by middleware.Table.
func (h *BaseHandler) Table(c *gin.Context) (domain.Table, bool) {
	t := middleware.GetTable(c)
	if t == nil {
		h.Error(c, apperror.NewNotFound("table", c.Param("table")))
		return nil, false
	}
	return t, true
}

// Snapshot decodes the table query from the URL. Invalid parameters are
// dropped, never rejected. The canonical state replaces the raw query in the
// request's table context.
func (h *BaseHandler) Snapshot(c *gin.Context, t domain.Table) query.Snapshot {
	codec := t.Codec()
	snap := codec.Decode(query.NewValuesStore(c.Request.URL.Query()).Read)

	if tc := appctx.GetTable(c.Request.Context()); tc != nil {
		state := query.NewValuesStore(nil)
		for k, v := range codec.Encode(snap) {
			state.Write(k, v, query.Shallow)
		}
		tc.Query = state.Encode()
	}
	return snap
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Success sends a success acknowledgement.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true, Message: message})
}
