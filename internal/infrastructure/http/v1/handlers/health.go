// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"datagrid/internal/domain"
)

// Checker is a readiness dependency such as the database pool.
type Checker interface {
	Ready(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	tables  *domain.Tables
	checks  map[string]Checker
	version string
}

// NewHealthHandler creates a health handler. checks may be empty.
func NewHealthHandler(tables *domain.Tables, checks map[string]Checker, version string) *HealthHandler {
	return &HealthHandler{tables: tables, checks: checks, version: version}
}

// Live handles the liveness probe.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles the readiness probe.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Ready(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = "unhealthy: " + err.Error()
			continue
		}
		results[name] = "healthy"
	}

	body := gin.H{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "error"
	}
	c.JSON(status, body)
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	rows := make(map[string]int)
	for _, def := range h.tables.Describe() {
		if t, err := h.tables.Get(def.Name); err == nil {
			rows[def.Name] = t.Len()
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"app":     "datagrid",
		"version": h.version,
		"tables":  rows,
	})
}
