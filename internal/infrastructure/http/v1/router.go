// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"datagrid/internal/domain"
	"datagrid/internal/infrastructure/http/v1/handlers"
	"datagrid/internal/infrastructure/http/v1/middleware"
	"datagrid/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Tables *domain.Tables

	// Logger for request logging
	Logger *logger.Logger

	// Checks are reported by /health/ready, e.g. the database pool.
	Checks map[string]handlers.Checker

	// Metrics receives HTTP collectors and is served on /metrics.
	// Nil disables both.
	Metrics *prometheus.Registry

	// ExportName is the download file name without extension.
	ExportName string

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	router := gin.New()

	// Order matters: ErrorHandler must wrap every handler that registers errors.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		m, err := middleware.NewHTTPMetrics(cfg.Metrics)
		if err != nil {
			return nil, err
		}
		router.Use(m.Handler())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Tables, cfg.Checks, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	meta := handlers.NewMetadataHandler(base, cfg.Tables)
	table := handlers.NewTableHandler(base, cfg.ExportName)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/tables", meta.ListTables)
		RegisterTableRoutes(v1.Group("/tables/:table"), cfg.Tables, meta, table)
	}

	return router, nil
}
