// Package main is the entry point for the datagrid API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"datagrid/internal/app"
	"datagrid/internal/config"
	"datagrid/internal/domain/pipeline"
	"datagrid/internal/infrastructure/cache"
	v1 "datagrid/internal/infrastructure/http/v1"
	"datagrid/internal/infrastructure/http/v1/handlers"
	"datagrid/internal/infrastructure/storage/postgres"
	"datagrid/pkg/logger"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting datagrid server", "version", version, "source", cfg.Dataset.Source)

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipeline.RegisterMetrics(registry)

	// --- Tables ---
	tables, err := app.BuildTables(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to build tables", "error", err)
	}
	defer tables.Close()

	checks := map[string]handlers.Checker{}
	if tables.Pool != nil {
		checks["database"] = tables.Pool
		postgres.LogPoolStats(ctx, tables.Pool)

		invalidator := cache.NewInvalidator(tables.Pool.Pool, tables.Tables, cache.Config{
			Delay: cfg.Database.ReloadDelay,
		})
		invalidator.Start(ctx)
		defer invalidator.Stop()
	}

	// --- Router ---
	router, err := v1.NewRouter(v1.RouterConfig{
		Tables:     tables.Tables,
		Logger:     log,
		Checks:     checks,
		Metrics:    registry,
		ExportName: cfg.Export.Filename,
		Version:    version,
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
