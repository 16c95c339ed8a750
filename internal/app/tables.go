// Package app wires configuration, storage and tables into the pieces the
// commands run.
package app

import (
	"context"
	"fmt"

	"datagrid/internal/config"
	"datagrid/internal/domain"
	"datagrid/internal/domain/products"
	"datagrid/internal/infrastructure/storage/postgres"
	"datagrid/internal/infrastructure/storage/postgres/product_repo"
	"datagrid/pkg/logger"
)

// Tables is the set of served tables plus the resources behind them.
type Tables struct {
	*domain.Tables

	// Pool is nil for the generated source.
	Pool *postgres.Pool
}

// Close releases the database pool, if any.
func (t *Tables) Close() {
	if t.Pool != nil {
		t.Pool.Close()
	}
}

// OpenPool connects to the configured database.
func OpenPool(ctx context.Context, cfg *config.Config) (*postgres.Pool, error) {
	pc := postgres.DefaultPoolConfig(cfg.Database.URL)
	pc.MaxConns = cfg.Database.MaxConns
	pc.MinConns = cfg.Database.MinConns
	return postgres.NewPool(ctx, pc)
}

// Generate returns the demo products for the configured dataset.
func Generate(cfg *config.Config) []products.Product {
	return products.Generate(products.GeneratorConfig{
		Seed:  cfg.Dataset.Seed,
		Count: cfg.Dataset.Count,
		Users: cfg.Dataset.Users,
	})
}

// BuildTables registers every table. With the postgres source the rows are
// loaded from the database; otherwise they are generated in memory.
func BuildTables(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Tables, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	out := &Tables{Tables: domain.NewTables()}
	pcfg := domain.TableServiceConfig[products.Product]{
		Defaults:      cfg.QueryDefaults(nil),
		Keys:          cfg.QueryKeys(),
		CompressAbove: cfg.Query.CompressAbove,
		Location:      loc,
		Logger:        log,
		SheetName:     cfg.Export.SheetName,
	}

	switch cfg.Dataset.Source {
	case config.SourcePostgres:
		pool, err := OpenPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		out.Pool = pool
		repo := product_repo.NewProductRepo(postgres.NewTxManager(pool))
		if err := repo.EnsureSchema(ctx); err != nil {
			out.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		pcfg.Repo = repo
	default:
		pcfg.Rows = Generate(cfg)
	}

	svc, err := products.NewTableService(pcfg)
	if err != nil {
		out.Close()
		return nil, err
	}
	if pcfg.Repo != nil {
		if err := svc.Reload(ctx); err != nil {
			out.Close()
			return nil, fmt.Errorf("load %s: %w", svc.Name(), err)
		}
	}
	out.Register(svc)

	log.Infow("tables ready", "source", cfg.Dataset.Source, "products", svc.Len())
	return out, nil
}
