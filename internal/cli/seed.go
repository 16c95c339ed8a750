package cli

import (
	"time"

	"github.com/spf13/cobra"

	"datagrid/internal/app"
	"datagrid/internal/core/apperror"
	"datagrid/internal/infrastructure/storage/postgres"
	"datagrid/internal/infrastructure/storage/postgres/product_repo"
)

type seedOptions struct {
	truncate bool
	count    int
	seed     uint64
	users    int
}

func newSeedCmd(e *env) *cobra.Command {
	o := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write generated products to PostgreSQL",
		Long: `Seed creates the schema if needed and loads generated products with COPY.
Counts default to the dataset section of the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, e, o)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&o.truncate, "truncate", false, "delete existing products and users first")
	f.IntVar(&o.count, "count", 0, "number of products (default dataset.count)")
	f.Uint64Var(&o.seed, "seed", 0, "generator seed (default dataset.seed)")
	f.IntVar(&o.users, "users", 0, "number of owners (default dataset.users)")
	return cmd
}

func runSeed(cmd *cobra.Command, e *env, o *seedOptions) error {
	cfg := *e.cfg
	if cfg.Database.URL == "" {
		return apperror.NewValidation("seed needs database.url (DATABASE_URL)")
	}
	if o.count > 0 {
		cfg.Dataset.Count = o.count
	}
	if cmd.Flags().Changed("seed") {
		cfg.Dataset.Seed = o.seed
	}
	if o.users > 0 {
		cfg.Dataset.Users = o.users
	}

	ctx := cmd.Context()
	pool, err := app.OpenPool(ctx, &cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := product_repo.NewProductRepo(postgres.NewTxManager(pool))
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	start := time.Now()
	rows := app.Generate(&cfg)
	n, err := repo.Seed(ctx, rows, o.truncate)
	if err != nil {
		return err
	}
	e.log.Infow("products seeded",
		"rows", n,
		"seed", cfg.Dataset.Seed,
		"truncate", o.truncate,
		"duration", time.Since(start),
	)
	return nil
}
