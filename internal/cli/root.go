// Package cli implements the gridctl command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datagrid/internal/config"
	"datagrid/pkg/logger"
)

// env is shared by every subcommand once the root has loaded configuration.
type env struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *logger.Logger
}

// NewRootCommand builds the gridctl command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:   "gridctl",
		Short: "Query, export and seed datagrid tables",
		Long: `gridctl runs the datagrid query engine from the command line.

Query state uses the same parameters as the HTTP API, so a URL query string
copied from a browser can be replayed with --state.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "config file (default is ./config.yaml if present)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newQueryCmd(e),
		newColumnsCmd(e),
		newTablesCmd(e),
		newSeedCmd(e),
	)
	return root
}

// Execute runs gridctl with the process arguments.
func Execute() error {
	return NewRootCommand().Execute()
}

func (e *env) load() error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	log, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	e.cfg = cfg
	e.log = log
	return nil
}
