package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"datagrid/internal/app"
	"datagrid/internal/domain"
)

func newTablesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, err := app.BuildTables(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			defer tables.Close()
			return printJSON(cmd, tables.Describe())
		},
	}
}

func newColumnsCmd(e *env) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Print the filter capabilities of a table's columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withTable(cmd, name, func(t domain.Table) error {
				return printJSON(cmd, t.Capabilities())
			})
		},
	}
	cmd.Flags().StringVarP(&name, "table", "t", "products", "table name")
	return cmd
}

// withTable builds the configured tables and runs fn on the named one.
func (e *env) withTable(cmd *cobra.Command, name string, fn func(domain.Table) error) error {
	tables, err := app.BuildTables(cmd.Context(), e.cfg, e.log)
	if err != nil {
		return err
	}
	defer tables.Close()
	t, err := tables.Get(name)
	if err != nil {
		return err
	}
	return fn(t)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
