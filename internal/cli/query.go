package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/robolake/catalog"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <catalog> <sql>",
		Short: "Run a SQL query against a catalog",
		Long: `Run a SQL query against a catalog. Every table is available as a view
under its own name. Column names containing dots must be quoted.

Example:
  robolake query ./lake 'SELECT topic, COUNT(*) FROM drive GROUP BY topic'
  robolake query ./lake 'SELECT AVG("pose.position.x") FROM drive'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runQuery(opts *RootOptions, dir, sql string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); err != nil {
		return WrapExitError(ExitCommandError, "catalog not found", err)
	}

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(dir, cfg.CatalogOptions())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open catalog", err)
	}
	defer cat.Close()

	res, err := cat.Execute(cmd.Context(), sql)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	out := cmd.OutOrStdout()
	if len(res.Rows) == 0 {
		fmt.Fprintln(out, "Query returned no results")
		return nil
	}

	fmt.Fprintf(out, "Query returned %d rows:\n", len(res.Rows))
	rows := make([][]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		cells := make([]string, len(r))
		for i, v := range r {
			cells[i] = formatCell(v)
		}
		rows = append(rows, cells)
	}
	return printTable(out, res.Columns, rows)
}
