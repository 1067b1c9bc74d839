package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/robolake/catalog"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables [catalog]",
		Short: "List the tables of a catalog",
		Long: `List the tables of a catalog with their row count, columns and size.
The catalog defaults to catalog_dir from the config file or $ROBOLAKE_CATALOG.

Example:
  robolake tables ./lake`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runTables(rootOpts, dir, cmd)
		},
	}
	return cmd
}

func runTables(opts *RootOptions, dir string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.CatalogDir
	}
	if !catalog.Exists(dir) {
		return NewExitError(ExitCommandError, fmt.Sprintf("no catalog at %s", dir))
	}

	store, err := catalog.NewStore(dir, cfg.CatalogOptions())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open catalog", err)
	}
	names, err := store.List()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list tables", err)
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No tables")
		return nil
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		info, err := store.Info(name)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read table", err)
		}
		rows = append(rows, []string{
			info.Name,
			fmt.Sprint(info.RowCount),
			fmt.Sprint(len(info.Columns)),
			formatBytes(info.SizeBytes),
		})
	}
	return printTable(out, []string{"TABLE", "ROWS", "COLUMNS", "SIZE"}, rows)
}

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop <catalog> <table>",
		Short: "Delete a table from a catalog",
		Long: `Delete a table from a catalog. Deleting a missing table succeeds.

Example:
  robolake drop ./lake drive`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrop(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDrop(opts *RootOptions, dir, table string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); err != nil {
		return WrapExitError(ExitCommandError, "catalog not found", err)
	}

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := catalog.NewStore(dir, cfg.CatalogOptions())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open catalog", err)
	}
	if err := store.Delete(table); err != nil {
		if errors.Is(err, catalog.ErrInvalidTableName) {
			return WrapExitError(ExitCommandError, "invalid table name", err)
		}
		return WrapExitError(ExitFailure, "failed to drop table", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dropped table %s\n", table)
	return nil
}
