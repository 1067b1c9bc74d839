package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/robolake"
	"github.com/hugr-lab/robolake/catalog"
	"github.com/hugr-lab/robolake/internal/export"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Format  string
	Topics  []string
	Output  string
	Catalog string
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert a recording to parquet, CSV or JSON",
		Long: `Convert a recording into one row per message and write it to a file.

The output defaults to the input path with the format as its extension.
CSV and JSON output is zstd-compressed when the output path ends in .zst.
With --catalog the rows are also appended to a catalog table named after
the input file.

Example:
  robolake convert drive.db3 --format csv --topics /imu,/odom
  robolake convert drive.db3 --catalog ./lake`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(export.FormatParquet), "output format (parquet, csv, json)")
	cmd.Flags().StringSliceVarP(&opts.Topics, "topics", "t", nil, "comma-separated topics to convert (default all)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "catalog directory to append the rows to")

	return cmd
}

func runConvert(opts *ConvertOptions, input string, cmd *cobra.Command) error {
	if _, err := export.ParseFormat(opts.Format); err != nil {
		return WrapExitError(ExitCommandError, "invalid --format", err)
	}

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	conv, err := robolake.NewConverter(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	ctx := cmd.Context()
	rows, err := conv.ConvertFile(ctx, input, opts.Topics)
	if errors.Is(err, robolake.ErrInputNotFound) {
		return WrapExitError(ExitCommandError, "input not found", err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "conversion failed", err)
	}

	output := opts.Output
	if output == "" {
		output = robolake.DefaultOutputPath(input, strings.ToLower(opts.Format))
	}
	if err := conv.Export(rows, output, opts.Format); err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Converted %d messages to %s\n", len(rows), output)

	if opts.Catalog == "" {
		return nil
	}

	cat, err := catalog.Open(opts.Catalog, cfg.CatalogOptions())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open catalog", err)
	}
	defer cat.Close()

	table := catalog.SanitizeTableName(inputStem(input))
	if err := cat.Append(ctx, table, rows); err != nil {
		return WrapExitError(ExitFailure, "failed to store rows", err)
	}
	fmt.Fprintf(out, "Stored %d rows in table %s\n", len(rows), table)
	return nil
}

// inputStem returns the file name of path without its extension.
func inputStem(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
