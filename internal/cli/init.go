package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/robolake/catalog"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Force bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <catalog>",
		Short: "Initialize a data catalog",
		Long: `Initialize a data catalog directory.

An existing path is left untouched unless --force is given, in which case
every table in it is removed.

Example:
  robolake init ./lake`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "remove all tables of an existing catalog")

	return cmd
}

func runInit(opts *InitOptions, dir string, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	_, statErr := os.Stat(dir)
	exists := statErr == nil
	if exists && !opts.Force {
		fmt.Fprintf(out, "Catalog already exists at %s. Use --force to overwrite.\n", dir)
		return nil
	}

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := catalog.NewStore(dir, cfg.CatalogOptions())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to initialize catalog", err)
	}
	if exists {
		if err := store.Clear(); err != nil {
			return WrapExitError(ExitFailure, "failed to clear catalog", err)
		}
	}

	fmt.Fprintf(out, "Initialized catalog at %s\n", dir)
	return nil
}
