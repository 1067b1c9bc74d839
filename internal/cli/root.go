// Package cli implements the robolake command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/hugr-lab/robolake"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	ConfigPath string
}

// NewRootCommand creates the root command for the robolake CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "robolake",
		Short: "RoboLake - robotics data lake",
		Long: `Convert robot message recordings (rosbag2 .db3) to parquet, CSV or JSON,
and keep them in a local catalog queryable with SQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")

	// Add subcommands
	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewDropCommand(opts))

	return cmd
}

// loadConfig reads the config file and attaches a logger writing to the
// command's error stream.
func (o *RootOptions) loadConfig(cmd *cobra.Command) (robolake.Config, error) {
	cfg, err := robolake.LoadConfig(o.ConfigPath)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	cfg.Logger = cfg.NewLogger(cmd.ErrOrStderr())
	return cfg, nil
}
