package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/robolake"
)

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <input>",
		Short: "Show information about a recording",
		Long: `Show topic, message count and time range of a recording.

Example:
  robolake info drive.db3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInfo(opts *RootOptions, input string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	conv, err := robolake.NewConverter(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	meta, err := conv.Inspect(cmd.Context(), input)
	if errors.Is(err, robolake.ErrInputNotFound) {
		return WrapExitError(ExitCommandError, "input not found", err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read recording", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recording: %s\n\n", filepath.Base(input))
	if err := printTable(out, []string{"PROPERTY", "VALUE"}, [][]string{
		{"Topics", fmt.Sprint(len(meta.Topics))},
		{"Message Count", fmt.Sprint(meta.MessageCount)},
		{"Duration", fmt.Sprintf("%.2f seconds", meta.Duration)},
		{"Start Time", formatTimestamp(meta.Start)},
		{"End Time", formatTimestamp(meta.End)},
	}); err != nil {
		return err
	}

	if meta.Error != "" {
		fmt.Fprintf(out, "\nWarning: %s\n", meta.Error)
	}
	if len(meta.Topics) == 0 {
		return nil
	}

	fmt.Fprintln(out, "\nTopics:")
	rows := make([][]string, 0, len(meta.Topics))
	for _, t := range meta.Topics {
		rows = append(rows, []string{t.Name, t.Type, fmt.Sprint(t.MessageCount)})
	}
	return printTable(out, []string{"TOPIC", "TYPE", "MESSAGES"}, rows)
}
