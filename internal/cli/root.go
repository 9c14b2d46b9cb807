// Package cli implements the snapshot command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DBPath     string // overrides SNAPSHOT_DB
	ConfigPath string // optional YAML file
	DotEnv     string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the snapshot CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture, review and export photos",
		Long: `Snapshot grabs frames from a camera-like source, keeps them in a
persistent session and exports the marked ones as a zip of images.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "session database (default from SNAPSHOT_DB)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DotEnv, "env-file", ".env", "dotenv file loaded when present")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTakeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewMarkCommand(opts, true))
	cmd.AddCommand(NewMarkCommand(opts, false))
	cmd.AddCommand(NewDeleteCommand(opts, deleteMark))
	cmd.AddCommand(NewDeleteCommand(opts, deleteConfirm))
	cmd.AddCommand(NewDeleteCommand(opts, deleteCancel))
	cmd.AddCommand(NewHistogramCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}
