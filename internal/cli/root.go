package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// services overrides the fx wiring in tests.
	services func(opts *RootOptions) (*Services, func(), error)
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the operator CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{services: startServices})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "donorsync",
		Short: "Reconcile GiveWP donations into DonorPerfect",
		Long: `donorsync copies GiveWP donations into DonorPerfect as donors, pledges and gifts.

Configuration is read from config.yaml or APP_* environment variables,
the same way the API server reads it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !lo.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewBackfillCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewCodeCommand(opts))

	return cmd
}
