package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/pkg/tool"
	"github.com/fatflowers/donorsync/pkg/types"
)

func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <donation-id>",
		Short: "Sync one donation into DonorPerfect",
		Long: `Load a donation from GiveWP and reconcile it into DonorPerfect.

A donation that already has a success row in the sync log is left alone.

Example:
  donorsync sync 1234
  donorsync sync 1234 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := tool.ParseID(args[0])
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid donation id %q", args[0]))
			}
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()
			return withServices(opts, func(s *Services) error {
				return runSync(ctx, s, id, newPrinter(opts, cmd.OutOrStdout()))
			})
		},
	}
}

func runSync(ctx context.Context, s *Services, id int64, p *printer) error {
	ev, err := s.Source.GetDonation(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load donation %d", id), err)
	}
	res := s.Engine.SyncDonation(ctx, ev)
	if err := p.print(res, func(w io.Writer) { writeResult(w, res) }); err != nil {
		return err
	}
	if res.Status == types.SyncStatusError {
		return NewExitError(ExitFailure, res.Error)
	}
	return nil
}

func writeResult(w io.Writer, r *reconcile.Result) {
	fmt.Fprintf(w, "#%-8d %-14s %-16s", r.DonationID, r.Status, r.Kind)
	switch {
	case r.Preview != nil:
		fmt.Fprintf(w, " donor=%s pledge=%s amount=$%s", r.Preview.DonorAction, r.Preview.PledgeAction, r.Preview.Amount)
	case r.Error != "":
		fmt.Fprintf(w, " %s", r.Error)
		if r.Retryable {
			fmt.Fprint(w, " (retryable)")
		}
	default:
		if r.DonorID != nil {
			fmt.Fprintf(w, " donor=%d (%s)", *r.DonorID, r.DonorAction)
		}
		if r.PledgeID != nil {
			fmt.Fprintf(w, " pledge=%d", *r.PledgeID)
		}
		if r.GiftID != nil {
			fmt.Fprintf(w, " gift=%d", *r.GiftID)
		}
	}
	fmt.Fprintln(w)
}
