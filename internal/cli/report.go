package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/fatflowers/donorsync/internal/app/service/match_report"
	"github.com/fatflowers/donorsync/internal/app/service/statistics"
)

func NewReportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show which GiveWP donors already exist in DonorPerfect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()
			return withServices(opts, func(s *Services) error {
				return runReport(ctx, s.Report, newPrinter(opts, cmd.OutOrStdout()))
			})
		},
	}
}

func runReport(ctx context.Context, r Reporter, p *printer) error {
	report, err := r.Generate(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "match report failed", err)
	}
	return p.print(report, func(w io.Writer) { writeReport(w, report) })
}

func writeReport(w io.Writer, r *match_report.Report) {
	for _, d := range r.Donors {
		fmt.Fprintf(w, "%-8d %-40s %-30s %s\n", d.GiveDonorID, d.Email, d.Name, d.Action)
	}
	fmt.Fprintf(w, "total=%d matched=%d new=%d failed=%d\n", r.Total, r.Matched, r.New, r.Failed)
}

func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the sync log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()
			return withServices(opts, func(s *Services) error {
				return runStats(ctx, s.Stats, newPrinter(opts, cmd.OutOrStdout()))
			})
		},
	}
}

func runStats(ctx context.Context, s StatsReader, p *printer) error {
	stats, err := s.GetSyncStats(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load stats", err)
	}
	return p.print(stats, func(w io.Writer) { writeStats(w, stats) })
}

func writeStats(w io.Writer, s *statistics.SyncStats) {
	fmt.Fprintf(w, "synced:          %d (success %d, error %d, skipped %d)\n", s.Total, s.Success, s.Error, s.Skipped)
	fmt.Fprintf(w, "donors:          %d created, %d matched\n", s.DonorsCreated, s.DonorsMatched)
	fmt.Fprintf(w, "pledges created: %d\n", s.PledgesCreated)
	fmt.Fprintf(w, "gifts:           %d recurring, %d one-time\n", s.RecurringGifts, s.OneTimeGifts)
	kinds := lo.Keys(s.ByKind)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-16s %d\n", k, s.ByKind[k])
	}
	if s.LastSync != nil {
		fmt.Fprintf(w, "last sync:       %s\n", s.LastSync.Format("2006-01-02 15:04:05"))
	}
	if s.SourceDonations != nil {
		fmt.Fprintf(w, "givewp:          %d donations, %d remaining\n", *s.SourceDonations, lo.FromPtr(s.Remaining))
	}
}
