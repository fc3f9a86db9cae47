package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fatflowers/donorsync/internal/app/service/backfill"
	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
)

type BackfillOptions struct {
	*RootOptions
	DryRun    bool
	BatchSize int
	Offset    int
	All       bool
}

func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackfillOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Sync historical donations that have no success row",
		Long: `Walk the completed GiveWP donations that have not been synced yet.

Without --all one page is processed. With --all pages are processed until every
unsynced donation was attempted once; Ctrl-C stops after the donation in flight.

Examples:
  donorsync backfill --dry-run --batch 50
  donorsync backfill --batch 10 --offset 20
  donorsync backfill --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd.Context())
			defer cancel()
			return withServices(opts.RootOptions, func(s *Services) error {
				return runBackfill(ctx, s, opts, newPrinter(opts.RootOptions, cmd.OutOrStdout()))
			})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "preview what would be created without writing anything")
	cmd.Flags().IntVar(&opts.BatchSize, "batch", 0, "donations per page (default 50 for dry runs, sync.backfill_batch_size otherwise)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "skip this many unsynced donations")
	cmd.Flags().BoolVar(&opts.All, "all", false, "keep going until every unsynced donation was attempted")

	return cmd
}

func runBackfill(ctx context.Context, s *Services, opts *BackfillOptions, p *printer) error {
	switch {
	case opts.All && !opts.DryRun:
		return runBackfillJob(ctx, s.Job, opts.BatchSize, p)
	case opts.All:
		return previewAll(ctx, s.Backfill, opts, p)
	}
	res, err := s.Backfill.Run(ctx, backfill.Request{DryRun: opts.DryRun, BatchSize: opts.BatchSize, Offset: opts.Offset})
	if err != nil {
		return WrapExitError(ExitCommandError, "backfill failed", err)
	}
	if err := p.print(res, func(w io.Writer) { writePage(w, res) }); err != nil {
		return err
	}
	if res.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d donation(s) failed", res.Failed))
	}
	return nil
}

// previewAll pages through every unsynced donation in dry-run mode.
func previewAll(ctx context.Context, pager Pager, opts *BackfillOptions, p *printer) error {
	var items []*reconcile.Result
	offset := opts.Offset
	for {
		res, err := pager.Run(ctx, backfill.Request{DryRun: true, BatchSize: opts.BatchSize, Offset: offset})
		if err != nil {
			return WrapExitError(ExitCommandError, "backfill preview failed", err)
		}
		items = append(items, res.Items...)
		if p.format != "json" {
			writePage(p.w, res)
		}
		if !res.HasMore || res.Processed == 0 || res.Stopped {
			break
		}
		offset = res.NextOffset
	}
	if p.format == "json" {
		return p.print(items, nil)
	}
	return nil
}

func runBackfillJob(ctx context.Context, job Job, batchSize int, p *printer) error {
	if _, err := job.Start(batchSize); err != nil {
		return WrapExitError(ExitCommandError, "failed to start backfill", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			job.Stop()
		case <-done:
		}
	}()
	err := job.Wait(context.Background())
	close(done)
	if err != nil {
		return err
	}

	st := job.Status()
	if err := p.print(st, func(w io.Writer) { writeJob(w, st) }); err != nil {
		return err
	}
	switch {
	case st.LastError != "":
		return NewExitError(ExitCommandError, st.LastError)
	case st.Failed > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d donation(s) failed", st.Failed))
	}
	return nil
}

func writePage(w io.Writer, res *backfill.Response) {
	for _, item := range res.Items {
		writeResult(w, item)
	}
	mode := "run"
	if res.DryRun {
		mode = "preview"
	}
	fmt.Fprintf(w, "%s offset=%d batch=%d processed=%d succeeded=%d failed=%d unsynced=%d has_more=%t\n",
		mode, res.Offset, res.BatchSize, res.Processed, res.Succeeded, res.Failed, res.TotalUnsynced, res.HasMore)
}

func writeJob(w io.Writer, st backfill.JobStatus) {
	fmt.Fprintf(w, "pages=%d processed=%d succeeded=%d failed=%d remaining=%d stopped=%t\n",
		st.Pages, st.Processed, st.Succeeded, st.Failed, st.Remaining, st.Stopped)
	if st.LastError != "" {
		fmt.Fprintf(w, "last error: %s\n", st.LastError)
	}
}
