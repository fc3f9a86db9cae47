package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/metrics"
	"github.com/fatflowers/donorsync/pkg/types"
)

const (
	DefaultPreviewBatchSize = 50
	defaultRunBatchSize     = 10
	defaultDelay            = 200 * time.Millisecond
	MaxBatchSize            = 500
)

type Source interface {
	EligibleDonationIDs(ctx context.Context) ([]int64, error)
	GetDonation(ctx context.Context, id int64) (*types.DonationEvent, error)
}

type Ledger interface {
	SyncedDonationIDs(ctx context.Context) (map[int64]struct{}, error)
}

// Reconciler runs donations through the engine. Real runs go through
// SyncDonation so a donation synced by another trigger after the page was
// listed is not sent to the CRM again.
type Reconciler interface {
	Reconcile(ctx context.Context, ev *types.DonationEvent, dryRun bool) *reconcile.Result
	SyncDonation(ctx context.Context, ev *types.DonationEvent) *reconcile.Result
}

type Request struct {
	DryRun    bool `json:"dry_run"`
	BatchSize int  `json:"batch_size"`
	Offset    int  `json:"offset"`
}

type Response struct {
	Items         []*reconcile.Result `json:"items"`
	BatchSize     int                 `json:"batch_size"`
	Offset        int                 `json:"offset"`
	Processed     int                 `json:"processed"`
	Succeeded     int                 `json:"succeeded"`
	Failed        int                 `json:"failed"`
	TotalUnsynced int                 `json:"total_unsynced"`
	HasMore       bool                `json:"has_more"`
	DryRun        bool                `json:"dry_run"`
	// NextOffset skips the rows of this page that are still unsynced, so paging
	// forward after a real run does not jump over donations.
	NextOffset int  `json:"next_offset"`
	Stopped    bool `json:"stopped,omitempty"`
}

// Orchestrator pages through donations without a success row and feeds them to
// the engine one at a time.
type Orchestrator struct {
	source       Source
	ledger       Ledger
	engine       Reconciler
	delay        time.Duration
	defaultBatch int
	log          *zap.SugaredLogger
	sleep        func(ctx context.Context, d time.Duration) error
}

func New(cfg *config.Config, source Source, ledger Ledger, engine Reconciler, log *zap.SugaredLogger) *Orchestrator {
	o := &Orchestrator{
		source:       source,
		ledger:       ledger,
		engine:       engine,
		delay:        cfg.Sync.BackfillDelay,
		defaultBatch: cfg.Sync.BackfillBatchSize,
		log:          log,
		sleep:        sleepCtx,
	}
	if o.delay <= 0 {
		o.delay = defaultDelay
	}
	if o.defaultBatch <= 0 {
		o.defaultBatch = defaultRunBatchSize
	}
	return o
}

func (o *Orchestrator) normalize(req *Request) {
	if req.BatchSize <= 0 {
		if req.DryRun {
			req.BatchSize = DefaultPreviewBatchSize
		} else {
			req.BatchSize = o.defaultBatch
		}
	}
	if req.BatchSize > MaxBatchSize {
		req.BatchSize = MaxBatchSize
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
}

// Unsynced returns the eligible donation ids without a success row, ascending.
func (o *Orchestrator) Unsynced(ctx context.Context) ([]int64, error) {
	ids, err := o.source.EligibleDonationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible donations: %w", err)
	}
	synced, err := o.ledger.SyncedDonationIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := synced[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Run processes one page. Cancelling ctx stops the page at the next item
// boundary; the item in flight always completes and keeps its ledger row.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	o.normalize(&req)
	log := logctx.FromCtx(ctx, o.log).With("dry_run", req.DryRun, "batch_size", req.BatchSize, "offset", req.Offset)

	unsynced, err := o.Unsynced(ctx)
	if err != nil {
		log.Errorw("backfill query failed", "error", err)
		return nil, err
	}
	resp := &Response{
		Items:         make([]*reconcile.Result, 0, req.BatchSize),
		BatchSize:     req.BatchSize,
		Offset:        req.Offset,
		TotalUnsynced: len(unsynced),
		HasMore:       req.Offset+req.BatchSize < len(unsynced),
		DryRun:        req.DryRun,
		NextOffset:    req.Offset,
	}
	page := pageOf(unsynced, req.Offset, req.BatchSize)
	log.Infow("backfill page started", "page", len(page), "total_unsynced", resp.TotalUnsynced)

	itemCtx := context.WithoutCancel(ctx)
	for i, id := range page {
		if ctx.Err() != nil {
			resp.Stopped = true
			break
		}
		res := o.process(itemCtx, id, req.DryRun)
		if res == nil {
			// vanished from the source between listing and loading
			continue
		}
		if errors.Is(res.Err, reconcile.ErrNotConfigured) {
			log.Warnw("backfill aborted, api key missing")
			return nil, res.Err
		}
		resp.Items = append(resp.Items, res)
		resp.Processed++
		switch res.Status {
		case types.SyncStatusSuccess:
			resp.Succeeded++
		case types.SyncStatusError:
			resp.Failed++
		}
		if req.DryRun || leavesUnsynced(res) {
			resp.NextOffset++
		}

		if !req.DryRun && i < len(page)-1 {
			if err := o.sleep(ctx, o.delay); err != nil {
				resp.Stopped = true
				break
			}
		}
	}

	metrics.ObserveBackfill(req.DryRun, resp.Processed)
	log.Infow("backfill page finished", "processed", resp.Processed, "succeeded", resp.Succeeded,
		"failed", resp.Failed, "has_more", resp.HasMore, "stopped", resp.Stopped)
	return resp, nil
}

func (o *Orchestrator) process(ctx context.Context, id int64, dryRun bool) *reconcile.Result {
	ev, err := o.source.GetDonation(ctx, id)
	if errors.Is(err, givewp.ErrDonationNotFound) {
		o.log.Warnw("donation disappeared from source", "donation_id", id)
		return nil
	}
	if err != nil {
		o.log.Errorw("failed to load donation", "donation_id", id, "error", err)
		return &reconcile.Result{
			DonationID: id,
			Status:     types.SyncStatusError,
			Error:      fmt.Sprintf("failed to load donation: %v", err),
			Retryable:  true,
			Err:        err,
		}
	}
	if dryRun {
		return o.engine.Reconcile(ctx, ev, true)
	}
	return o.engine.SyncDonation(ctx, ev)
}

// leavesUnsynced reports whether the donation still shows up as unsynced after
// res. A donation another trigger is syncing is counted as synced.
func leavesUnsynced(res *reconcile.Result) bool {
	switch res.Status {
	case types.SyncStatusSuccess, types.SyncStatusAlreadySynced, types.SyncStatusInProgress:
		return false
	}
	return true
}

func pageOf(ids []int64, offset, size int) []int64 {
	if offset >= len(ids) {
		return nil
	}
	end := offset + size
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
