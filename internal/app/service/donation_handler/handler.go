package donation_handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/tool"
	"github.com/fatflowers/donorsync/pkg/types"
)

// Reasons a donation update is ignored without calling the engine.
const (
	IgnoredSyncDisabled = "sync disabled"
	IgnoredStatus       = "status not eligible"
	IgnoredInvalidID    = "invalid donation id"
	IgnoredSynced       = "already synced"
	IgnoredInProgress   = "sync in progress"
)

var ErrInvalidPayload = errors.New("invalid donation payload")

type Syncer interface {
	SyncDonation(ctx context.Context, ev *types.DonationEvent) *reconcile.Result
}

// Outcome of one donation update. Result is nil when the update was ignored.
type Outcome struct {
	DonationID int64             `json:"donation_id"`
	Ignored    string            `json:"ignored,omitempty"`
	Result     *reconcile.Result `json:"result,omitempty"`
}

// DonationHandler reacts to donation status changes published by GiveWP.
// Failures are only reported through the sync ledger.
type DonationHandler struct {
	cfg    *config.Config
	syncer Syncer
	Logger *zap.SugaredLogger
}

func NewDonationHandler(cfg *config.Config, syncer Syncer, log *zap.SugaredLogger) *DonationHandler {
	return &DonationHandler{cfg: cfg, syncer: syncer, Logger: log}
}

// HandleDonationUpdated applies the real-time guards and syncs the donation.
func (h *DonationHandler) HandleDonationUpdated(ctx context.Context, ev *types.DonationEvent) *Outcome {
	out := &Outcome{DonationID: ev.ID}
	log := logctx.FromCtx(ctx, h.Logger).With("donation_id", ev.ID, "status", ev.Status)

	switch {
	case !h.cfg.Sync.Enabled:
		out.Ignored = IgnoredSyncDisabled
	case !lo.Contains(types.SyncableDonationStatuses, ev.Status):
		out.Ignored = IgnoredStatus
	case ev.ID <= 0:
		out.Ignored = IgnoredInvalidID
	}
	if out.Ignored != "" {
		log.Debugw("donation update ignored", "reason", out.Ignored)
		return out
	}

	res := h.syncer.SyncDonation(ctx, ev)
	switch res.Status {
	case types.SyncStatusAlreadySynced:
		out.Ignored = IgnoredSynced
		log.Debugw("donation update ignored", "reason", out.Ignored)
		return out
	case types.SyncStatusInProgress:
		out.Ignored = IgnoredInProgress
		return out
	}
	out.Result = res
	log.Infow("donation update handled", "sync_status", res.Status, "error", res.Error)
	return out
}

// HandlePayload decodes a GiveWP donation snapshot and handles it.
func (h *DonationHandler) HandlePayload(ctx context.Context, data []byte) (*Outcome, error) {
	ev, err := givewp.ParseDonationPayload(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return h.HandleDonationUpdated(ctx, ev), nil
}

// HandleMessage is the Kafka callback. Malformed messages are logged and
// committed. Only a failure to reach the ledger is returned, so the offset
// is not committed.
func (h *DonationHandler) HandleMessage(ctx context.Context, key, value []byte) error {
	ctx = logctx.WithTraceID(ctx, tool.GenerateTraceID())
	out, err := h.HandlePayload(ctx, value)
	if err != nil {
		logctx.FromCtx(ctx, h.Logger).Warnw("dropping malformed donation message", "key", string(key), "error", err)
		return nil
	}
	if out.Result != nil && errors.Is(out.Result.Err, reconcile.ErrLedgerUnavailable) {
		return out.Result.Err
	}
	return nil
}
