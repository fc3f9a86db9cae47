package donation_handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/types"
)

type stubSyncer struct {
	calls  []int64
	status types.SyncStatus
	err    error
}

func (s *stubSyncer) SyncDonation(_ context.Context, ev *types.DonationEvent) *reconcile.Result {
	s.calls = append(s.calls, ev.ID)
	return &reconcile.Result{DonationID: ev.ID, Status: s.status, Err: s.err}
}

func newHandler(enabled bool, s *stubSyncer) *DonationHandler {
	cfg := &config.Config{Sync: config.SyncConfig{Enabled: enabled}}
	return NewDonationHandler(cfg, s, zap.NewNop().Sugar())
}

func event(id int64, status string) *types.DonationEvent {
	return &types.DonationEvent{ID: id, Status: status, Email: "a@x.com", Amount: decimal.NewFromInt(5), Kind: types.DonationKindOneTime}
}

func TestHandleDonationUpdated_Guards(t *testing.T) {
	ctx := context.Background()

	s := &stubSyncer{status: types.SyncStatusSuccess}
	out := newHandler(false, s).HandleDonationUpdated(ctx, event(1, types.DonationStatusPublish))
	require.Equal(t, IgnoredSyncDisabled, out.Ignored)

	h := newHandler(true, s)
	require.Equal(t, IgnoredStatus, h.HandleDonationUpdated(ctx, event(1, "pending")).Ignored)
	require.Equal(t, IgnoredStatus, h.HandleDonationUpdated(ctx, event(1, "refunded")).Ignored)
	require.Equal(t, IgnoredInvalidID, h.HandleDonationUpdated(ctx, event(0, types.DonationStatusPublish)).Ignored)
	require.Empty(t, s.calls)

	out = h.HandleDonationUpdated(ctx, event(2, types.DonationStatusSubscription))
	require.Empty(t, out.Ignored)
	require.Equal(t, types.SyncStatusSuccess, out.Result.Status)
	require.Equal(t, []int64{2}, s.calls)
}

func TestHandleDonationUpdated_AlreadySynced(t *testing.T) {
	s := &stubSyncer{status: types.SyncStatusAlreadySynced}
	out := newHandler(true, s).HandleDonationUpdated(context.Background(), event(3, types.DonationStatusPublish))
	require.Equal(t, IgnoredSynced, out.Ignored)
	require.Nil(t, out.Result)
}

func payload(id int64, status string) []byte {
	return []byte(fmt.Sprintf(`{"id":%d,"email":"a@x.com","amount":"5.00","type":"single","status":%q,"createdAt":"2024-03-05 10:00:00"}`, id, status))
}

func TestHandlePayload(t *testing.T) {
	s := &stubSyncer{status: types.SyncStatusError}
	h := newHandler(true, s)

	out, err := h.HandlePayload(context.Background(), payload(7, "publish"))
	require.NoError(t, err)
	require.Equal(t, int64(7), out.DonationID)
	require.Equal(t, types.SyncStatusError, out.Result.Status)

	_, err = h.HandlePayload(context.Background(), []byte(`{"id":`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestHandleMessage(t *testing.T) {
	s := &stubSyncer{status: types.SyncStatusError, err: errors.New("failed to create gift")}
	h := newHandler(true, s)

	require.NoError(t, h.HandleMessage(context.Background(), nil, []byte("not json")), "malformed messages are committed")
	require.NoError(t, h.HandleMessage(context.Background(), nil, payload(8, "publish")), "sync failures live in the ledger")

	s.err = fmt.Errorf("%w: connection refused", reconcile.ErrLedgerUnavailable)
	require.ErrorIs(t, h.HandleMessage(context.Background(), []byte("9"), payload(9, "publish")), reconcile.ErrLedgerUnavailable)
}
