package backfill

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/internal/platform/db/dbtest"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/types"
)

type fakeSource struct {
	ids     []int64
	missing map[int64]bool
	broken  map[int64]bool
}

func (f *fakeSource) EligibleDonationIDs(context.Context) ([]int64, error) {
	return append([]int64(nil), f.ids...), nil
}

func (f *fakeSource) GetDonation(_ context.Context, id int64) (*types.DonationEvent, error) {
	if f.missing[id] {
		return nil, givewp.ErrDonationNotFound
	}
	if f.broken[id] {
		return nil, errors.New("connection reset")
	}
	return &types.DonationEvent{ID: id, Email: "d@x.com", Amount: decimal.NewFromInt(5), Kind: types.DonationKindOneTime}, nil
}

// fakeEngine records calls and marks successes in the shared synced set.
type fakeEngine struct {
	mu      sync.Mutex
	synced  map[int64]struct{}
	fail    map[int64]bool
	calls   []int64
	dryRuns int
	onCall  func(id int64)
	notConf bool
}

func (f *fakeEngine) SyncedDonationIDs(context.Context) (map[int64]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]struct{}, len(f.synced))
	for k := range f.synced {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeEngine) Reconcile(_ context.Context, ev *types.DonationEvent, dryRun bool) *reconcile.Result {
	f.mu.Lock()
	f.calls = append(f.calls, ev.ID)
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall(ev.ID)
	}
	if f.notConf {
		return &reconcile.Result{DonationID: ev.ID, Status: types.SyncStatusError, Err: reconcile.ErrNotConfigured}
	}
	if dryRun {
		f.mu.Lock()
		f.dryRuns++
		f.mu.Unlock()
		return &reconcile.Result{DonationID: ev.ID, Status: types.SyncStatusPreview, Preview: &reconcile.Preview{DonorAction: types.PreviewDonorCreate}}
	}
	if f.fail[ev.ID] {
		return &reconcile.Result{DonationID: ev.ID, Status: types.SyncStatusError, Error: "failed to create gift: boom"}
	}
	f.mu.Lock()
	f.synced[ev.ID] = struct{}{}
	f.mu.Unlock()
	return &reconcile.Result{DonationID: ev.ID, Status: types.SyncStatusSuccess}
}

func (f *fakeEngine) SyncDonation(ctx context.Context, ev *types.DonationEvent) *reconcile.Result {
	f.mu.Lock()
	_, done := f.synced[ev.ID]
	f.mu.Unlock()
	if done {
		return &reconcile.Result{DonationID: ev.ID, Status: types.SyncStatusAlreadySynced}
	}
	return f.Reconcile(ctx, ev, false)
}

type sleepRecorder struct {
	mu    sync.Mutex
	count int
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return ctx.Err()
}

func idsUpTo(n int) []int64 {
	return lo.Map(lo.Range(n), func(i int, _ int) int64 { return int64(i + 1) })
}

func newTestOrchestrator(src *fakeSource, eng *fakeEngine) (*Orchestrator, *sleepRecorder) {
	if eng.synced == nil {
		eng.synced = map[int64]struct{}{}
	}
	o := New(&config.Config{}, src, eng, eng, zap.NewNop().Sugar())
	rec := &sleepRecorder{}
	o.sleep = rec.sleep
	return o, rec
}

func TestRun_DryRunPagination(t *testing.T) {
	eng := &fakeEngine{}
	o, rec := newTestOrchestrator(&fakeSource{ids: idsUpTo(120)}, eng)
	ctx := context.Background()

	total := 0
	var last *Response
	for i, offset := range []int{0, 50, 100} {
		resp, err := o.Run(ctx, Request{DryRun: true, BatchSize: 50, Offset: offset})
		require.NoError(t, err)
		require.Equal(t, 120, resp.TotalUnsynced)
		if i == 0 {
			require.Equal(t, 50, resp.Processed)
			require.True(t, resp.HasMore)
			require.Equal(t, int64(1), resp.Items[0].DonationID)
		}
		total += resp.Processed
		last = resp
	}
	require.False(t, last.HasMore)
	require.Equal(t, 20, last.Processed)
	require.Equal(t, 120, total)
	require.Equal(t, 0, rec.count, "dry run is not paced")
	require.Empty(t, eng.synced)
	require.Equal(t, 120, eng.dryRuns)
}

func TestRun_SkipsSyncedAndPacesRealRuns(t *testing.T) {
	eng := &fakeEngine{synced: map[int64]struct{}{2: {}, 4: {}}}
	o, rec := newTestOrchestrator(&fakeSource{ids: idsUpTo(6)}, eng)

	resp, err := o.Run(context.Background(), Request{BatchSize: 10})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3, 5, 6}, eng.calls)
	require.Equal(t, 4, resp.TotalUnsynced)
	require.Equal(t, 4, resp.Succeeded)
	require.False(t, resp.HasMore)
	require.Equal(t, 3, rec.count, "delay between items only")
	require.Equal(t, 0, resp.NextOffset)
}

func TestRun_DefaultsBatchSize(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeSource{ids: idsUpTo(80)}, &fakeEngine{})

	preview, err := o.Run(context.Background(), Request{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, DefaultPreviewBatchSize, preview.BatchSize)

	run, err := o.Run(context.Background(), Request{Offset: -3})
	require.NoError(t, err)
	require.Equal(t, defaultRunBatchSize, run.BatchSize)
	require.Equal(t, 0, run.Offset)

	huge, err := o.Run(context.Background(), Request{DryRun: true, BatchSize: 100000})
	require.NoError(t, err)
	require.Equal(t, MaxBatchSize, huge.BatchSize)
}

func TestRun_FailuresContinueAndAdvanceOffset(t *testing.T) {
	eng := &fakeEngine{fail: map[int64]bool{2: true}}
	src := &fakeSource{ids: idsUpTo(5), missing: map[int64]bool{3: true}, broken: map[int64]bool{4: true}}
	o, _ := newTestOrchestrator(src, eng)

	resp, err := o.Run(context.Background(), Request{BatchSize: 5})
	require.NoError(t, err)
	require.Equal(t, 4, resp.Processed)
	require.Equal(t, 2, resp.Succeeded)
	require.Equal(t, 2, resp.Failed)
	require.Equal(t, 2, resp.NextOffset)

	loadErr, ok := lo.Find(resp.Items, func(r *reconcile.Result) bool { return r.DonationID == 4 })
	require.True(t, ok)
	require.Equal(t, types.SyncStatusError, loadErr.Status)
	require.True(t, loadErr.Retryable)
	require.Equal(t, []int64{1, 2, 5}, eng.calls)
}

func TestRun_CancelStopsBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eng := &fakeEngine{}
	eng.onCall = func(id int64) {
		if id == 3 {
			cancel()
		}
	}
	o, _ := newTestOrchestrator(&fakeSource{ids: idsUpTo(10)}, eng)

	resp, err := o.Run(ctx, Request{BatchSize: 10})
	require.NoError(t, err)
	require.True(t, resp.Stopped)
	require.Equal(t, 3, resp.Processed, "item in flight completes")
	require.Len(t, eng.synced, 3)
}

func TestRun_NotConfiguredAborts(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeSource{ids: idsUpTo(3)}, &fakeEngine{notConf: true})
	_, err := o.Run(context.Background(), Request{BatchSize: 3})
	require.ErrorIs(t, err, reconcile.ErrNotConfigured)
}

func TestPageOf(t *testing.T) {
	ids := idsUpTo(5)
	require.Equal(t, []int64{1, 2}, pageOf(ids, 0, 2))
	require.Equal(t, []int64{5}, pageOf(ids, 4, 2))
	require.Nil(t, pageOf(ids, 5, 2))
}

// giftCRM counts gifts per reference and runs onGift before answering.
type giftCRM struct {
	mu     sync.Mutex
	gifts  map[string]int
	onGift func(ref string)
}

func (c *giftCRM) Configured() bool { return true }

func (c *giftCRM) FindDonorByEmail(context.Context, string) (int64, bool, error) {
	return 42, true, nil
}

func (c *giftCRM) CreateDonor(context.Context, donorperfect.DonorInput) (int64, error) {
	return 0, errors.New("unexpected donor creation")
}

func (c *giftCRM) CreatePledge(context.Context, donorperfect.PledgeInput) (int64, error) {
	return 0, errors.New("unexpected pledge creation")
}

func (c *giftCRM) CreateGift(_ context.Context, in donorperfect.GiftInput) (int64, error) {
	c.mu.Lock()
	c.gifts[in.Reference]++
	n := len(c.gifts)
	onGift := c.onGift
	c.mu.Unlock()
	if onGift != nil {
		onGift(in.Reference)
	}
	return int64(7000 + n), nil
}

func TestRun_DoesNotResendDonationSyncedByAnotherTrigger(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{ids: idsUpTo(3)}
	ledger := sync_log.New(dbtest.Open(t), zap.NewNop().Sugar())
	crm := &giftCRM{gifts: map[string]int{}}
	eng := reconcile.New(&config.Config{Sync: config.SyncConfig{DefaultGLCode: "UN", DefaultGiftType: "CC"}},
		crm, ledger, zap.NewNop().Sugar())

	var realtime *reconcile.Result
	crm.onGift = func(ref string) {
		if ref != "GIVEWP-1" || realtime != nil {
			return
		}
		ev, err := src.GetDonation(ctx, 2)
		require.NoError(t, err)
		realtime = eng.SyncDonation(ctx, ev)
	}

	o := New(&config.Config{}, src, ledger, eng, zap.NewNop().Sugar())
	o.sleep = (&sleepRecorder{}).sleep

	resp, err := o.Run(ctx, Request{BatchSize: 10})
	require.NoError(t, err)
	require.NotNil(t, realtime)
	require.Equal(t, types.SyncStatusSuccess, realtime.Status)

	second, ok := lo.Find(resp.Items, func(r *reconcile.Result) bool { return r.DonationID == 2 })
	require.True(t, ok)
	require.Equal(t, types.SyncStatusAlreadySynced, second.Status)
	require.Equal(t, map[string]int{"GIVEWP-1": 1, "GIVEWP-2": 1, "GIVEWP-3": 1}, crm.gifts)
	require.Equal(t, 0, resp.NextOffset)
}

func TestRun_InProgressDonationDoesNotHoldOffset(t *testing.T) {
	require.False(t, leavesUnsynced(&reconcile.Result{Status: types.SyncStatusInProgress}))
	require.True(t, leavesUnsynced(&reconcile.Result{Status: types.SyncStatusError}))
}
