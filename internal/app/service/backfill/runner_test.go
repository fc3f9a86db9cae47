package backfill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitDone(t *testing.T, r *Runner) JobStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
	return r.Status()
}

func TestRunner_RunsUntilEveryDonationWasAttempted(t *testing.T) {
	eng := &fakeEngine{fail: map[int64]bool{3: true, 12: true}}
	o, _ := newTestOrchestrator(&fakeSource{ids: idsUpTo(25)}, eng)
	r := NewRunner(o, zap.NewNop().Sugar())

	st, err := r.Start(5)
	require.NoError(t, err)
	require.True(t, st.Running)
	require.NotEmpty(t, st.TraceID)

	st = waitDone(t, r)
	require.False(t, st.Running)
	require.False(t, st.Stopped)
	require.Equal(t, 23, st.Succeeded)
	require.Equal(t, 2, st.Failed)
	require.Equal(t, 25, st.Processed, "each donation attempted exactly once")
	require.Equal(t, 2, st.Remaining)
	require.NotNil(t, st.FinishedAt)
	require.Len(t, eng.synced, 23)
}

func TestRunner_SingleJob(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 10)
	eng := &fakeEngine{}
	eng.onCall = func(int64) {
		started <- struct{}{}
		<-block
	}
	o, _ := newTestOrchestrator(&fakeSource{ids: idsUpTo(3)}, eng)
	r := NewRunner(o, zap.NewNop().Sugar())

	_, err := r.Start(3)
	require.NoError(t, err)
	_, err = r.Start(3)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	<-started
	require.True(t, r.Stop())
	close(block)
	st := waitDone(t, r)
	require.True(t, st.Stopped)
	require.Equal(t, 1, st.Processed, "item in flight completes before stopping")
	require.False(t, r.Stop())

	_, err = r.Start(3)
	require.NoError(t, err)
	waitDone(t, r)
}

type failingPages struct{}

func (failingPages) Run(context.Context, Request) (*Response, error) {
	return nil, errors.New("source unavailable")
}

func TestRunner_RecordsPageError(t *testing.T) {
	r := newRunner(failingPages{}, zap.NewNop().Sugar())
	_, err := r.Start(0)
	require.NoError(t, err)
	st := waitDone(t, r)
	require.Equal(t, "source unavailable", st.LastError)
	require.False(t, st.Running)
}

func TestRunner_ShutdownWithoutJob(t *testing.T) {
	r := newRunner(failingPages{}, zap.NewNop().Sugar())
	require.NoError(t, r.Shutdown(context.Background()))
}
