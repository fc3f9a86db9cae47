package backfill

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/tool"
)

var ErrAlreadyRunning = errors.New("backfill already running")

// JobStatus is a snapshot of the operator driven backfill job.
type JobStatus struct {
	Running    bool       `json:"running"`
	TraceID    string     `json:"trace_id,omitempty"`
	BatchSize  int        `json:"batch_size"`
	Offset     int        `json:"offset"`
	Pages      int        `json:"pages"`
	Processed  int        `json:"processed"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Remaining  int        `json:"remaining"`
	Stopped    bool       `json:"stopped"`
	LastError  string     `json:"last_error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type pageRunner interface {
	Run(ctx context.Context, req Request) (*Response, error)
}

// Runner loops real backfill pages in the background until every unsynced
// donation was attempted once or an operator stops it. Only one job runs at a time.
type Runner struct {
	orch pageRunner
	log  *zap.SugaredLogger

	mu     sync.Mutex
	status JobStatus
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(orch *Orchestrator, log *zap.SugaredLogger) *Runner {
	return newRunner(orch, log)
}

func newRunner(orch pageRunner, log *zap.SugaredLogger) *Runner {
	return &Runner{orch: orch, log: log}
}

// Start launches the job. batchSize <= 0 uses the configured run batch size.
func (r *Runner) Start(batchSize int) (JobStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Running {
		return r.status, ErrAlreadyRunning
	}
	traceID := tool.GenerateTraceID()
	ctx, cancel := context.WithCancel(logctx.WithTraceID(context.Background(), traceID))
	now := time.Now()
	r.status = JobStatus{Running: true, TraceID: traceID, BatchSize: batchSize, StartedAt: &now}
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, batchSize, r.done)
	return r.status, nil
}

// Stop asks the job to end at the next item boundary. It returns false when no
// job is running.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.status.Running || r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

func (r *Runner) Status() JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Wait blocks until the current job, if any, has finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops a running job and waits for the item in flight.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.Stop()
	return r.Wait(ctx)
}

func (r *Runner) loop(ctx context.Context, batchSize int, done chan struct{}) {
	log := logctx.FromCtx(ctx, r.log)
	defer close(done)
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorw("backfill job panicked", "panic", rec)
			r.finish(func(s *JobStatus) { s.LastError = "internal error" })
		}
	}()

	log.Infow("backfill job started", "batch_size", batchSize)
	offset := 0
	for {
		resp, err := r.orch.Run(ctx, Request{BatchSize: batchSize, Offset: offset})
		if err != nil {
			log.Errorw("backfill job failed", "offset", offset, "error", err)
			r.finish(func(s *JobStatus) {
				s.LastError = err.Error()
				s.Stopped = ctx.Err() != nil
			})
			return
		}
		remaining := resp.TotalUnsynced - resp.Succeeded
		r.update(func(s *JobStatus) {
			s.BatchSize = resp.BatchSize
			s.Pages++
			s.Processed += resp.Processed
			s.Succeeded += resp.Succeeded
			s.Failed += resp.Failed
			s.Offset = resp.NextOffset
			s.Remaining = remaining
		})
		offset = resp.NextOffset
		if resp.Stopped || ctx.Err() != nil {
			log.Infow("backfill job stopped", "offset", offset)
			r.finish(func(s *JobStatus) { s.Stopped = true })
			return
		}
		if resp.Processed == 0 || offset >= remaining {
			log.Infow("backfill job completed", "offset", offset, "remaining", remaining)
			r.finish(func(*JobStatus) {})
			return
		}
	}
}

func (r *Runner) update(fn func(s *JobStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.status)
}

func (r *Runner) finish(fn func(s *JobStatus)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.status)
	now := time.Now()
	r.status.Running = false
	r.status.FinishedAt = &now
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
