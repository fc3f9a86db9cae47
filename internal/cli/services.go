package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"github.com/fatflowers/donorsync/internal/app"
	"github.com/fatflowers/donorsync/internal/app/service/backfill"
	"github.com/fatflowers/donorsync/internal/app/service/diagnostics"
	"github.com/fatflowers/donorsync/internal/app/service/match_report"
	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/app/service/statistics"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/logctx"
	"github.com/fatflowers/donorsync/pkg/logger"
	"github.com/fatflowers/donorsync/pkg/tool"
	"github.com/fatflowers/donorsync/pkg/types"
)

type DonationSource interface {
	GetDonation(ctx context.Context, id int64) (*types.DonationEvent, error)
}

type Syncer interface {
	SyncDonation(ctx context.Context, ev *types.DonationEvent) *reconcile.Result
}

type Pager interface {
	Run(ctx context.Context, req backfill.Request) (*backfill.Response, error)
}

type Job interface {
	Start(batchSize int) (backfill.JobStatus, error)
	Stop() bool
	Status() backfill.JobStatus
	Wait(ctx context.Context) error
}

type Reporter interface {
	Generate(ctx context.Context) (*match_report.Report, error)
}

type StatsReader interface {
	GetSyncStats(ctx context.Context) (*statistics.SyncStats, error)
}

type Diagnostics interface {
	TestConnection(ctx context.Context) (*diagnostics.Connection, error)
	TestCodes(ctx context.Context) (diagnostics.CodeReport, error)
	CreateCode(ctx context.Context, in donorperfect.CodeInput) error
}

// Services is what the commands need from the application graph.
type Services struct {
	Source      DonationSource
	Engine      Syncer
	Backfill    Pager
	Job         Job
	Report      Reporter
	Stats       StatsReader
	Diagnostics Diagnostics
}

// startServices builds the same fx graph as the API server minus the HTTP
// server and the Kafka subscription.
func startServices(opts *RootOptions) (*Services, func(), error) {
	log, err := logger.NewConsole(opts.Verbose)
	if err != nil {
		return nil, nil, err
	}
	var (
		src    *givewp.Source
		eng    *reconcile.Engine
		orch   *backfill.Orchestrator
		runner *backfill.Runner
		report *match_report.Service
		stats  *statistics.Service
		diag   *diagnostics.Service
	)
	a := fx.New(
		fx.NopLogger,
		fx.Supply(log),
		app.ServiceModule,
		fx.Populate(&src, &eng, &orch, &runner, &report, &stats, &diag),
	)
	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return nil, nil, err
	}
	stop := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
		defer cancel()
		if err := a.Stop(stopCtx); err != nil {
			log.Warnw("failed to stop services", "error", err)
		}
		_ = log.Sync()
	}
	return &Services{
		Source:      src,
		Engine:      eng,
		Backfill:    orch,
		Job:         runner,
		Report:      report,
		Stats:       stats,
		Diagnostics: diag,
	}, stop, nil
}

func withServices(opts *RootOptions, fn func(s *Services) error) error {
	s, stop, err := opts.services(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start services", err)
	}
	defer stop()
	return fn(s)
}

// commandContext is cancelled on SIGINT/SIGTERM and carries a fresh trace id.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return logctx.WithTraceID(ctx, tool.GenerateTraceID()), cancel
}
