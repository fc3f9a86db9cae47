package backfill

import (
	"context"

	"go.uber.org/fx"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
)

// Module exposes the backfill orchestrator and the operator job runner via Fx.
var Module = fx.Options(
	fx.Provide(
		func(s *givewp.Source) Source { return s },
		func(s *sync_log.Service) Ledger { return s },
		func(e *reconcile.Engine) Reconciler { return e },
		New,
		NewRunner,
	),
	fx.Invoke(registerRunnerStop),
)

func registerRunnerStop(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.Shutdown(ctx)
		},
	})
}
