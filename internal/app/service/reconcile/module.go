package reconcile

import (
	"go.uber.org/fx"

	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
)

// Module exposes the reconciliation engine via Fx.
var Module = fx.Options(
	fx.Provide(
		func(c *donorperfect.Client) CRM { return c },
		func(s *sync_log.Service) Ledger { return s },
		New,
	),
)
