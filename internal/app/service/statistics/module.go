package statistics

import (
	"go.uber.org/fx"

	"github.com/fatflowers/donorsync/internal/platform/givewp"
)

// Module exposes the statistics service via Fx.
var Module = fx.Options(
	fx.Provide(
		func(s *givewp.Source) DonationCounter { return s },
		New,
	),
)
