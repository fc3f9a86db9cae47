package match_report

import (
	"go.uber.org/fx"

	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
)

var Module = fx.Options(
	fx.Provide(
		func(s *givewp.Source) DonorLister { return s },
		func(c *donorperfect.Client) DonorFinder { return c },
		New,
	),
)
