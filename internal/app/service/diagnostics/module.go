package diagnostics

import (
	"go.uber.org/fx"

	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
)

var Module = fx.Options(
	fx.Provide(
		func(c *donorperfect.Client) CRM { return c },
		New,
	),
)
