package givewp

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(Open),
	fx.Invoke(registerSourceClose),
)

func registerSourceClose(lc fx.Lifecycle, l *zap.SugaredLogger, s *Source) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if s.db == nil {
				return nil
			}
			sqlDB, err := s.db.DB()
			if err != nil {
				return nil
			}
			l.Infow("closing givewp connection pool")
			return sqlDB.Close()
		},
	})
}
