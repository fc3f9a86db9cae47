package donation_handler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/platform/messaging"
	"github.com/fatflowers/donorsync/pkg/config"
)

// Module exposes the real-time donation handler and, when enabled, subscribes it
// to the donation update topic.
var Module = fx.Options(
	fx.Provide(
		func(e *reconcile.Engine) Syncer { return e },
		NewDonationHandler,
	),
	fx.Invoke(registerSubscription),
)

func registerSubscription(lc fx.Lifecycle, cfg *config.Config, h *DonationHandler, log *zap.SugaredLogger) {
	if !cfg.Kafka.Enabled {
		return
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warnw("kafka enabled without brokers, donation topic not consumed")
		return
	}
	consumer := messaging.NewKafkaConsumer(log, &cfg.Kafka)
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return consumer.Subscribe(ctx, h.HandleMessage)
		},
		OnStop: func(context.Context) error {
			cancel()
			return consumer.Close()
		},
	})
}
