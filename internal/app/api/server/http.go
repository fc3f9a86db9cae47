package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/donorsync/docs"
	"github.com/fatflowers/donorsync/internal/app/api/handlers"
	mw "github.com/fatflowers/donorsync/internal/app/api/middleware"
	"github.com/fatflowers/donorsync/internal/app/service/backfill"
	"github.com/fatflowers/donorsync/internal/app/service/diagnostics"
	dh "github.com/fatflowers/donorsync/internal/app/service/donation_handler"
	"github.com/fatflowers/donorsync/internal/app/service/match_report"
	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/app/service/statistics"
	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	cfgpkg "github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeParams struct {
	fx.In

	Lc       fx.Lifecycle
	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	LedgerDB *gorm.DB
	Source   *givewp.Source
	CRM      *donorperfect.Client
	Engine   *reconcile.Engine
	Backfill *backfill.Orchestrator
	Job      *backfill.Runner
	Report   *match_report.Service
	Diag     *diagnostics.Service
	Ledger   *sync_log.Service
	Stats    *statistics.Service
	Webhook  *dh.DonationHandler
}

func registerRoutes(r *gin.Engine, p routeParams) {
	log, cfg := p.Log, p.Cfg
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			SkipPaths: []string{"/healthz", "/readyz"},
			Logger:    log,
		})
		prom.Listen(r, cfg.MetricsAddr)
		p.Lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				prom.Start()
				log.Infow("metrics started", "addr", cfg.MetricsAddr)
				return nil
			},
			OnStop: prom.Shutdown,
		})
	}

	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub, probes(p))
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if cfg.Auth.JWTSecret == "" {
		log.Warnw("auth.jwt_secret is empty, admin and webhook routes are unauthenticated")
	}
	auth := mw.BearerAuth(cfg.Auth.JWTSecret, log)

	admin := r.Group("/api/v1/admin")
	admin.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log), auth)
	handlers.RegisterAdminRoutes(admin, &handlers.AdminServices{
		Source:      p.Source,
		Engine:      p.Engine,
		Backfill:    p.Backfill,
		Job:         p.Job,
		Report:      p.Report,
		Diagnostics: p.Diag,
		Ledger:      p.Ledger,
		Stats:       p.Stats,
		Logger:      log,
	})

	donation := r.Group("/api/v2/donation")
	donation.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log), auth)
	handlers.RegisterDonationWebhookRoutes(donation, p.Webhook)
}

func probes(p routeParams) map[string]handlers.Probe {
	return map[string]handlers.Probe{
		"ledger": func(ctx context.Context) error { return ping(ctx, p.LedgerDB) },
		"givewp": func(ctx context.Context) error {
			if p.Source.DB() == nil {
				return givewp.ErrSourceDisabled
			}
			return ping(ctx, p.Source.DB())
		},
		"donorperfect": func(context.Context) error {
			if !p.CRM.Configured() {
				return reconcile.ErrNotConfigured
			}
			return nil
		},
	}
}

func ping(ctx context.Context, gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
