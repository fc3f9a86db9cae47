package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/donorsync/internal/app/api/server"
	"github.com/fatflowers/donorsync/internal/app/service/backfill"
	"github.com/fatflowers/donorsync/internal/app/service/diagnostics"
	"github.com/fatflowers/donorsync/internal/app/service/donation_handler"
	"github.com/fatflowers/donorsync/internal/app/service/match_report"
	"github.com/fatflowers/donorsync/internal/app/service/reconcile"
	"github.com/fatflowers/donorsync/internal/app/service/statistics"
	"github.com/fatflowers/donorsync/internal/app/service/sync_log"
	"github.com/fatflowers/donorsync/internal/platform/db"
	"github.com/fatflowers/donorsync/internal/platform/donorperfect"
	"github.com/fatflowers/donorsync/internal/platform/givewp"
	"github.com/fatflowers/donorsync/pkg/config"
	"github.com/fatflowers/donorsync/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// ServiceModule wires everything except the logger, the HTTP server and the
// Kafka subscription. The operator CLI supplies its own console logger.
var ServiceModule = fx.Options(
	config.Module,
	db.Module,
	givewp.Module,
	donorperfect.Module,
	sync_log.Module,
	reconcile.Module,
	backfill.Module,
	statistics.Module,
	match_report.Module,
	diagnostics.Module,
)

var Module = fx.Options(
	logger.Module,
	ServiceModule,
	donation_handler.Module,
	server.Module,
)
