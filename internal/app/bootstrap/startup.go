// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"strings"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	errorlogstore "github.com/galleriahq/galleria/internal/app/store/errorlog"
	eventstore "github.com/galleriahq/galleria/internal/app/store/events"
	itemstore "github.com/galleriahq/galleria/internal/app/store/items"
	userstore "github.com/galleriahq/galleria/internal/app/store/users"
	"github.com/galleriahq/galleria/internal/app/system/locks"
	"github.com/galleriahq/galleria/internal/app/system/scan"
	"github.com/galleriahq/galleria/internal/app/system/stats"
	"github.com/galleriahq/galleria/internal/app/system/tasks"
	"github.com/galleriahq/galleria/internal/app/system/taxonomy"
)

// Package-level service instances built in Startup and shared with
// BuildHandler and Shutdown. WAFFLE calls the hooks in order, so these
// are always set before BuildHandler runs.
var (
	itemsStore  *itemstore.Store
	eventsStore *eventstore.Store
	usersStore  *userstore.Store
	errlogStore *errorlogstore.Store

	lockSvc    *locks.Service
	treeCache  *taxonomy.TreeCache
	aggregator *stats.Aggregator
	scanEngine *scan.Engine

	taskRunner *tasks.Runner
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// This is where the stores and the scan engine are wired together and the
// background task runner is started. Returning a non-nil error aborts
// startup and prevents the server from starting.
//
// The context will be cancelled if the process is asked to shut down while
// Startup is running; honor it in any long-running work.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	itemsStore = itemstore.New(deps.MongoDatabase)
	eventsStore = eventstore.New(deps.MongoDatabase)
	usersStore = userstore.New(deps.MongoDatabase)
	errlogStore = errorlogstore.New(deps.MongoDatabase)

	lockSvc = locks.New(appCfg.ScanLockWait)
	treeCache = taxonomy.NewTreeCache(deps.Library.Categories)
	aggregator = stats.New(itemsStore, eventsStore, logger)

	scanEngine = scan.New(
		deps.Library,
		itemsStore,
		errlogStore,
		aggregator,
		treeCache,
		lockSvc,
		cdnBase(appCfg),
		logger,
	)

	startTaskRunner(appCfg, logger)

	return nil
}

// cdnBase joins the base URL and library URL prefix into the base every
// item CDN URL is built from.
func cdnBase(appCfg AppConfig) string {
	base := strings.TrimRight(appCfg.BaseURL, "/")
	prefix := "/" + strings.Trim(appCfg.LibraryURL, "/")
	return base + prefix
}

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.FullScanJob(scanEngine, appCfg.ScanInterval, appCfg.ScanOnStart, logger))
	taskRunner.Register(tasks.StatsReconcileJob(aggregator, appCfg.StatsInterval, logger))
	taskRunner.Register(tasks.ErrorLogPruneJob(errlogStore, appCfg.ErrorRetention, logger))

	taskRunner.Start()
}
