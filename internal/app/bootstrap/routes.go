// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apifeature "github.com/galleriahq/galleria/internal/app/features/api"
	healthfeature "github.com/galleriahq/galleria/internal/app/features/health"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the stores and scan engine built in
// Startup are available here.
//
// The surface is small: the action API under /api, health endpoints, and
// the library files themselves. There are no sessions, cookies, or HTML
// pages; every mutating route is protected by the API key middleware
// inside the API router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Action API. API key auth and permissive CORS are applied inside.
	apiHandler := apifeature.NewHandler(
		itemsStore,
		eventsStore,
		usersStore,
		aggregator,
		scanEngine,
		deps.Library,
		treeCache,
		lockSvc,
		cdnBase(appCfg),
		logger,
	)
	r.Mount("/api", apifeature.Routes(apiHandler, appCfg.APIKey, logger))

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.LibraryPath, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Serve the library files directly, with pre-compressed file support.
	// In production a CDN usually fronts this prefix; the origin still
	// serves the same paths the CDN URLs point at.
	r.Handle(appCfg.LibraryURL+"/*", fileserver.Handler(appCfg.LibraryURL, appCfg.LibraryPath))

	return r, nil
}
