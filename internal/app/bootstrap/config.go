// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "GALLERIA"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, library_path, etc.
//   - Environment variables: GALLERIA_MONGO_URI, GALLERIA_LIBRARY_PATH, etc.
//   - Command-line flags: --mongo_uri, --library_path, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "galleria", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// API key for the action API (Bearer token auth)
	{Name: "api_key", Default: "", Desc: "API key for /api access (empty rejects all API requests)"},

	// Library configuration
	{Name: "library_path", Default: "./library", Desc: "On-disk root of the media library"},
	{Name: "library_url", Default: "/library", Desc: "URL prefix the library files are served under"},

	// Base URL for building item CDN URLs
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for item CDN URLs"},

	// Scan schedule
	{Name: "scan_interval", Default: "1h", Desc: "Interval between full library scans (0 disables the schedule)"},
	{Name: "scan_on_start", Default: true, Desc: "Run a full scan once at startup"},
	{Name: "scan_lock_wait", Default: "30s", Desc: "How long operations wait for the library lock"},

	// Stats reconciliation schedule
	{Name: "stats_interval", Default: "15m", Desc: "Interval between counter reconciliation passes"},

	// Scan error retention
	{Name: "error_retention", Default: "0", Desc: "How long scan errors are kept (0 keeps forever)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, GALLERIA_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		APIKey: appValues.String("api_key"),

		LibraryPath: appValues.String("library_path"),
		LibraryURL:  appValues.String("library_url"),
		BaseURL:     appValues.String("base_url"),

		ScanInterval: appValues.Duration("scan_interval", 1*time.Hour),
		ScanOnStart:  appValues.Bool("scan_on_start"),
		ScanLockWait: appValues.Duration("scan_lock_wait", 30*time.Second),

		StatsInterval: appValues.Duration("stats_interval", 15*time.Minute),

		ErrorRetention: appValues.Duration("error_retention", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.LibraryPath == "" {
		return fmt.Errorf("library_path must be set")
	}

	if appCfg.APIKey == "" {
		logger.Warn("api_key is empty; all API requests will be rejected")
	}

	return nil
}
