// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging, CORS, and timeouts. AppConfig is where everything
// specific to the gallery lives: the MongoDB connection, the library
// mount, the API key, and the background scan schedule.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// API key authentication for /api/* routes.
	// Every caller presents this as "Authorization: Bearer <key>".
	APIKey string

	// Library configuration. LibraryPath is the on-disk root of the media
	// tree; LibraryURL is the URL prefix the same files are served under.
	LibraryPath string // e.g., "/srv/gallery/library"
	LibraryURL  string // e.g., "/library"

	// Base URL used to build absolute CDN URLs for items
	// (e.g., "https://cdn.example.com"). Combined with LibraryURL.
	BaseURL string

	// Background scan schedule
	ScanInterval time.Duration // Interval between full scans (0 disables the schedule)
	ScanOnStart  bool          // Run a full scan once at startup
	ScanLockWait time.Duration // How long scan/edit operations wait for the library lock

	// Stats reconciliation schedule
	StatsInterval time.Duration // Interval between counter reconciliation passes

	// Scan error log retention (0 keeps errors forever)
	ErrorRetention time.Duration
}
