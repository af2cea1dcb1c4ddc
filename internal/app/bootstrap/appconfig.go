// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// AppConfig carries what the dashboard service itself needs: where the
// backend API lives, how sessions and bearer tokens are kept, and how
// long idle dashboard views survive.
type AppConfig struct {
	// Backend REST API
	APIBaseURL string        // e.g. https://api.example.com (no trailing slash needed)
	APITimeout time.Duration // per-request ceiling on top of context deadlines

	// Session management configuration
	SessionKey      string        // Secret key for signing session cookies (must be strong in production)
	SessionName     string        // Cookie name for sessions (default: ratingboard-session)
	SessionDomain   string        // Cookie domain (blank means current host)
	SessionMaxAge   time.Duration // Cookie lifetime
	TokenSessionKey string        // Session value key holding the session ID

	// Bearer tokens and live views
	TokenDefaultTTL time.Duration // Lifetime of tokens that carry no exp claim (0 = until logout)
	ViewIdleTTL     time.Duration // Idle views are deactivated after this long
	CleanupInterval time.Duration // How often expired tokens and idle views are swept

	// Login rate limiting (0 disables that limit)
	LoginIPLimit    int // attempts per client IP per minute
	LoginEmailLimit int // attempts per account per 5 minutes

	// Operation timeouts (zero keeps the package default)
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
