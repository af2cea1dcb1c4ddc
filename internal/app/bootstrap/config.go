// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the rating dashboards.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: api_base_url, session_name, etc.
//   - Environment variables: RATINGBOARD_API_BASE_URL, RATINGBOARD_SESSION_NAME, etc.
//   - Command-line flags: --api_base_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "api_base_url", Default: "http://localhost:5000", Desc: "Base URL of the backend REST API"},
	{Name: "api_timeout", Default: "15s", Desc: "Per-request timeout for backend calls"},

	{Name: "session_key", Default: "", Desc: "Session signing key (required in prod; generated per process in dev)"},
	{Name: "session_name", Default: "ratingboard-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime"},
	{Name: "token_session_key", Default: "sid", Desc: "Session value key that holds the session ID"},

	{Name: "token_default_ttl", Default: "24h", Desc: "Lifetime of bearer tokens without an exp claim (0 = until logout)"},
	{Name: "view_idle_ttl", Default: "30m", Desc: "Deactivate dashboard views idle this long"},
	{Name: "cleanup_interval", Default: "1m", Desc: "How often expired tokens and idle views are swept"},

	{Name: "login_ip_limit", Default: 10, Desc: "Login attempts allowed per client IP per minute (0 disables)"},
	{Name: "login_email_limit", Default: 5, Desc: "Login attempts allowed per account per 5 minutes (0 disables)"},

	{Name: "timeout_ping", Default: "2s", Desc: "Timeout for backend health pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for the login call"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for a dashboard load"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for one dashboard write (create, delete, change password)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, RATINGBOARD_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "RATINGBOARD", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		APIBaseURL: appValues.String("api_base_url"),
		APITimeout: appValues.Duration("api_timeout", 15*time.Second),

		SessionKey:      appValues.String("session_key"),
		SessionName:     appValues.String("session_name"),
		SessionDomain:   appValues.String("session_domain"),
		SessionMaxAge:   appValues.Duration("session_max_age", 24*time.Hour),
		TokenSessionKey: appValues.String("token_session_key"),

		TokenDefaultTTL: appValues.Duration("token_default_ttl", 24*time.Hour),
		ViewIdleTTL:     appValues.Duration("view_idle_ttl", 30*time.Minute),
		CleanupInterval: appValues.Duration("cleanup_interval", time.Minute),

		LoginIPLimit:    appValues.Int("login_ip_limit"),
		LoginEmailLimit: appValues.Int("login_email_limit"),

		TimeoutPing:   appValues.Duration("timeout_ping", 2*time.Second),
		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
	}

	// In dev, a missing key gets a random one. Sessions then do not survive
	// a restart, which is fine locally.
	if appCfg.SessionKey == "" && coreCfg.Env != "prod" {
		appCfg.SessionKey = auth.GenerateSessionKey()
		logger.Warn("session_key not set; generated a per-process key (dev only)")
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := validateAPIBaseURL(appCfg.APIBaseURL); err != nil {
		logger.Error("invalid backend API URL", zap.String("api_base_url", appCfg.APIBaseURL), zap.Error(err))
		return fmt.Errorf("invalid api_base_url: %w", err)
	}
	if appCfg.SessionKey == "" {
		return errors.New("session_key is required in prod")
	}
	if coreCfg.Env == "prod" && len(appCfg.SessionKey) < 32 {
		return errors.New("session_key must be at least 32 characters in prod")
	}
	if appCfg.TokenSessionKey == "" {
		return errors.New("token_session_key must not be empty")
	}
	if appCfg.CleanupInterval <= 0 {
		return errors.New("cleanup_interval must be positive")
	}
	if appCfg.ViewIdleTTL <= 0 {
		return errors.New("view_idle_ttl must be positive")
	}
	if appCfg.LoginIPLimit < 0 || appCfg.LoginEmailLimit < 0 {
		return errors.New("login rate limits must not be negative")
	}
	if appCfg.TokenDefaultTTL < 0 {
		return errors.New("token_default_ttl must not be negative")
	}
	return nil
}

func validateAPIBaseURL(raw string) error {
	if raw == "" {
		return errors.New("empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%q must be an absolute http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
