// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	dashboardfeature "github.com/dalemusser/ratingboard/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/ratingboard/internal/app/features/errors"
	healthfeature "github.com/dalemusser/ratingboard/internal/app/features/health"
	loginfeature "github.com/dalemusser/ratingboard/internal/app/features/login"
	logoutfeature "github.com/dalemusser/ratingboard/internal/app/features/logout"
	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, backend setup and the Startup
// hook have completed. It builds the session manager over the shared
// token store, applies session middleware, and mounts the JSON features:
// health, metrics, login, logout and the role dashboards.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(auth.SessionConfig{
		Key:    appCfg.SessionKey,
		Name:   appCfg.SessionName,
		Domain: appCfg.SessionDomain,
		MaxAge: appCfg.SessionMaxAge,
		Secure: secure,
		IDKey:  appCfg.TokenSessionKey,
	}, deps.Tokens, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.NotFound(errorsfeature.NotFound)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowed)

	// Global auth middleware: loads SessionUser into context if logged in
	// and the session's bearer token is still held.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.API, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.Users, sessionMgr, deps.Views, deps.Limiter, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, deps.Views, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Role-based dashboards
	dashboardHandler := dashboardfeature.NewHandler(dashboardfeature.Stores{
		Users:   deps.Users,
		Stores:  deps.Stores,
		Ratings: deps.Ratings,
		Metrics: deps.Stats,
	}, deps.Tokens, deps.Views, errLog, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	return r, nil
}
