// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"math"
	"time"

	metricsstore "github.com/dalemusser/ratingboard/internal/app/store/metrics"
	ratingstore "github.com/dalemusser/ratingboard/internal/app/store/ratings"
	storestore "github.com/dalemusser/ratingboard/internal/app/store/stores"
	userstore "github.com/dalemusser/ratingboard/internal/app/store/users"
	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/app/system/ratelimit"
	"github.com/dalemusser/ratingboard/internal/app/system/timeouts"
	"github.com/dalemusser/ratingboard/internal/app/system/viewstate"
	"github.com/dalemusser/ratingboard/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// ConnectDB builds the backend API client and everything layered on it.
// An unreachable backend is logged but does not stop startup; the
// dashboards report it per request and /health reports 503.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	api, err := apiclient.New(appCfg.APIBaseURL, logger.Named("api"),
		apiclient.WithTimeout(appCfg.APITimeout),
		apiclient.WithMetrics(apiclient.NewMetrics(reg)))
	if err != nil {
		return DBDeps{}, err
	}

	pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := api.Ping(pctx); err != nil {
		logger.Warn("backend API not reachable at startup",
			zap.String("api_base_url", api.BaseURL()),
			zap.Error(err))
	} else {
		logger.Info("backend API reachable", zap.String("api_base_url", api.BaseURL()))
	}

	tokens := auth.NewTokenStore(appCfg.TokenDefaultTTL)
	views := viewstate.NewRegistry(appCfg.ViewIdleTTL, logger.Named("views"))

	var (
		limiter  *ratelimit.LoginLimiter
		sweepers []workers.Sweeper
	)
	if appCfg.LoginIPLimit > 0 || appCfg.LoginEmailLimit > 0 {
		limiter = ratelimit.NewLoginLimiterWithConfig(
			orUnlimited(appCfg.LoginIPLimit), time.Minute,
			orUnlimited(appCfg.LoginEmailLimit), 5*time.Minute)
		sweepers = append(sweepers, limiter)
	}

	return DBDeps{
		API:     api,
		Metrics: reg,
		Users:   userstore.New(api),
		Stores:  storestore.New(api),
		Ratings: ratingstore.New(api),
		Stats:   metricsstore.New(api),
		Tokens:  tokens,
		Views:   views,
		Limiter: limiter,
		Cleanup: workers.NewSessionCleanup(tokens, views, logger.Named("cleanup"), appCfg.CleanupInterval, sweepers...),
	}, nil
}

// orUnlimited maps a disabled (zero) limit to one nobody reaches.
func orUnlimited(n int) int {
	if n <= 0 {
		return math.MaxInt32
	}
	return n
}

// EnsureSchema is a no-op; the backend owns all persistent data.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	return nil
}
