// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	metricsstore "github.com/dalemusser/ratingboard/internal/app/store/metrics"
	ratingstore "github.com/dalemusser/ratingboard/internal/app/store/ratings"
	storestore "github.com/dalemusser/ratingboard/internal/app/store/stores"
	userstore "github.com/dalemusser/ratingboard/internal/app/store/users"
	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/app/system/ratelimit"
	"github.com/dalemusser/ratingboard/internal/app/system/viewstate"
	"github.com/dalemusser/ratingboard/internal/app/system/workers"
	"github.com/prometheus/client_golang/prometheus"
)

// DBDeps holds the back-end dependencies for the app. There is no
// database; everything lives behind the backend REST API.
type DBDeps struct {
	API     *apiclient.Client
	Metrics *prometheus.Registry

	Users   *userstore.Store
	Stores  *storestore.Store
	Ratings *ratingstore.Store
	Stats   *metricsstore.Store

	Tokens  *auth.TokenStore
	Views   *viewstate.Registry
	Limiter *ratelimit.LoginLimiter // nil when login rate limiting is off
	Cleanup *workers.SessionCleanup
}
