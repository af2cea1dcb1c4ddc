// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the cleanup worker and deactivates every live view so no
// background load outlives the process.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Cleanup != nil {
		deps.Cleanup.Stop()
	}
	if deps.Views != nil {
		n := deps.Views.Len()
		deps.Views.CloseAll()
		logger.Info("deactivated dashboard views", zap.Int("count", n))
	}
	return nil
}
