// internal/app/system/timeouts/timeouts.go

// Package timeouts holds the deadline budget for every backend round trip
// the dashboards make. Each budget covers one kind of call:
//
//   - Ping: the startup reachability check and /health/ready
//   - Short: the login exchange
//   - Medium: one dashboard load (its parallel slice fetches), and how
//     long a ?wait=true request may block on it
//   - Long: one backend write from a dashboard (create user or store,
//     delete, change password)
//
// The refresh that follows a successful write is a dashboard load and runs
// under its own Medium budget, not under the write's Long one.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults, in effect until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

// Config is a full budget. Zero fields leave the current value in place.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

func defaults() Config {
	return Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Long: DefaultLong}
}

var (
	mu     sync.RWMutex
	budget = defaults()
)

// Ping bounds a reachability check against the backend.
func Ping() time.Duration { return Current().Ping }

// Short bounds the login call.
func Short() time.Duration { return Current().Short }

// Medium bounds one dashboard load.
func Medium() time.Duration { return Current().Medium }

// Long bounds a single dashboard write.
func Long() time.Duration { return Current().Long }

// Configure applies the non-zero fields of cfg. Startup calls it once from
// the loaded app config before routes are built.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		budget.Ping = cfg.Ping
	}
	if cfg.Short > 0 {
		budget.Short = cfg.Short
	}
	if cfg.Medium > 0 {
		budget.Medium = cfg.Medium
	}
	if cfg.Long > 0 {
		budget.Long = cfg.Long
	}
}

// Reset restores the defaults. Tests that call Configure defer it.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	budget = defaults()
}

// Current returns the budget in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return budget
}

// WithTimeout derives a context bounded by d. Its cancel func logs the
// operation name at Warn when the deadline, rather than the caller, ended
// the context, so a slow backend shows up in the logs by operation.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), d.log, "change password")
//	defer cancel()
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("backend call timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", d),
			)
		}
		cancel()
	}
}
