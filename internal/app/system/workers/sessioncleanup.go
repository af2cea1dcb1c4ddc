// internal/app/system/workers/sessioncleanup.go
package workers

import (
	"sync"
	"time"

	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/app/system/viewstate"
	"go.uber.org/zap"
)

// Sweeper is anything else holding per-client state that goes stale,
// such as the login rate limiter.
type Sweeper interface {
	Sweep() int
}

// SessionCleanup is a background worker that forgets expired bearer tokens
// and deactivates dashboard views nobody has touched recently.
type SessionCleanup struct {
	tokens   *auth.TokenStore
	views    *viewstate.Registry
	extra    []Sweeper
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSessionCleanup creates a new session cleanup worker.
//
// Parameters:
//   - tokens: the bearer token store
//   - views: the live view registry
//   - logger: zap logger for logging
//   - interval: how often to run cleanup (e.g., 1 minute)
//   - extra: other state swept on the same schedule
func NewSessionCleanup(tokens *auth.TokenStore, views *viewstate.Registry, logger *zap.Logger, interval time.Duration, extra ...Sweeper) *SessionCleanup {
	return &SessionCleanup{
		tokens:   tokens,
		views:    views,
		extra:    extra,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *SessionCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe
// to call more than once.
func (w *SessionCleanup) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("session cleanup worker stopped")
}

func (w *SessionCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

// cleanup runs one pass. Views of sessions whose token expired are dropped
// even if they were used recently, since every fetch they make would fail.
func (w *SessionCleanup) cleanup() (expired, idle int) {
	for _, sid := range w.tokens.Sweep() {
		expired++
		w.views.DropSession(sid)
	}
	idle = w.views.Sweep()

	stale := 0
	for _, s := range w.extra {
		stale += s.Sweep()
	}

	if expired > 0 || idle > 0 || stale > 0 {
		w.log.Info("session cleanup",
			zap.Int("expired_tokens", expired),
			zap.Int("idle_views", idle),
			zap.Int("stale_entries", stale))
	}
	return expired, idle
}
