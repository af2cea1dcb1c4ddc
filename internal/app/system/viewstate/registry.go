// internal/app/system/viewstate/registry.go
package viewstate

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// View is a live view-model that can be shut down.
type View interface {
	Deactivate()
}

type key struct {
	session string
	kind    string
}

type entry struct {
	view     View
	lastUsed time.Time
}

// Registry holds the live views of every browser session, keyed by session
// ID and view kind. Views that have not been touched for the idle TTL are
// deactivated by Sweep.
type Registry struct {
	mu      sync.Mutex
	entries map[key]*entry
	idleTTL time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(idleTTL time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[key]*entry),
		idleTTL: idleTTL,
		now:     time.Now,
		log:     logger,
	}
}

// Get returns the view of the given kind for sessionID, creating it with
// create when none exists yet. Every call counts as a use for idle eviction.
func Get[T View](r *Registry, sessionID, kind string, create func() T) T {
	k := key{session: sessionID, kind: kind}

	r.mu.Lock()
	if e, ok := r.entries[k]; ok {
		if v, ok := e.view.(T); ok {
			e.lastUsed = r.now()
			r.mu.Unlock()
			return v
		}
	}
	v := create()
	old := r.entries[k]
	r.entries[k] = &entry{view: v, lastUsed: r.now()}
	r.mu.Unlock()

	if old != nil {
		old.view.Deactivate()
	}
	return v
}

// Lookup returns an existing view without creating one.
func Lookup[T View](r *Registry, sessionID, kind string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	e, ok := r.entries[key{session: sessionID, kind: kind}]
	if !ok {
		return zero, false
	}
	v, ok := e.view.(T)
	if !ok {
		return zero, false
	}
	e.lastUsed = r.now()
	return v, true
}

// DropSession deactivates and forgets every view of sessionID.
func (r *Registry) DropSession(sessionID string) int {
	r.mu.Lock()
	var dropped []View
	for k, e := range r.entries {
		if k.session == sessionID {
			dropped = append(dropped, e.view)
			delete(r.entries, k)
		}
	}
	r.mu.Unlock()

	for _, v := range dropped {
		v.Deactivate()
	}
	return len(dropped)
}

// Sweep deactivates views idle for longer than the TTL and returns how
// many were evicted.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var dropped []View
	for k, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			dropped = append(dropped, e.view)
			delete(r.entries, k)
		}
	}
	r.mu.Unlock()

	for _, v := range dropped {
		v.Deactivate()
	}
	if len(dropped) > 0 {
		r.log.Debug("evicted idle views", zap.Int("count", len(dropped)))
	}
	return len(dropped)
}

// CloseAll deactivates every view. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]View, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e.view)
	}
	r.entries = make(map[key]*entry)
	r.mu.Unlock()

	for _, v := range all {
		v.Deactivate()
	}
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
