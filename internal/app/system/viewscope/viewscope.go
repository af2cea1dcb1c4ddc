// internal/app/system/viewscope/viewscope.go
package viewscope

import (
	"context"
	"sync"
)

// Scope tracks the active lifetime of a view. Each Begin starts a new
// generation and cancels the previous one; Close ends the current one.
// Work started under an older generation can detect that it is stale
// through its Token and drop its results.
type Scope struct {
	mu     sync.Mutex
	gen    uint64
	epoch  uint64 // bumped by Close
	cancel context.CancelFunc
	closed bool
}

// Token identifies one generation of a Scope.
type Token struct {
	s   *Scope
	gen uint64
}

// New returns a closed Scope. Call Begin to activate it.
func New() *Scope {
	return &Scope{closed: true}
}

// Begin invalidates any earlier generation and returns a token plus a
// context that is cancelled when the generation ends.
func (s *Scope) Begin(parent context.Context) (Token, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginLocked(cancel), ctx
}

// BeginWithin is Begin restricted to lt: if the scope was closed since lt
// was taken, nothing starts and ok is false. Work that outlives a request,
// such as the refresh after a mutation, uses it so that it cannot reopen a
// view that was deactivated meanwhile.
func (s *Scope) BeginWithin(lt Lifetime, parent context.Context) (tok Token, ctx context.Context, ok bool) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if lt.s != s || !lt.alive() {
		cancel()
		return Token{}, ctx, false
	}
	return s.beginLocked(cancel), ctx, true
}

func (s *Scope) beginLocked(cancel context.CancelFunc) Token {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	s.closed = false
	return Token{s: s, gen: s.gen}
}

// Close ends the current generation. Tokens issued before Close become
// invalid and their contexts are cancelled.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	if !s.closed {
		s.epoch++
	}
	s.closed = true
}

// Lifetime identifies one activation of a Scope: from the Begin that opened
// it until the next Close. Later Begins (refreshes) stay within it.
type Lifetime struct {
	s     *Scope
	epoch uint64
	live  bool
}

// Lifetime returns the current activation. It is already over when the
// scope is closed.
func (s *Scope) Lifetime() Lifetime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Lifetime{s: s, epoch: s.epoch, live: !s.closed}
}

// Alive reports whether the scope has not been closed since lt was taken.
func (lt Lifetime) Alive() bool {
	if lt.s == nil {
		return false
	}
	lt.s.mu.Lock()
	defer lt.s.mu.Unlock()
	return lt.alive()
}

func (lt Lifetime) alive() bool { return lt.live && !lt.s.closed && lt.s.epoch == lt.epoch }

// Active reports whether the scope has a live generation.
func (s *Scope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Valid reports whether t still belongs to the live generation.
func (t Token) Valid() bool {
	if t.s == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.valid()
}

func (t Token) valid() bool { return !t.s.closed && t.s.gen == t.gen }

// Apply runs fn only if t is still valid and reports whether it ran. The
// scope stays locked while fn runs, so Begin and Close cannot interleave
// with it. fn must not call back into the Scope.
func (t Token) Apply(fn func()) bool {
	if t.s == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if !t.valid() {
		return false
	}
	fn()
	return true
}
