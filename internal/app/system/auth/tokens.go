// internal/app/system/auth/tokens.go
package auth

import (
	"sync"
	"time"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/golang-jwt/jwt/v5"
)

type tokenEntry struct {
	token   string
	expires time.Time
}

// TokenStore holds backend bearer tokens for signed-in browser sessions,
// keyed by session ID. It is process-wide; view-models never keep a copy
// and read the current token through Session on every request.
type TokenStore struct {
	mu         sync.RWMutex
	tokens     map[string]tokenEntry
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenStore returns an empty store. defaultTTL applies to tokens that
// carry no readable exp claim.
func NewTokenStore(defaultTTL time.Duration) *TokenStore {
	return &TokenStore{
		tokens:     make(map[string]tokenEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Set stores token for sessionID and returns when it will expire.
func (s *TokenStore) Set(sessionID, token string) time.Time {
	exp := s.expiry(token)
	s.mu.Lock()
	s.tokens[sessionID] = tokenEntry{token: token, expires: exp}
	s.mu.Unlock()
	return exp
}

// Get returns the token for sessionID if present and not expired.
func (s *TokenStore) Get(sessionID string) (string, bool) {
	s.mu.RLock()
	e, ok := s.tokens[sessionID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		return "", false
	}
	return e.token, true
}

// Clear forgets the token for sessionID.
func (s *TokenStore) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.tokens, sessionID)
	s.mu.Unlock()
}

// Sweep removes expired tokens and returns their session IDs.
func (s *TokenStore) Sweep() []string {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []string
	for sid, e := range s.tokens {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			expired = append(expired, sid)
			delete(s.tokens, sid)
		}
	}
	return expired
}

// Session returns an apiclient.Session bound to sessionID. The token is
// looked up each time a request is sent; a missing or expired token
// yields an empty string, which the client reports as an auth failure.
func (s *TokenStore) Session(sessionID string) apiclient.Session {
	return apiclient.SessionFunc(func() (string, error) {
		tok, _ := s.Get(sessionID)
		return tok, nil
	})
}

// expiry reads the exp claim without verifying the signature. The backend
// verifies tokens; the BFF only needs to know when to stop sending one.
func (s *TokenStore) expiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if s.defaultTTL <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.defaultTTL)
}
