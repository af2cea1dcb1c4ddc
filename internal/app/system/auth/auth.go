// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	userIDKey = "user_id"
	userName  = "user_name"
	userEmail = "user_email"
	userRole  = "user_role"
)

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	SessionID string
	ID        string
	Name      string
	Email     string
	Role      string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// SessionConfig configures a SessionManager.
type SessionConfig struct {
	Key    string        // cookie signing key, 32+ chars recommended
	Name   string        // cookie name
	Domain string        // cookie domain, empty for host-only
	MaxAge time.Duration // cookie lifetime
	Secure bool          // Secure + SameSite=None when true, Lax otherwise
	IDKey  string        // session value holding the session ID
}

// SessionManager owns the cookie store and the bearer tokens behind it.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	idKey  string
	tokens *TokenStore
	log    *zap.Logger
}

// NewSessionManager creates a cookie-backed session manager.
func NewSessionManager(cfg SessionConfig, tokens *TokenStore, logger *zap.Logger) (*SessionManager, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	if len(cfg.Key) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(cfg.Key)))
	}
	if cfg.Name == "" {
		cfg.Name = "ratingboard-session"
	}
	if cfg.IDKey == "" {
		cfg.IDKey = "sid"
	}

	store := sessions.NewCookieStore([]byte(cfg.Key))
	opts := &sessions.Options{
		Domain:   cfg.Domain,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
	}
	if cfg.Secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", cfg.Secure),
		zap.String("domain", cfg.Domain),
		zap.String("name", cfg.Name))

	return &SessionManager{
		store:  store,
		name:   cfg.Name,
		idKey:  cfg.IDKey,
		tokens: tokens,
		log:    logger,
	}, nil
}

// GenerateSessionKey returns a random hex key for development setups that
// did not configure one. Sessions do not survive a restart with it.
func GenerateSessionKey() string {
	return hex.EncodeToString(securecookie.GenerateRandomKey(32))
}

// Tokens returns the token store behind the manager.
func (sm *SessionManager) Tokens() *TokenStore { return sm.tokens }

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// LoadSessionUser injects the user into context if they are signed in and
// their bearer token is still held. A session whose token expired is
// treated as signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.log.Debug("ignoring unreadable session cookie", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		sid := getString(sess, sm.idKey)
		if sid == "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := sm.tokens.Get(sid); !ok {
			next.ServeHTTP(w, r)
			return
		}
		u := &SessionUser{
			SessionID: sid,
			ID:        getString(sess, userIDKey),
			Name:      getString(sess, userName),
			Email:     getString(sess, userEmail),
			Role:      getString(sess, userRole),
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// SignIn starts a new session for u holding token. The session ID is
// generated here; any ID already on u is replaced.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser, token string) (*SessionUser, error) {
	sess, _ := sm.store.Get(r, sm.name)
	if old := getString(sess, sm.idKey); old != "" {
		sm.tokens.Clear(old)
	}

	u.SessionID = uuid.NewString()
	exp := sm.tokens.Set(u.SessionID, token)

	sess.Values[sm.idKey] = u.SessionID
	sess.Values[userIDKey] = u.ID
	sess.Values[userName] = u.Name
	sess.Values[userEmail] = u.Email
	sess.Values[userRole] = u.Role
	if err := sess.Save(r, w); err != nil {
		sm.tokens.Clear(u.SessionID)
		return nil, fmt.Errorf("save session: %w", err)
	}

	sm.log.Info("user signed in",
		zap.String("user_id", u.ID),
		zap.String("role", u.Role),
		zap.Time("token_expires", exp))
	return &u, nil
}

// SignOut clears the bearer token and expires the cookie. It returns the
// session ID that was ended, or "" if there was none.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, _ := sm.store.Get(r, sm.name)
	sid := getString(sess, sm.idKey)
	if sid != "" {
		sm.tokens.Clear(sid)
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return sid, fmt.Errorf("expire session: %w", err)
	}
	return sid, nil
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// Callers without one get a JSON 401 pointing at the login endpoint.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		writeDenied(w, http.StatusUnauthorized, "unauthorized")
	})
}

// RequireRole ensures the user in context has one of the allowed roles.
// Not signed in yields 401, wrong role yields 403.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				writeDenied(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				sm.log.Debug("role denied",
					zap.String("user_id", u.ID),
					zap.String("role", u.Role),
					zap.String("path", r.URL.Path))
				writeDenied(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithTestUser injects u into the request context, bypassing the cookie.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// helpers

type deniedBody struct {
	Error string `json:"error"`
	Login string `json:"login,omitempty"`
}

func writeDenied(w http.ResponseWriter, status int, msg string) {
	body := deniedBody{Error: msg}
	if status == http.StatusUnauthorized {
		body.Login = "/login"
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
