package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(auth.SessionConfig{
		Key:    "test-session-key-must-be-32-chars-long",
		Name:   "test-session",
		MaxAge: 24 * time.Hour,
	}, auth.NewTokenStore(time.Hour), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func TestNewSessionManager_RequiresKey(t *testing.T) {
	_, err := auth.NewSessionManager(auth.SessionConfig{}, auth.NewTokenStore(time.Hour), zap.NewNop())
	if err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestGenerateSessionKey(t *testing.T) {
	a, b := auth.GenerateSessionKey(), auth.GenerateSessionKey()
	if len(a) != 64 || a == b {
		t.Errorf("unexpected keys %q %q", a, b)
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"login":"/login"`) {
		t.Errorf("expected login hint in body, got %q", rec.Body.String())
	}
}

func TestRequireRole_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/dashboard/admin", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireRole("admin", "store_owner")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		role     string
		expected int
	}{
		{"admin", http.StatusOK},
		{"store_owner", http.StatusOK},
		{"ADMIN", http.StatusOK},
		{"user", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.role, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/reports", nil)
			req = withTestUser(req, tc.role)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expected {
				t.Errorf("role %q: expected status %d, got %d", tc.role, tc.expected, rec.Code)
			}
		})
	}
}

func TestSignInLoadSignOut(t *testing.T) {
	sm := newTestSessionManager(t)

	// Sign in and capture the cookie.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	u, err := sm.SignIn(rec, req, auth.SessionUser{ID: "7", Name: "Ann", Email: "ann@x.io", Role: "admin"}, "tok-ann")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.SessionID == "" {
		t.Fatal("expected a session ID")
	}
	if tok, ok := sm.Tokens().Get(u.SessionID); !ok || tok != "tok-ann" {
		t.Fatalf("token not stored: %q %v", tok, ok)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	// A later request with the cookie sees the user.
	var seen *auth.SessionUser
	inspect := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CurrentUser(r)
	}))
	req = httptest.NewRequest("GET", "/dashboard", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	inspect.ServeHTTP(httptest.NewRecorder(), req)
	if seen == nil || seen.ID != "7" || seen.Role != "admin" || seen.SessionID != u.SessionID {
		t.Fatalf("LoadSessionUser: got %+v", seen)
	}

	// Sign out clears the token, after which the cookie no longer authenticates.
	sid, err := sm.SignOut(httptest.NewRecorder(), req)
	if err != nil || sid != u.SessionID {
		t.Fatalf("SignOut: sid=%q err=%v", sid, err)
	}
	if _, ok := sm.Tokens().Get(u.SessionID); ok {
		t.Error("token should be cleared after SignOut")
	}
	seen = nil
	inspect.ServeHTTP(httptest.NewRecorder(), req)
	if seen != nil {
		t.Error("user should not load once the token is gone")
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	user, ok := auth.CurrentUser(req)
	if ok || user != nil {
		t.Error("expected no user in context")
	}
}

func TestTokenSessionReadsStoreAtCallTime(t *testing.T) {
	ts := auth.NewTokenStore(time.Hour)
	sess := ts.Session("s1")

	if tok, _ := sess.Token(); tok != "" {
		t.Errorf("expected empty token before Set, got %q", tok)
	}
	ts.Set("s1", "a")
	if tok, _ := sess.Token(); tok != "a" {
		t.Errorf("got %q, want a", tok)
	}
	ts.Set("s1", "b")
	if tok, _ := sess.Token(); tok != "b" {
		t.Errorf("got %q, want b", tok)
	}
	ts.Clear("s1")
	if tok, _ := sess.Token(); tok != "" {
		t.Errorf("expected empty token after Clear, got %q", tok)
	}
}

// withTestUser injects a SessionUser into the request context for testing.
func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		SessionID: "test-session",
		ID:        "42",
		Name:      "Test User",
		Email:     "test@example.com",
		Role:      role,
	})
}

