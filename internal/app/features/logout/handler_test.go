package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/ratingboard/internal/app/features/logout"
	"github.com/dalemusser/ratingboard/internal/app/system/auth"
	"github.com/dalemusser/ratingboard/internal/app/system/viewstate"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type stubView struct{ deactivated bool }

func (v *stubView) Deactivate() { v.deactivated = true }

type env struct {
	sm     *auth.SessionManager
	views  *viewstate.Registry
	router chi.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(auth.SessionConfig{
		Key:  "test-session-key-for-testing-only",
		Name: "test-session",
	}, auth.NewTokenStore(24*time.Hour), logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	views := viewstate.NewRegistry(time.Hour, logger)

	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Mount("/logout", logout.Routes(logout.NewHandler(sm, views, logger), sm))
	return &env{sm: sm, views: views, router: r}
}

// signIn creates a session holding a token and returns its cookies.
func (e *env) signIn(t *testing.T) (*auth.SessionUser, []*http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	u, err := e.sm.SignIn(rec, httptest.NewRequest("POST", "/login", nil), auth.SessionUser{
		ID: "7", Name: "Cy", Email: "cy@example.com", Role: "user",
	}, "opaque-token")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	return u, rec.Result().Cookies()
}

func TestServeLogout_RequiresSignedIn(t *testing.T) {
	e := newEnv(t)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("POST", "/logout", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestServeLogout_ClearsTokenViewsAndCookie(t *testing.T) {
	e := newEnv(t)
	u, cookies := e.signIn(t)
	v := viewstate.Get(e.views, u.SessionID, "user", func() *stubView { return &stubView{} })

	req := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if _, ok := e.sm.Tokens().Get(u.SessionID); ok {
		t.Error("token should be cleared")
	}
	if !v.deactivated {
		t.Error("session views should be deactivated")
	}
	if e.views.Len() != 0 {
		t.Errorf("registry still holds %d views", e.views.Len())
	}

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge != -1 {
				t.Errorf("cookie MaxAge: got %d, want -1 (delete)", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}
}

func TestServeLogout_OldCookieNoLongerSignsIn(t *testing.T) {
	e := newEnv(t)
	_, cookies := e.signIn(t)

	logoutReq := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range cookies {
		logoutReq.AddCookie(c)
	}
	e.router.ServeHTTP(httptest.NewRecorder(), logoutReq)

	// Replaying the pre-logout cookie must not authenticate again.
	again := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range cookies {
		again.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, again)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("replayed cookie: status = %d, want 401", rec.Code)
	}
}
