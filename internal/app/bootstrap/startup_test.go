package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/ratingboard/internal/app/system/timeouts"
	"github.com/dalemusser/ratingboard/internal/domain/models"
	"github.com/dalemusser/ratingboard/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testAppConfig(apiURL string) AppConfig {
	return AppConfig{
		APIBaseURL:      apiURL,
		APITimeout:      5 * time.Second,
		SessionKey:      "0123456789abcdef0123456789abcdef",
		SessionName:     "test-session",
		SessionMaxAge:   time.Hour,
		TokenSessionKey: "sid",
		TokenDefaultTTL: time.Hour,
		ViewIdleTTL:     time.Hour,
		CleanupInterval: time.Hour,
		LoginIPLimit:    100,
		LoginEmailLimit: 100,
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	tests := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"valid", dev, func(*AppConfig) {}, false},
		{"https ok", prod, func(c *AppConfig) { c.APIBaseURL = "https://api.example.com" }, false},
		{"empty url", dev, func(c *AppConfig) { c.APIBaseURL = "" }, true},
		{"relative url", dev, func(c *AppConfig) { c.APIBaseURL = "/api" }, true},
		{"wrong scheme", dev, func(c *AppConfig) { c.APIBaseURL = "ftp://api.example.com" }, true},
		{"no host", dev, func(c *AppConfig) { c.APIBaseURL = "http://" }, true},
		{"missing key", dev, func(c *AppConfig) { c.SessionKey = "" }, true},
		{"short key in prod", prod, func(c *AppConfig) { c.SessionKey = "short" }, true},
		{"short key in dev", dev, func(c *AppConfig) { c.SessionKey = "short" }, false},
		{"zero cleanup", dev, func(c *AppConfig) { c.CleanupInterval = 0 }, true},
		{"zero idle ttl", dev, func(c *AppConfig) { c.ViewIdleTTL = 0 }, true},
		{"empty id key", dev, func(c *AppConfig) { c.TokenSessionKey = "" }, true},
		{"negative login limit", dev, func(c *AppConfig) { c.LoginIPLimit = -1 }, true},
		{"login limits off", dev, func(c *AppConfig) { c.LoginIPLimit, c.LoginEmailLimit = 0, 0 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testAppConfig("http://localhost:5000")
			tc.mutate(&cfg)
			err := ValidateConfig(tc.core, cfg, testLogger())
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateConfig err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConnectDB_UnreachableBackendStillStarts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	deps, err := ConnectDB(context.Background(), &config.CoreConfig{Env: "dev"}, testAppConfig(url), testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if deps.API == nil || deps.Tokens == nil || deps.Views == nil || deps.Cleanup == nil {
		t.Errorf("deps not fully built: %+v", deps)
	}
}

func TestLifecycle_EndToEnd(t *testing.T) {
	defer timeouts.Reset()

	fb := testutil.NewFakeBackend(t)
	fb.AddUser("Ann", "ann@example.com", "pw", models.RoleAdmin, "")

	core := &config.CoreConfig{Env: "dev"}
	appCfg := testAppConfig(fb.URL())
	ctx := context.Background()

	deps, err := ConnectDB(ctx, core, appCfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	if err := Startup(ctx, core, appCfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	defer func() {
		if err := Shutdown(ctx, core, appCfg, deps, testLogger()); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}()

	h, err := BuildHandler(core, appCfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	// Health reports the backend as reachable.
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health: %d", resp.StatusCode)
	}

	// Dashboards require a session.
	resp, err = http.Get(srv.URL + "/dashboard/admin")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("/dashboard/admin without session: %d", resp.StatusCode)
	}

	// Log in, then load the admin dashboard with the session cookie.
	resp, err = http.Post(srv.URL+"/login", "application/json",
		strings.NewReader(`{"email":"ann@example.com","password":"pw"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/login: %d", resp.StatusCode)
	}
	cookies := resp.Cookies()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/dashboard/admin?wait=true", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var snap struct {
		Users []struct {
			Name string `json:"name"`
		} `json:"users"`
		Stats struct {
			TotalUsers string `json:"totalUsers"`
		} `json:"stats"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(snap.Users) != 1 || snap.Stats.TotalUsers != "1" {
		t.Errorf("admin dashboard: status=%d snap=%+v", resp.StatusCode, snap)
	}
	if auth := fb.LastAuthorization(http.MethodGet, "/api/admin/users"); !strings.HasPrefix(auth, "Bearer tok-") {
		t.Errorf("backend saw Authorization %q", auth)
	}

	// Metrics expose the backend calls.
	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "ratingboard_api_requests_total") {
		t.Error("/metrics missing backend request counter")
	}

	// Unknown routes answer JSON 404.
	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/nope: %d", resp.StatusCode)
	}
	if deps.Views.Len() != 1 {
		t.Errorf("expected one live view, got %d", deps.Views.Len())
	}
}
