package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/dalemusser/ratingboard/internal/app/system/apiclient"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

const base = "http://backend.test"

func newTestClient(t *testing.T, opts ...apiclient.Option) (*apiclient.Client, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	opts = append([]apiclient.Option{apiclient.WithTransport(mock)}, opts...)
	c, err := apiclient.New(base+"/", zap.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, mock
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://x", "localhost:8080", "http://"} {
		if _, err := apiclient.New(raw, zap.NewNop()); err == nil {
			t.Errorf("New(%q): expected error", raw)
		}
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, _ := newTestClient(t)
	if c.BaseURL() != base {
		t.Errorf("BaseURL: got %q, want %q", c.BaseURL(), base)
	}
}

func TestGet_SendsBearerTokenAndDecodes(t *testing.T) {
	c, mock := newTestClient(t)

	var gotAuth, gotReqID string
	mock.RegisterResponder(http.MethodGet, base+"/api/admin/stats",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			gotReqID = req.Header.Get("X-Request-ID")
			return httpmock.NewJsonResponse(http.StatusOK, map[string]int{
				"totalUsers": 3, "totalStores": 2, "totalRatings": 9,
			})
		})

	var out struct {
		TotalUsers int `json:"totalUsers"`
	}
	err := c.Get(context.Background(), apiclient.StaticSession("tok-1"), "stats.get", "/api/admin/stats", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization: got %q, want %q", gotAuth, "Bearer tok-1")
	}
	if gotReqID == "" {
		t.Error("expected X-Request-ID header")
	}
	if out.TotalUsers != 3 {
		t.Errorf("TotalUsers: got %d, want 3", out.TotalUsers)
	}
}

func TestGet_ReadsTokenOnEveryRequest(t *testing.T) {
	c, mock := newTestClient(t)

	var seen []string
	mock.RegisterResponder(http.MethodGet, base+"/api/user/profile",
		func(req *http.Request) (*http.Response, error) {
			seen = append(seen, req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})

	tok := "first"
	sess := apiclient.SessionFunc(func() (string, error) { return tok, nil })

	ctx := context.Background()
	if err := c.Get(ctx, sess, "profile", "/api/user/profile", &struct{}{}); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	tok = "second"
	if err := c.Get(ctx, sess, "profile", "/api/user/profile", &struct{}{}); err != nil {
		t.Fatalf("second Get: %v", err)
	}

	if len(seen) != 2 || seen[0] != "Bearer first" || seen[1] != "Bearer second" {
		t.Errorf("tokens seen: %v", seen)
	}
}

func TestGet_NoTokenIsAuthFailure(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, base+"/api/user/profile", httpmock.NewStringResponder(http.StatusOK, `{}`))

	err := c.Get(context.Background(), apiclient.StaticSession(""), "profile", "/api/user/profile", &struct{}{})
	if !apiclient.IsAuth(err) {
		t.Fatalf("expected auth failure, got %v", err)
	}
	if !errors.Is(err, apiclient.ErrNoToken) {
		t.Errorf("expected ErrNoToken in chain, got %v", err)
	}
	if n := mock.GetTotalCallCount(); n != 0 {
		t.Errorf("expected no request without token, got %d", n)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusUnauthorized, apiclient.ErrAuth},
		{http.StatusForbidden, apiclient.ErrAuth},
		{http.StatusBadRequest, apiclient.ErrValidation},
		{http.StatusConflict, apiclient.ErrValidation},
		{http.StatusUnprocessableEntity, apiclient.ErrValidation},
		{http.StatusNotFound, apiclient.ErrNetwork},
		{http.StatusInternalServerError, apiclient.ErrNetwork},
	}
	for _, tt := range tests {
		c, mock := newTestClient(t)
		mock.RegisterResponder(http.MethodPost, base+"/api/admin/users",
			httpmock.NewStringResponder(tt.status, `{"message":"nope"}`))

		err := c.Post(context.Background(), apiclient.StaticSession("t"), "users.create", "/api/admin/users", map[string]string{}, nil)
		if !errors.Is(err, tt.kind) {
			t.Errorf("status %d: got %v, want kind %v", tt.status, err, tt.kind)
		}
		var apiErr *apiclient.Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: expected *apiclient.Error", tt.status)
		}
		if apiErr.Status != tt.status || apiErr.Message != "nope" {
			t.Errorf("status %d: got Status=%d Message=%q", tt.status, apiErr.Status, apiErr.Message)
		}
	}
}

func TestTransportErrorIsNetworkFailure(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, base+"/api/admin/users", httpmock.NewErrorResponder(errors.New("connection refused")))

	err := c.Get(context.Background(), apiclient.StaticSession("t"), "users.list", "/api/admin/users", &[]any{})
	if !errors.Is(err, apiclient.ErrNetwork) {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestPut_SendsJSONBody(t *testing.T) {
	c, mock := newTestClient(t)

	var body map[string]string
	mock.RegisterResponder(http.MethodPut, base+"/api/user/change-password",
		func(req *http.Request) (*http.Response, error) {
			if ct := req.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q", ct)
			}
			raw, _ := io.ReadAll(req.Body)
			_ = json.Unmarshal(raw, &body)
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})

	in := map[string]string{"currentPassword": "a", "newPassword": "b"}
	if err := c.Put(context.Background(), apiclient.StaticSession("t"), "password.change", "/api/user/change-password", in, &struct{}{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if body["currentPassword"] != "a" || body["newPassword"] != "b" {
		t.Errorf("body: got %v", body)
	}
}

func TestMalformedResponseIsNetworkFailure(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, base+"/api/admin/users", httpmock.NewStringResponder(http.StatusOK, `{not json`))

	err := c.Get(context.Background(), apiclient.StaticSession("t"), "users.list", "/api/admin/users", &[]any{})
	if !errors.Is(err, apiclient.ErrNetwork) {
		t.Fatalf("expected network failure, got %v", err)
	}
}

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := apiclient.NewMetrics(reg)
	c, mock := newTestClient(t, apiclient.WithMetrics(m))
	mock.RegisterResponder(http.MethodDelete, base+"/api/admin/stores/7", httpmock.NewStringResponder(http.StatusNoContent, ""))
	mock.RegisterResponder(http.MethodDelete, base+"/api/admin/stores/8", httpmock.NewStringResponder(http.StatusUnauthorized, ""))

	ctx := context.Background()
	_ = c.Delete(ctx, apiclient.StaticSession("t"), "stores.delete", "/api/admin/stores/7")
	_ = c.Delete(ctx, apiclient.StaticSession("t"), "stores.delete", "/api/admin/stores/8")

	n, err := testutil.GatherAndCount(reg, "ratingboard_api_requests_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 label sets (ok, auth), got %d", n)
	}
}

func TestMessage(t *testing.T) {
	if got := apiclient.Message(nil); got != "" {
		t.Errorf("Message(nil) = %q", got)
	}
	err := &apiclient.Error{Op: "x", Kind: apiclient.ErrValidation, Message: "email already used"}
	if got := apiclient.Message(err); got != "email already used" {
		t.Errorf("Message = %q", got)
	}
	err = &apiclient.Error{Op: "x", Kind: apiclient.ErrAuth}
	if got := apiclient.Message(err); got == "" {
		t.Error("expected a generic auth message")
	}
}

func TestPing(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, base+"/", httpmock.NewStringResponder(http.StatusNotFound, ""))
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping should treat any response as reachable, got %v", err)
	}
}
