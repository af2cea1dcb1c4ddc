// internal/app/system/apiclient/client.go
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxErrorBody bounds how much of a failed response is read for a message.
const maxErrorBody = 64 << 10

// Client issues JSON requests against the backend REST API.
//
// Authenticated calls take an explicit Session; the bearer token is pulled
// from it by an oauth2.Transport on every round trip and never stored on
// the Client.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
	metrics   *Metrics
	log       *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport sets the base round tripper (default http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithTimeout sets a per-request timeout applied on top of the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithMetrics records every call in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New validates baseURL and returns a Client rooted at it.
func New(baseURL string, logger *zap.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: base URL %q must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("apiclient: base URL %q has no host", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		transport: http.DefaultTransport,
		log:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Get decodes the JSON response of GET path into out.
func (c *Client) Get(ctx context.Context, sess Session, op, path string, out any) error {
	return c.do(ctx, sess, op, http.MethodGet, path, nil, out)
}

// Post sends in as JSON and decodes the response into out (if non-nil).
func (c *Client) Post(ctx context.Context, sess Session, op, path string, in, out any) error {
	return c.do(ctx, sess, op, http.MethodPost, path, in, out)
}

// Put sends in as JSON and decodes the response into out (if non-nil).
func (c *Client) Put(ctx context.Context, sess Session, op, path string, in, out any) error {
	return c.do(ctx, sess, op, http.MethodPut, path, in, out)
}

// Delete issues DELETE path and discards any response body.
func (c *Client) Delete(ctx context.Context, sess Session, op, path string) error {
	return c.do(ctx, sess, op, http.MethodDelete, path, nil, nil)
}

// PostAnonymous is Post without a bearer token, used for sign-in.
func (c *Client) PostAnonymous(ctx context.Context, op, path string, in, out any) error {
	return c.do(ctx, nil, op, http.MethodPost, path, in, out)
}

// Ping checks that the backend answers HTTP at all. Any response status
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return &Error{Op: "ping", Method: http.MethodGet, Path: "/", Kind: ErrNetwork, Err: err}
	}
	resp, err := c.httpClient(nil).Do(req)
	if err != nil {
		return &Error{Op: "ping", Method: http.MethodGet, Path: "/", Kind: ErrNetwork, Err: err}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return nil
}

func (c *Client) httpClient(sess Session) *http.Client {
	rt := c.transport
	if sess != nil {
		rt = &oauth2.Transport{Source: tokenSource{sess: sess}, Base: c.transport}
	}
	return &http.Client{Transport: rt, Timeout: c.timeout}
}

func (c *Client) do(ctx context.Context, sess Session, op, method, path string, in, out any) (err error) {
	started := time.Now()
	reqID := uuid.NewString()
	defer func() {
		c.metrics.observe(op, started, err)
		if err != nil {
			c.log.Warn("backend call failed",
				zap.String("op", op),
				zap.String("method", method),
				zap.String("path", path),
				zap.String("request_id", reqID),
				zap.Duration("elapsed", time.Since(started)),
				zap.Error(err))
			return
		}
		c.log.Debug("backend call",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Duration("elapsed", time.Since(started)))
	}()

	fail := func(kind error, status int, msg string, cause error) error {
		return &Error{Op: op, Method: method, Path: path, Status: status, Message: msg, Kind: kind, Err: cause}
	}

	var body io.Reader
	if in != nil {
		buf, mErr := json.Marshal(in)
		if mErr != nil {
			return fail(ErrValidation, 0, "", fmt.Errorf("encode request: %w", mErr))
		}
		body = bytes.NewReader(buf)
	}

	req, rErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if rErr != nil {
		return fail(ErrNetwork, 0, "", rErr)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, dErr := c.httpClient(sess).Do(req)
	if dErr != nil {
		var te *tokenError
		if errors.As(dErr, &te) {
			return fail(ErrAuth, 0, "", te.err)
		}
		return fail(ErrNetwork, 0, "", dErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(kindForStatus(resp.StatusCode), resp.StatusCode, extractMessage(raw), nil)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}
	if jErr := json.NewDecoder(resp.Body).Decode(out); jErr != nil {
		if errors.Is(jErr, io.EOF) {
			return nil
		}
		return fail(ErrNetwork, resp.StatusCode, "", fmt.Errorf("decode response: %w", jErr))
	}
	return nil
}

// extractMessage pulls a human-readable message out of an error body. The
// backend answers with {"message": "..."} or {"error": "..."}; anything
// else is used verbatim when short.
func extractMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &m) == nil {
		if m.Message != "" {
			return m.Message
		}
		if m.Error != "" {
			return m.Error
		}
		return ""
	}
	if len(raw) > 200 || raw[0] == '<' {
		return ""
	}
	return string(raw)
}
