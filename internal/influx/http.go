package influx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ── HTTP Executor ──────────────────────────────────────────
// Talks to the InfluxDB 1.x /query endpoint directly instead of
// spawning the CLI. Responses use the same JSON shape as `influx -format json`.

// HTTPExecutor runs queries against the InfluxDB HTTP API.
type HTTPExecutor struct {
	endpoint *url.URL
	database string
	username string
	password string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTPExecutor creates an HTTPExecutor for opts.URL (default http://localhost:8086).
func NewHTTPExecutor(opts Options) (*HTTPExecutor, error) {
	raw := opts.URL
	if raw == "" {
		raw = "http://localhost:8086"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/query"

	return &HTTPExecutor{
		endpoint: u,
		database: opts.Database,
		username: opts.Username,
		password: opts.Password,
		timeout:  opts.Timeout,
		client:   &http.Client{},
	}, nil
}

// WithClient replaces the HTTP client, e.g. one with custom TLS settings.
func (h *HTTPExecutor) WithClient(c *http.Client) *HTTPExecutor {
	h.client = c
	return h
}

func (h *HTTPExecutor) Execute(ctx context.Context, query string) ([]byte, error) {
	return h.do(ctx, query)
}

func (h *HTTPExecutor) ListMeasurements(ctx context.Context) ([]byte, error) {
	return h.do(ctx, ShowMeasurements)
}

func (h *HTTPExecutor) do(ctx context.Context, query string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, h.timeout)
	defer cancel()

	u := *h.endpoint
	params := url.Values{}
	params.Set("db", h.database)
	params.Set("q", query)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ExecError{Query: query, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if h.username != "" {
		req.SetBasicAuth(h.username, h.password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &ExecError{Query: query, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ExecError{Query: query, Output: string(body), Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExecError{Query: query, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}
