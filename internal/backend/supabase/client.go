// Package supabase implements backend.Client against a hosted Supabase
// project: GoTrue for sessions and PostgREST for the reference table.
package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/config"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

// Client is one page view's connection to the Supabase project.
type Client struct {
	log   *slog.Logger
	http  *http.Client
	cfg   config.SupabaseConfig
	now   func() time.Time
	bc    backend.Broadcaster
	rest  string
	authz string

	mu      sync.Mutex
	session *domain.Session

	refreshMu sync.Mutex
}

var _ backend.Client = (*Client)(nil)

// New creates a signed-out client. httpClient may be nil.
func New(logger *slog.Logger, httpClient *http.Client, cfg config.SupabaseConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	base := strings.TrimRight(cfg.URL, "/")
	return &Client{
		log:   logger.With("backend", "supabase"),
		http:  httpClient,
		cfg:   cfg,
		now:   time.Now,
		rest:  base + "/rest/v1",
		authz: base + "/auth/v1",
	}
}

// NewFactory returns a backend.Factory whose clients share one http.Client.
func NewFactory(logger *slog.Logger, cfg config.SupabaseConfig) backend.Factory {
	hc := &http.Client{Timeout: cfg.Timeout}
	return func() backend.Client {
		return New(logger, hc, cfg)
	}
}

// WithClock overrides the clock used for expiry checks.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

func (c *Client) snapshot() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return backend.CloneSession(c.session)
}

func (c *Client) store(s *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = backend.CloneSession(s)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do performs one request. bearer falls back to the API key when empty.
func (c *Client) do(ctx context.Context, method, url string, body []byte, bearer string, headers map[string]string) (*response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if bearer == "" {
		bearer = c.cfg.APIKey
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.DebugContext(ctx, "supabase request",
		slog.String("method", method),
		slog.Int("status", resp.StatusCode))

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}
