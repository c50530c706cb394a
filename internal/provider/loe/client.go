// Package loe fetches the Lviv oblenergo outage schedule.
//
// The upstream exposes a hydra JSON collection of menu items whose rawHtml
// holds one text block per group ("Група 1.1. ... з 03:00 до 06:30 ...").
// Requests are throttled with a token bucket limiter.
package loe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/time/rate"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// DefaultURL is the upstream menus endpoint carrying the outage schedule.
const DefaultURL = "https://api.loe.lviv.ua/api/menus?page=1&type=photo-grafic"

const maxBodyBytes = 8 << 20

// Client fetches and parses the upstream schedule document.
type Client struct {
	httpClient *http.Client
	url        string
	dumpPath   string
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a rate-limited upstream client. When dumpPath is set the
// last raw payload is written there atomically for debugging.
func NewClient(url string, timeout time.Duration, requestsPerMinute int, dumpPath string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		url = DefaultURL
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		dumpPath:   dumpPath,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
		now:        time.Now,
	}
}

// Fetch retrieves the current document and returns the raw per-group data.
func (c *Client) Fetch(ctx context.Context) (*schedule.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "svitlo-bot/1.0")

	fetchedAt := c.now().UTC()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	c.dump(body)

	snap, warnings, err := parseMenus(body)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		c.logger.Warn("Upstream document oddity", "detail", w)
	}
	snap.Metadata["fetched_at"] = fetchedAt.Format(time.RFC3339)

	c.logger.Info("Fetched upstream schedule", "groups", len(snap.Groups), "bytes", len(body))
	return snap, nil
}

// dump writes the payload with fsync + rename. Failures are logged only.
func (c *Client) dump(body []byte) {
	if c.dumpPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.dumpPath), 0o755); err != nil {
		c.logger.Warn("Failed to create dump directory", "path", c.dumpPath, "error", err)
		return
	}
	if err := renameio.WriteFile(c.dumpPath, body, 0o644); err != nil {
		c.logger.Warn("Failed to dump upstream payload", "path", c.dumpPath, "error", err)
	}
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
