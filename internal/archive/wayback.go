// Package archive submits resolved URLs to a public web archive.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://web.archive.org/save/"
	defaultTimeout  = 10 * time.Second
)

// Config controls the archive client.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	UserAgent string
}

// Client performs best-effort save-page-now submissions. Archival is a
// quality enhancement: every failure path yields an empty string, never an
// error the caller has to handle.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Snapshot submits target for archiving and returns the archived copy's
// address, or "" when the submission did not succeed.
func (c *Client) Snapshot(ctx context.Context, target string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+target, nil)
	if err != nil {
		c.logger.Debug("archive request build failed", zap.String("url", target), zap.Error(err))
		return ""
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("archive submission failed", zap.String("url", target), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("archive submission rejected",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
		)
		return ""
	}

	if loc := resp.Header.Get("Content-Location"); loc != "" {
		if strings.HasPrefix(loc, "/") {
			return "https://web.archive.org" + loc
		}
		return loc
	}
	return fmt.Sprintf("https://web.archive.org/web/%s", target)
}
