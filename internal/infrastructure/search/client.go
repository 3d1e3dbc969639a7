// Package search contains the web-search backends. Each one merges option
// layers, translates them into its own request dialect and returns the
// backend's JSON document untouched.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/domain/search"
)

// Config holds the connection settings shared by both backends.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Defaults overlays the built-in options before user options are applied.
	Defaults search.Config
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// resolve layers built-in defaults, configured defaults and user options.
func resolve(b search.Backend, defaults search.Config, user *search.Config) search.Config {
	merged := search.Merge(search.Defaults(b), defaults)
	if user != nil {
		merged = search.Merge(merged, *user)
	}
	return merged
}

// do sends req and decodes a JSON object body. Non-2xx replies and bodies
// carrying an "error" field are errors.
func do(ctx context.Context, client *http.Client, req *http.Request, logger *logrus.Logger) (search.Results, error) {
	started := time.Now()
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{"host": req.URL.Host, "status": resp.StatusCode, "duration": time.Since(started).String()}).Debug("search request finished")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var out search.Results
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if msg, ok := out["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("search backend error: %s", msg)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
