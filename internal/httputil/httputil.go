// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/archive-fetch/pkg/types"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// NewClient returns an HTTP client for cfg. A zero Timeout leaves the
// client without a timeout, so a stalled transfer blocks until the
// context is cancelled.
func NewClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// Get issues a GET request for url with the User-Agent and, when both keys
// are configured, the archive.org LOW authorization header.
//
// Any status outside 2xx is reported as a *StatusError; the response body
// is drained and closed in that case. On success the caller owns the body.
func Get(ctx context.Context, client *http.Client, url string, cfg types.HTTPConfig) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		req.Header.Set("Authorization", "LOW "+cfg.AccessKey+":"+cfg.SecretKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp, nil
}
