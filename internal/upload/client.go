package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meltforce/liftlog/internal/ingest"
)

// Client sends Alpha Progression exports to a LiftLog server over HTTP.
type Client struct {
	serverURL  string
	httpClient *http.Client
	// backoff is the delay before the second attempt; it doubles per retry.
	backoff time.Duration
}

// NewClient creates a new HTTP client for the LiftLog server.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// SendAlphaCSV POSTs a CSV export to the server's import endpoint.
// Retries up to 3 times with exponential backoff on network errors and 5xx
// responses. A 4xx response is returned immediately.
func (c *Client) SendAlphaCSV(ctx context.Context, data []byte, dryRun bool) (*ingest.Result, error) {
	u := c.serverURL + "/api/v1/import/alpha"
	if dryRun {
		u += "?" + url.Values{"dry_run": {"true"}}.Encode()
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var result ingest.Result
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("decoding import result: %w", err)
			}
			return &result, nil
		case resp.StatusCode < http.StatusInternalServerError:
			return nil, fmt.Errorf("import rejected (status %d): %s", resp.StatusCode, body)
		}
		lastErr = fmt.Errorf("import failed (status %d): %s", resp.StatusCode, body)
	}

	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}
