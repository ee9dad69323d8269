package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/progress"
)

// HTTPClient implements DataSource by calling the LiftLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the log lives on another machine (reached over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Exercises(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.get(ctx, "/api/v1/exercises", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *HTTPClient) Progress(ctx context.Context, exercise string) (progress.Progress, error) {
	var p progress.Progress
	params := url.Values{}
	params.Set("exercise", exercise)
	if err := c.get(ctx, "/api/v1/progress", params, &p); err != nil {
		return progress.Progress{}, err
	}
	return p, nil
}

func (c *HTTPClient) Summary(ctx context.Context) (progress.Summary, error) {
	var sum progress.Summary
	if err := c.get(ctx, "/api/v1/summary", nil, &sum); err != nil {
		return progress.Summary{}, err
	}
	return sum, nil
}

func (c *HTTPClient) RecentSessions(ctx context.Context, limit int) ([]models.Session, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	var sessions []models.Session
	if err := c.get(ctx, "/api/v1/sessions", params, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
