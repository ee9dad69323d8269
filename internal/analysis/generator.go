package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Defaults for HTTPConfig.
const (
	DefaultURL     = "https://api.openai.com/v1/responses"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// HTTPConfig configures an OpenAI-compatible responses endpoint.
type HTTPConfig struct {
	URL        string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// HTTPGenerator implements Generator over HTTP. It makes a single attempt
// per call; there is no retry.
type HTTPGenerator struct {
	cfg HTTPConfig
}

// NewHTTPGenerator fills in defaults for empty fields.
func NewHTTPGenerator(cfg HTTPConfig) *HTTPGenerator {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPGenerator{cfg: cfg}
}

// Generate posts prompt and returns the model's text. An empty reply is
// returned as "" with no error.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	apiKey := strings.TrimSpace(g.cfg.APIKey)
	if apiKey == "" {
		return "", ErrNoCredentials
	}

	body, err := json.Marshal(map[string]any{
		"model": g.cfg.Model,
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("generate request status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if text := strings.TrimSpace(payload.OutputText); text != "" {
		return text, nil
	}
	for _, item := range payload.Output {
		for _, content := range item.Content {
			if text := strings.TrimSpace(content.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", nil
}
