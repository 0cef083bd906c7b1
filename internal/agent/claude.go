package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockcall/internal/config"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	maxTokens        = 1024
)

// ClaudeClient is a focused Anthropic Messages API client; one completion
// call is all the summarizer step needs.
type ClaudeClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type ClaudeOption func(*ClaudeClient)

func WithBaseURL(baseURL string) ClaudeOption {
	return func(c *ClaudeClient) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(hc *http.Client) ClaudeOption {
	return func(c *ClaudeClient) { c.httpClient = hc }
}

func NewClaudeClient(cfg config.AnthropicConfig, opts ...ClaudeOption) (*ClaudeClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("agent: anthropic api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("agent: anthropic model is required")
	}
	c := &ClaudeClient{
		baseURL:    defaultBaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends one user prompt (with an optional system role) and returns
// the model's text reply.
func (c *ClaudeClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("agent: marshal request: %w", err)
	}

	url := c.baseURL + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("agent: create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("agent: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("agent: unexpected status %d from %s: %s", resp.StatusCode, url, strings.TrimSpace(string(raw)))
	}

	var payload messagesResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("agent: decode response: %w", err)
	}
	var out strings.Builder
	for _, block := range payload.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", errors.New("agent: empty completion")
	}
	return text, nil
}
