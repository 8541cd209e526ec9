// Package anthropic implements pkg/llm's Client against Anthropic's
// messages API.
package anthropic

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

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "claude-haiku-4-5-20251001"

	// DefaultBaseURL is the default Anthropic API URL.
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion     = "2023-06-01"
	defaultTimeout = 2 * time.Minute
	maxTokens      = 1024
)

// Client wraps Anthropic's /v1/messages endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Anthropic client.
type Config struct {
	// APIKey is sent as the x-api-key header.
	APIKey string

	// BaseURL overrides the API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string

	// Timeout bounds each Generate call. Zero means the default.
	Timeout time.Duration
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a new Anthropic-backed inference client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate sends the history plus prompt to Anthropic and returns the response text.
// System turns in the history map to the request's system field since the
// messages API rejects system-role messages.
func (c *Client) Generate(ctx context.Context, prompt string, history []llm.Turn) (string, error) {
	request := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
	}

	for _, turn := range history {
		if turn.Role == llm.RoleSystem {
			if request.System != "" {
				request.System += "\n"
			}
			request.System += turn.Text
			continue
		}
		request.Messages = append(request.Messages, message{
			Role:    mapRole(turn.Role),
			Content: turn.Text,
		})
	}
	request.Messages = append(request.Messages, message{Role: "user", Content: prompt})

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	var result messagesResponse
	if resp.StatusCode != http.StatusOK {
		if err := json.Unmarshal(body, &result); err == nil && result.Error != nil {
			if strings.Contains(strings.ToLower(result.Error.Message), "too long") {
				return "", fmt.Errorf("%w: anthropic: %s", llm.ErrInputTooLong, result.Error.Message)
			}
		}
		return "", fmt.Errorf("%w: anthropic status %d: %s", llm.ErrBackendUnavailable, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal anthropic response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", result.Error.Message)
	}
	if len(result.Content) == 0 {
		return "", errors.New("anthropic returned no content")
	}

	return result.Content[0].Text, nil
}

func mapRole(role string) string {
	if role == llm.RoleModel {
		return "assistant"
	}
	return role
}

var _ llm.Client = (*Client)(nil)
