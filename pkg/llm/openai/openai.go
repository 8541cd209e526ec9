// Package openai implements pkg/llm's Client against OpenAI's chat
// completions API.
package openai

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
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"

	defaultTimeout = 2 * time.Minute
)

// Client wraps OpenAI's /v1/chat/completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the OpenAI client.
type Config struct {
	// APIKey is the bearer token used for authentication.
	APIKey string

	// BaseURL overrides the API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string

	// Timeout bounds each Generate call. Zero means the default.
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewClient creates a new OpenAI-backed inference client.
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

// Generate sends the history plus prompt to OpenAI and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string, history []llm.Turn) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, chatMessage{
			Role:    mapRole(turn.Role),
			Content: turn.Text,
		})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	payload, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}

	var result chatResponse
	if resp.StatusCode != http.StatusOK {
		// Try to distinguish a context-limit rejection from an outage.
		if err := json.Unmarshal(body, &result); err == nil && result.Error != nil {
			if result.Error.Code == "context_length_exceeded" ||
				strings.Contains(strings.ToLower(result.Error.Message), "context length") {
				return "", fmt.Errorf("%w: openai: %s", llm.ErrInputTooLong, result.Error.Message)
			}
		}
		return "", fmt.Errorf("%w: openai status %d: %s", llm.ErrBackendUnavailable, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal openai response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("openai error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

func mapRole(role string) string {
	if role == llm.RoleModel {
		return "assistant"
	}
	return role
}

var _ llm.Client = (*Client)(nil)
