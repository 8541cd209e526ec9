// Package ollama implements pkg/llm's Client against Ollama's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	defaultTimeout = 2 * time.Minute
)

// Client wraps Ollama's /api/chat endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
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
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

// NewClient creates a new Ollama-backed inference client.
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
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate sends the history plus prompt to Ollama and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string, history []llm.Turn) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, chatMessage{
			Role:    mapRole(turn.Role),
			Content: turn.Text,
		})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	request := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection refused, DNS failure, client or context timeout all
		// mean the backend cannot be reached right now.
		return "", fmt.Errorf("%w: %v", llm.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if isContextLimit(resp.StatusCode, string(body)) {
			return "", fmt.Errorf("%w: ollama status %d: %s", llm.ErrInputTooLong, resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("%w: ollama status %d: %s", llm.ErrBackendUnavailable, resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("%w: ollama error: %s", llm.ErrBackendUnavailable, response.Error)
	}

	return response.Message.Content, nil
}

func mapRole(role string) string {
	if role == llm.RoleModel {
		return "assistant"
	}
	return role
}

func isContextLimit(status int, body string) bool {
	if status == http.StatusRequestEntityTooLarge {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "context length") ||
		strings.Contains(lower, "context window") ||
		strings.Contains(lower, "too long")
}

// Ensure Client satisfies the inference contract.
var _ llm.Client = (*Client)(nil)
