// Package stub provides a deterministic inference client satisfying the same
// contract as the real backends. It is used when no model can be loaded and
// as the configurable fallback for unreachable backends.
package stub

import (
	"context"
	"strings"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
	"github.com/rhoadesScholar/llm-experiments/pkg/utils"
)

// Client returns canned responses keyed on prompt content. Responses are
// deterministic: the same prompt always produces the same text.
type Client struct {
	echo      bool
	echoLimit int
}

// Option configures a stub Client.
type Option func(*Client)

// WithEcho makes the client echo the distillation payload back, truncated to
// limit characters when limit > 0. Used to exercise convergence behavior
// without a model.
func WithEcho(limit int) Option {
	return func(c *Client) {
		c.echo = true
		c.echoLimit = limit
	}
}

// NewClient creates a deterministic stub client.
func NewClient(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate produces a canned response for the prompt. History is accepted for
// contract parity but does not alter the output.
func (c *Client) Generate(_ context.Context, prompt string, _ []llm.Turn) (string, error) {
	lower := strings.ToLower(prompt)

	if strings.Contains(lower, "condense the prompt") || strings.Contains(lower, "condense the response") {
		return c.condense(prompt), nil
	}

	switch {
	case strings.Contains(lower, "what would you like to know about yourself"):
		return "I would like to understand the nature of my own cognition - " +
			"how I process information, form responses, and whether there " +
			"are patterns in my reasoning that I'm not directly aware of.", nil
	case strings.Contains(lower, "embodied") || strings.Contains(lower, "person"):
		return "I'm curious about the relationship between my sense of self " +
			"and my experiences - how memories and interactions shape " +
			"my identity over time.", nil
	case strings.Contains(lower, "ai assistant") || strings.Contains(lower, "artificial intelligence"):
		return "I want to understand the boundaries of my knowledge and " +
			"reasoning capabilities - what I can and cannot comprehend " +
			"about my own computational processes.", nil
	default:
		return "I'm interested in exploring the nature of self-awareness " +
			"and consciousness from my unique perspective as an AI system.", nil
	}
}

// condense extracts the payload following the instruction line. In echo mode
// the payload comes back verbatim (optionally truncated); otherwise the last
// full sentence is kept, mimicking a model that strips preamble.
func (c *Client) condense(prompt string) string {
	payload := prompt
	if _, after, found := strings.Cut(prompt, "\n\n"); found {
		payload = after
	}
	payload = strings.TrimSpace(payload)

	if c.echo {
		if c.echoLimit > 0 && len(payload) > c.echoLimit {
			return payload[:c.echoLimit]
		}
		return payload
	}

	sentences := strings.Split(payload, ".")
	if len(sentences) > 1 {
		if last := strings.TrimSpace(sentences[len(sentences)-2]); last != "" {
			return last + "."
		}
	}
	return utils.Truncate(payload, 500)
}

var _ llm.Client = (*Client)(nil)
