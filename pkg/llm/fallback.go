package llm

import (
	"context"
	"errors"
)

// fallbackClient wraps a primary Client with retry-once semantics for
// ErrBackendUnavailable and an optional fallback Client.
type fallbackClient struct {
	primary  Client
	fallback Client
}

// WithFallback wraps primary so that ErrBackendUnavailable is retried exactly
// once. If the retry also fails and fallback is non-nil, the call is handed to
// the fallback; otherwise the error propagates. ErrInputTooLong is surfaced
// immediately without retry.
func WithFallback(primary, fallback Client) Client {
	return &fallbackClient{primary: primary, fallback: fallback}
}

func (c *fallbackClient) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	text, err := c.primary.Generate(ctx, prompt, history)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, ErrInputTooLong) {
		return "", err
	}
	if !errors.Is(err, ErrBackendUnavailable) {
		return "", err
	}
	// A cancelled call surfaces as an unavailable backend; don't retry it.
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	// Retry once before giving up on the primary.
	text, err = c.primary.Generate(ctx, prompt, history)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, ErrBackendUnavailable) && c.fallback != nil && ctx.Err() == nil {
		return c.fallback.Generate(ctx, prompt, history)
	}

	return "", err
}
