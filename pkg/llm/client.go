// Package llm defines the inference client contract shared by all backends
// (real model-serving endpoints and the deterministic stub) plus the
// conversation types passed across that boundary.
package llm

import "context"

// Client is the single call contract to a text-generation backend.
// Implementations must be side-effect free from the caller's perspective
// beyond the network/compute call itself.
type Client interface {
	// Generate returns the model's response to prompt, given optional prior
	// turns in original order. Returns ErrBackendUnavailable when the backend
	// cannot be reached or loaded, and ErrInputTooLong when the prompt plus
	// history exceeds the backend's context limit.
	Generate(ctx context.Context, prompt string, history []Turn) (string, error)
}

// GenerateFunc adapts a plain function to the Client interface. Used heavily
// in tests to script backend behavior.
type GenerateFunc func(ctx context.Context, prompt string, history []Turn) (string, error)

// Generate calls f.
func (f GenerateFunc) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	return f(ctx, prompt, history)
}
