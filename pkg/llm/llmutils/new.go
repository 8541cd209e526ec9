// Package llmutils is the inference client utility package
package llmutils

import (
	"fmt"
	"time"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/anthropic"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/ollama"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/openai"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/stub"
)

// NewClientOpts selects and configures an inference backend.
type NewClientOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Timeout      time.Duration

	// StubFallback wraps the backend so that an unreachable backend (after
	// one retry) falls back to the deterministic stub instead of failing.
	StubFallback bool
}

// NewClient constructs an inference client for the named provider.
func NewClient(o *NewClientOpts) (llm.Client, error) {
	var client llm.Client

	switch o.ProviderType {
	case "ollama":
		client = ollama.NewClient(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Timeout: o.Timeout,
		})
	case "openai":
		client = openai.NewClient(openai.Config{
			APIKey:  o.APIKey,
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Timeout: o.Timeout,
		})
	case "anthropic":
		client = anthropic.NewClient(anthropic.Config{
			APIKey:  o.APIKey,
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Timeout: o.Timeout,
		})
	case "stub":
		client = stub.NewClient()
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", o.ProviderType)
	}

	var fallback llm.Client
	if o.StubFallback && o.ProviderType != "stub" {
		fallback = stub.NewClient()
	}

	return llm.WithFallback(client, fallback), nil
}
