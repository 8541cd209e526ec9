package config

import "time"

const (
	defaultProvider = "ollama"
	defaultTarget   = "http://localhost:11434"
	defaultModel    = "llama3.2"

	defaultMode                 = "telephone"
	defaultMaxIterations        = 5
	defaultConvergenceThreshold = 0.95
	defaultMetric               = "char"
	defaultTimeout              = "2m"

	defaultResultsProvider = "sqlite"

	defaultEventsTopic = "telephone.records"

	defaultEmbeddingModel = "embeddinggemma"

	defaultRequestTimeout = 2 * time.Minute
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Model: ModelConfig{
			Provider: defaultProvider,
			Name:     defaultModel,
			Target:   defaultTarget,
		},
		Judge: JudgeConfig{
			Provider: defaultProvider,
			Name:     defaultModel,
			Target:   defaultTarget,
		},
		Distill: DistillConfig{
			Mode:                 defaultMode,
			MaxIterations:        defaultMaxIterations,
			ConvergenceThreshold: defaultConvergenceThreshold,
			Metric:               defaultMetric,
			Timeout:              defaultTimeout,
		},
		Results: ResultsConfig{
			Provider: defaultResultsProvider,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultProvider,
			Target:   defaultTarget,
			Model:    defaultEmbeddingModel,
		},
	}
}
