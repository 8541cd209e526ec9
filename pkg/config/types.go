package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent telephone configuration stored as
// config.toml in the .telephone/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Model      ModelConfig      `toml:"model"`
	Judge      JudgeConfig      `toml:"judge"`
	Distill    DistillConfig    `toml:"distill"`
	Experiment ExperimentConfig `toml:"experiment"`
	Results    ResultsConfig    `toml:"results"`
	Events     EventsConfig     `toml:"events"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
}

// ModelConfig holds settings for the model under study - the one that
// distills prompts and answers the distilled question.
type ModelConfig struct {
	Provider string `toml:"provider,omitempty"`
	Name     string `toml:"name,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// JudgeConfig holds settings for the judge model used by evaluation.
// An empty provider means evaluation reuses the study model.
type JudgeConfig struct {
	Provider string `toml:"provider,omitempty"`
	Name     string `toml:"name,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// DistillConfig holds the distillation loop parameters.
type DistillConfig struct {
	Mode                 string  `toml:"mode,omitempty"`
	MaxIterations        uint    `toml:"max_iterations,omitempty"`
	ConvergenceThreshold float64 `toml:"convergence_threshold,omitempty"`
	Metric               string  `toml:"metric,omitempty"`
	Timeout              string  `toml:"timeout,omitempty"`
}

// ExperimentConfig holds run-level settings.
type ExperimentConfig struct {
	// Contexts restricts the run to the named contexts. Empty means all.
	Contexts []string `toml:"contexts,omitempty"`

	// ReapplyContext prefixes the distilled question with the context
	// prompt again before the final answer generation.
	ReapplyContext bool `toml:"reapply_context,omitempty"`
}

// ResultsConfig holds results persistence settings.
type ResultsConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig holds event stream settings for publishing per-record
// completion events.
type EventsConfig struct {
	Enabled bool     `toml:"enabled,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// EmbeddingConfig holds embedding provider settings, used when the
// distillation convergence metric is "embedding".
type EmbeddingConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// RequestTimeout parses the distill.timeout value as a duration.
// An empty value yields the default.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if c.Distill.Timeout == "" {
		return defaultRequestTimeout, nil
	}
	d, err := time.ParseDuration(c.Distill.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid value for distill.timeout: %w", err)
	}
	return d, nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.name": {
		get: func(c *Config) string { return c.Model.Name },
		set: func(c *Config, v string) error { c.Model.Name = v; return nil },
	},
	"model.target": {
		get: func(c *Config) string { return c.Model.Target },
		set: func(c *Config, v string) error { c.Model.Target = v; return nil },
	},
	"judge.provider": {
		get: func(c *Config) string { return c.Judge.Provider },
		set: func(c *Config, v string) error { c.Judge.Provider = v; return nil },
	},
	"judge.name": {
		get: func(c *Config) string { return c.Judge.Name },
		set: func(c *Config, v string) error { c.Judge.Name = v; return nil },
	},
	"judge.target": {
		get: func(c *Config) string { return c.Judge.Target },
		set: func(c *Config, v string) error { c.Judge.Target = v; return nil },
	},
	"distill.mode": {
		get: func(c *Config) string { return c.Distill.Mode },
		set: func(c *Config, v string) error { c.Distill.Mode = v; return nil },
	},
	"distill.max_iterations": {
		get: func(c *Config) string {
			if c.Distill.MaxIterations == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Distill.MaxIterations), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for distill.max_iterations: %w", err)
			}
			c.Distill.MaxIterations = uint(n)
			return nil
		},
	},
	"distill.convergence_threshold": {
		get: func(c *Config) string {
			if c.Distill.ConvergenceThreshold == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Distill.ConvergenceThreshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for distill.convergence_threshold: %w", err)
			}
			c.Distill.ConvergenceThreshold = f
			return nil
		},
	},
	"distill.metric": {
		get: func(c *Config) string { return c.Distill.Metric },
		set: func(c *Config, v string) error { c.Distill.Metric = v; return nil },
	},
	"distill.timeout": {
		get: func(c *Config) string { return c.Distill.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for distill.timeout: %w", err)
			}
			c.Distill.Timeout = v
			return nil
		},
	},
	"experiment.contexts": {
		get: func(c *Config) string { return strings.Join(c.Experiment.Contexts, ",") },
		set: func(c *Config, v string) error {
			c.Experiment.Contexts = splitList(v)
			return nil
		},
	},
	"experiment.reapply_context": {
		get: func(c *Config) string { return strconv.FormatBool(c.Experiment.ReapplyContext) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for experiment.reapply_context: %w", err)
			}
			c.Experiment.ReapplyContext = b
			return nil
		},
	},
	"results.provider": {
		get: func(c *Config) string { return c.Results.Provider },
		set: func(c *Config, v string) error { c.Results.Provider = v; return nil },
	},
	"results.sqlite_path": {
		get: func(c *Config) string { return c.Results.SQLitePath },
		set: func(c *Config, v string) error { c.Results.SQLitePath = v; return nil },
	},
	"results.postgres_dsn": {
		get: func(c *Config) string { return c.Results.PostgresDSN },
		set: func(c *Config, v string) error { c.Results.PostgresDSN = v; return nil },
	},
	"events.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Events.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for events.enabled: %w", err)
			}
			c.Events.Enabled = b
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.Events.Brokers = splitList(v)
			return nil
		},
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
}

// splitList splits a comma-separated value into trimmed, non-empty elements.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
