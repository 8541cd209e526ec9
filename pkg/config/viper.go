package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/rhoadesScholar/llm-experiments/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the TELEPHONE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (TELEPHONE_MODEL_PROVIDER, TELEPHONE_DISTILL_MODE, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: TELEPHONE_MODEL_NAME, TELEPHONE_RESULTS_PROVIDER, etc.
	v.SetEnvPrefix("TELEPHONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Model under study
	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.target", d.Model.Target)

	// Judge
	v.SetDefault("judge.provider", d.Judge.Provider)
	v.SetDefault("judge.name", d.Judge.Name)
	v.SetDefault("judge.target", d.Judge.Target)

	// Distillation loop
	v.SetDefault("distill.mode", d.Distill.Mode)
	v.SetDefault("distill.max_iterations", d.Distill.MaxIterations)
	v.SetDefault("distill.convergence_threshold", d.Distill.ConvergenceThreshold)
	v.SetDefault("distill.metric", d.Distill.Metric)
	v.SetDefault("distill.timeout", d.Distill.Timeout)

	// Experiment
	v.SetDefault("experiment.contexts", d.Experiment.Contexts)
	v.SetDefault("experiment.reapply_context", d.Experiment.ReapplyContext)

	// Results store
	v.SetDefault("results.provider", d.Results.Provider)
	v.SetDefault("results.sqlite_path", d.Results.SQLitePath)
	v.SetDefault("results.postgres_dsn", d.Results.PostgresDSN)

	// Event stream
	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
}

// ConfigFromViper materializes a Config from the resolved viper state,
// honoring the full flag > env > file > default precedence chain.
func ConfigFromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Model: ModelConfig{
			Provider: v.GetString("model.provider"),
			Name:     v.GetString("model.name"),
			Target:   v.GetString("model.target"),
		},
		Judge: JudgeConfig{
			Provider: v.GetString("judge.provider"),
			Name:     v.GetString("judge.name"),
			Target:   v.GetString("judge.target"),
		},
		Distill: DistillConfig{
			Mode:                 v.GetString("distill.mode"),
			MaxIterations:        v.GetUint("distill.max_iterations"),
			ConvergenceThreshold: v.GetFloat64("distill.convergence_threshold"),
			Metric:               v.GetString("distill.metric"),
			Timeout:              v.GetString("distill.timeout"),
		},
		Experiment: ExperimentConfig{
			Contexts:       v.GetStringSlice("experiment.contexts"),
			ReapplyContext: v.GetBool("experiment.reapply_context"),
		},
		Results: ResultsConfig{
			Provider:    v.GetString("results.provider"),
			SQLitePath:  v.GetString("results.sqlite_path"),
			PostgresDSN: v.GetString("results.postgres_dsn"),
		},
		Events: EventsConfig{
			Enabled: v.GetBool("events.enabled"),
			Brokers: v.GetStringSlice("events.brokers"),
			Topic:   v.GetString("events.topic"),
		},
		Embedding: EmbeddingConfig{
			Provider: v.GetString("embedding.provider"),
			Target:   v.GetString("embedding.target"),
			Model:    v.GetString("embedding.model"),
		},
	}

	applyDefaults(cfg)

	return cfg
}
