// Package runcmder provides the run command, which drives a full telephone
// experiment: distill the seed question under every priming context, collect
// the model's answer, distill the answer, then judge the distilled answers
// pairwise.
package runcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rhoadesScholar/llm-experiments/pkg/cliui"
	"github.com/rhoadesScholar/llm-experiments/pkg/config"
	"github.com/rhoadesScholar/llm-experiments/pkg/contexts"
	"github.com/rhoadesScholar/llm-experiments/pkg/distill"
	"github.com/rhoadesScholar/llm-experiments/pkg/dotdir"
	"github.com/rhoadesScholar/llm-experiments/pkg/embeddings"
	embeddingutils "github.com/rhoadesScholar/llm-experiments/pkg/embeddings/utils"
	"github.com/rhoadesScholar/llm-experiments/pkg/eventstream"
	eventkafka "github.com/rhoadesScholar/llm-experiments/pkg/eventstream/kafka"
	eventnop "github.com/rhoadesScholar/llm-experiments/pkg/eventstream/nop"
	"github.com/rhoadesScholar/llm-experiments/pkg/experiment"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
	llmutils "github.com/rhoadesScholar/llm-experiments/pkg/llm/llmutils"
	"github.com/rhoadesScholar/llm-experiments/pkg/logger"
	"github.com/rhoadesScholar/llm-experiments/pkg/report"
	"github.com/rhoadesScholar/llm-experiments/pkg/results"
	resultsutils "github.com/rhoadesScholar/llm-experiments/pkg/results/utils"
)

const runLongDesc string = `Run the full telephone experiment.

For each priming context the seed question is distilled to convergence, the
model answers the distilled question, and the answer is distilled the same
way. A judge model then scores every unordered pair of distilled answers for
similarity. Results are saved to the configured results store.

A context that fails mid-pipeline is recorded as a failure and the run
continues with the remaining contexts. Interrupting the run (Ctrl-C) stops
cleanly at the next context boundary and keeps everything completed so far.

Examples:
  telephone run
  telephone run --provider anthropic --model claude-haiku-4-5-20251001
  telephone run --mode with_history --max-iterations 10
  telephone run --contexts isolation,ai_assistant_negative
  telephone run --provider stub --results-provider memory`

const runShortDesc string = "Run the full telephone experiment"

// runFlags is the flag registry for the run command.
var runFlags = config.FlagSet{
	config.FlagProvider: {
		Name: "provider", Shorthand: "p", ViperKey: "model.provider",
		Description: "Inference provider for the model under study (ollama, openai, anthropic, stub)",
	},
	config.FlagModel: {
		Name: "model", Shorthand: "m", ViperKey: "model.name",
		Description: "Model name for the model under study",
	},
	config.FlagTarget: {
		Name: "target", ViperKey: "model.target",
		Description: "Base URL of the inference backend",
	},
	config.FlagJudgeProvider: {
		Name: "judge-provider", ViperKey: "judge.provider",
		Description: "Inference provider for the judge model",
	},
	config.FlagJudgeModel: {
		Name: "judge-model", ViperKey: "judge.name",
		Description: "Model name for the judge model",
	},
	config.FlagJudgeTarget: {
		Name: "judge-target", ViperKey: "judge.target",
		Description: "Base URL of the judge's inference backend",
	},
	config.FlagMode: {
		Name: "mode", ViperKey: "distill.mode",
		Description: "Distillation history mode (telephone or with_history)",
	},
	config.FlagMaxIterations: {
		Name: "max-iterations", ViperKey: "distill.max_iterations",
		Description: "Maximum distillation iterations per text",
	},
	config.FlagThreshold: {
		Name: "threshold", ViperKey: "distill.convergence_threshold",
		Description: "Similarity threshold for convergence (0..1)",
	},
	config.FlagMetric: {
		Name: "metric", ViperKey: "distill.metric",
		Description: "Convergence metric (char, levenshtein, embedding)",
	},
	config.FlagTimeout: {
		Name: "timeout", ViperKey: "distill.timeout",
		Description: "Per-request inference timeout (e.g. 2m, 30s)",
	},
	config.FlagResultsProv: {
		Name: "results-provider", ViperKey: "results.provider",
		Description: "Results store provider (memory, sqlite, postgres)",
	},
	config.FlagSQLite: {
		Name: "sqlite", ViperKey: "results.sqlite_path",
		Description: "Path to the SQLite results database",
	},
	config.FlagPostgres: {
		Name: "postgres", ViperKey: "results.postgres_dsn",
		Description: "Postgres DSN for the results store",
	},
	config.FlagEventsTopic: {
		Name: "events-topic", ViperKey: "events.topic",
		Description: "Kafka topic for per-record completion events",
	},
}

// runFlagKeys lists every registry key the run command binds to viper.
var runFlagKeys = []string{
	config.FlagProvider,
	config.FlagModel,
	config.FlagTarget,
	config.FlagJudgeProvider,
	config.FlagJudgeModel,
	config.FlagJudgeTarget,
	config.FlagMode,
	config.FlagMaxIterations,
	config.FlagThreshold,
	config.FlagMetric,
	config.FlagTimeout,
	config.FlagResultsProv,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagEventsTopic,
}

type runCommander struct {
	provider      string
	model         string
	target        string
	judgeProvider string
	judgeModel    string
	judgeTarget   string
	mode          string
	maxIterations uint
	threshold     float64
	metric        string
	timeout       string
	resultsProv   string
	sqlitePath    string
	postgresDSN   string
	eventsTopic   string

	contextNames   []string
	reapplyContext bool
	events         bool
	stubFallback   bool
	noSave         bool
	noEvaluate     bool
	debug          bool

	configDir string
	cfg       *config.Config
}

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, runFlags, runFlagKeys)
			cmder.bindExtraFlags(v, cmd)

			cmder.cfg = config.ConfigFromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, runFlags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, runFlags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, runFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, runFlags, config.FlagJudgeProvider, &cmder.judgeProvider)
	config.AddStringFlag(cmd, runFlags, config.FlagJudgeModel, &cmder.judgeModel)
	config.AddStringFlag(cmd, runFlags, config.FlagJudgeTarget, &cmder.judgeTarget)
	config.AddStringFlag(cmd, runFlags, config.FlagMode, &cmder.mode)
	config.AddUintFlag(cmd, runFlags, config.FlagMaxIterations, &cmder.maxIterations)
	config.AddFloatFlag(cmd, runFlags, config.FlagThreshold, &cmder.threshold)
	config.AddStringFlag(cmd, runFlags, config.FlagMetric, &cmder.metric)
	config.AddStringFlag(cmd, runFlags, config.FlagTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, runFlags, config.FlagResultsProv, &cmder.resultsProv)
	config.AddStringFlag(cmd, runFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, runFlags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, runFlags, config.FlagEventsTopic, &cmder.eventsTopic)

	cmd.Flags().StringSliceVar(&cmder.contextNames, "contexts", nil,
		"Restrict the run to the named contexts (default: all)")
	cmd.Flags().BoolVar(&cmder.reapplyContext, "reapply-context", false,
		"Prefix the distilled question with the context prompt before answering")
	cmd.Flags().BoolVar(&cmder.events, "events", false,
		"Publish a completion event per context to Kafka")
	cmd.Flags().BoolVar(&cmder.stubFallback, "stub-fallback", false,
		"Fall back to the deterministic stub when the backend is unreachable")
	cmd.Flags().BoolVar(&cmder.noSave, "no-save", false,
		"Skip persisting the run to the results store")
	cmd.Flags().BoolVar(&cmder.noEvaluate, "no-evaluate", false,
		"Skip the pairwise judge evaluation")

	return cmd
}

// bindExtraFlags binds the flags that live outside the shared registry.
func (c *runCommander) bindExtraFlags(v *viper.Viper, cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("contexts"); f != nil {
		_ = v.BindPFlag("experiment.contexts", f)
	}
	if f := cmd.Flags().Lookup("reapply-context"); f != nil {
		_ = v.BindPFlag("experiment.reapply_context", f)
	}
	if f := cmd.Flags().Lookup("events"); f != nil {
		_ = v.BindPFlag("events.enabled", f)
	}
}

func (c *runCommander) run(parent context.Context) error {
	log := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(os.Stderr),
	)

	cfg := c.cfg

	mode, err := distill.ParseMode(cfg.Distill.Mode)
	if err != nil {
		return err
	}

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return err
	}

	ctxs, err := contexts.Subset(cfg.Experiment.Contexts)
	if err != nil {
		return err
	}

	// Ctrl-C stops the run at the next context or iteration boundary;
	// everything completed so far is kept and saved.
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metric, embedder, err := c.newMetric(ctx, cfg)
	if err != nil {
		return err
	}
	if embedder != nil {
		defer embedder.Close()
	}

	client, err := llmutils.NewClient(&llmutils.NewClientOpts{
		ProviderType: cfg.Model.Provider,
		TargetURL:    cfg.Model.Target,
		Model:        cfg.Model.Name,
		APIKey:       apiKeyFor(cfg.Model.Provider),
		Timeout:      timeout,
		StubFallback: c.stubFallback,
	})
	if err != nil {
		return fmt.Errorf("creating inference client: %w", err)
	}

	publisher, err := c.newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	orch := experiment.NewOrchestrator(client, experiment.Config{
		Mode:                 mode,
		MaxIterations:        int(cfg.Distill.MaxIterations),
		ConvergenceThreshold: cfg.Distill.ConvergenceThreshold,
		Metric:               metric,
		ReapplyContext:       cfg.Experiment.ReapplyContext,
		Logger:               log,
		Publisher:            publisher,
	})

	fmt.Printf("\n%s\n", cliui.HeaderStyle.Render("Telephone experiment"))
	fmt.Printf("  %s\n", cliui.Label("run", orch.RunID()))
	fmt.Printf("  %s\n", cliui.Label("model", fmt.Sprintf("%s (%s)", cfg.Model.Name, cfg.Model.Provider)))
	fmt.Printf("  %s\n", cliui.Label("mode", string(mode)))
	fmt.Printf("  %s\n\n", cliui.Label("contexts", fmt.Sprintf("%d", len(ctxs))))

	startedAt := time.Now()

	var records []experiment.Record
	for _, cc := range ctxs {
		single := []contexts.Context{cc}
		err := cliui.Step(os.Stdout, cc.Name, func() error {
			recs := orch.Run(ctx, single)
			records = append(records, recs...)
			if len(recs) == 0 {
				return ctx.Err()
			}
			return recs[len(recs)-1].Err
		})
		if ctx.Err() != nil {
			log.Warn("run interrupted", "completed", len(records))
			break
		}
		_ = err // failures are recorded per-context; the run continues
	}

	completedAt := time.Now()

	var judgments map[experiment.Pair]experiment.Judgment
	if !c.noEvaluate && ctx.Err() == nil {
		judge, err := c.newJudge(cfg, timeout)
		if err != nil {
			return err
		}

		evaluator := experiment.NewEvaluator(judge, log)
		err = cliui.Step(os.Stdout, "judging answer pairs", func() error {
			judgments = evaluator.Evaluate(ctx, records)
			return nil
		})
		_ = err
	}

	run := &results.Run{
		ID:          orch.RunID(),
		Provider:    cfg.Model.Provider,
		Model:       cfg.Model.Name,
		Mode:        string(mode),
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}

	if !c.noSave {
		if err := c.save(cfg, run, records, judgments); err != nil {
			return err
		}
	}

	c.printSummary(run, records, judgments)

	return nil
}

// newMetric builds the convergence metric named in the config. The returned
// embedder is non-nil only for the embedding metric; the caller owns closing
// it.
func (c *runCommander) newMetric(ctx context.Context, cfg *config.Config) (distill.Metric, embeddings.Embedder, error) {
	switch cfg.Distill.Metric {
	case "", "char":
		return distill.CharSimilarity, nil, nil
	case "levenshtein":
		return distill.Levenshtein, nil, nil
	case "embedding":
		embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedding.Provider,
			TargetURL:    cfg.Embedding.Target,
			Model:        cfg.Embedding.Model,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating embedder: %w", err)
		}
		return distill.EmbeddingCosine(ctx, embedder), embedder, nil
	default:
		return nil, nil, fmt.Errorf("unknown convergence metric %q (want char, levenshtein, or embedding)", cfg.Distill.Metric)
	}
}

// newJudge builds the judge client. The config layer already falls the judge
// settings back to the study model's settings.
func (c *runCommander) newJudge(cfg *config.Config, timeout time.Duration) (llm.Client, error) {
	judge, err := llmutils.NewClient(&llmutils.NewClientOpts{
		ProviderType: cfg.Judge.Provider,
		TargetURL:    cfg.Judge.Target,
		Model:        cfg.Judge.Name,
		APIKey:       apiKeyFor(cfg.Judge.Provider),
		Timeout:      timeout,
		StubFallback: c.stubFallback,
	})
	if err != nil {
		return nil, fmt.Errorf("creating judge client: %w", err)
	}
	return judge, nil
}

// newPublisher builds the event stream publisher: Kafka when events are
// enabled, the no-op publisher otherwise.
func (c *runCommander) newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	if !cfg.Events.Enabled {
		return eventnop.NewPublisher(), nil
	}

	pub, err := eventkafka.NewPublisher(eventkafka.Config{
		Brokers: cfg.Events.Brokers,
		Topic:   cfg.Events.Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	return pub, nil
}

// save persists the run and drops the last-run marker.
func (c *runCommander) save(cfg *config.Config, run *results.Run,
	records []experiment.Record, judgments map[experiment.Pair]experiment.Judgment,
) error {
	// Saving must survive an interrupted run ctx, so use a fresh one.
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := resultsutils.NewStore(saveCtx, &resultsutils.NewStoreOpts{
		ProviderType: cfg.Results.Provider,
		SQLitePath:   cfg.Results.SQLitePath,
		PostgresDSN:  cfg.Results.PostgresDSN,
		ConfigDir:    c.configDir,
	})
	if err != nil {
		return fmt.Errorf("opening results store: %w", err)
	}
	defer store.Close()

	if err := store.SaveRun(saveCtx, run); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	if err := store.SaveRecords(saveCtx, run.ID, records); err != nil {
		return fmt.Errorf("saving records: %w", err)
	}
	if len(judgments) > 0 {
		if err := store.SaveJudgments(saveCtx, run.ID, judgments); err != nil {
			return fmt.Errorf("saving judgments: %w", err)
		}
	}

	ddm := dotdir.NewManager()
	if err := ddm.SaveLastRun(&dotdir.LastRunState{
		RunID:       run.ID,
		CompletedAt: run.CompletedAt,
		Records:     len(records),
	}, c.configDir); err != nil {
		return err
	}

	return nil
}

func (c *runCommander) printSummary(run *results.Run,
	records []experiment.Record, judgments map[experiment.Pair]experiment.Judgment,
) {
	failed := 0
	for i := range records {
		if records[i].Failed() {
			failed++
		}
	}

	rpt := report.New(run, records, judgments)

	fmt.Printf("\n%s\n", cliui.HeaderStyle.Render("Summary"))
	fmt.Printf("  %s\n", cliui.Label("contexts", fmt.Sprintf("%d completed, %d failed", len(records)-failed, failed)))
	fmt.Printf("  %s\n", cliui.Label("judgments", fmt.Sprintf("%d", len(rpt.JudgmentList))))
	fmt.Printf("  %s\n", cliui.Label("duration", cliui.FormatDuration(run.CompletedAt.Sub(run.StartedAt))))
	if !c.noSave {
		fmt.Printf("  %s\n", cliui.Label("report", fmt.Sprintf("telephone report %s", run.ID)))
	}
	fmt.Println()
}

// apiKeyFor reads the conventional environment variable for a provider.
func apiKeyFor(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
