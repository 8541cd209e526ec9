// Package experiment sequences the introspection experiment: for each
// framing context, pose the seed question, distill it, submit the distilled
// question, distill the answer, and record every intermediate artifact. A
// second model instance then judges the distilled answers pairwise across
// contexts.
package experiment

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rhoadesScholar/llm-experiments/pkg/contexts"
	"github.com/rhoadesScholar/llm-experiments/pkg/distill"
	"github.com/rhoadesScholar/llm-experiments/pkg/eventstream"
	"github.com/rhoadesScholar/llm-experiments/pkg/eventstream/nop"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
)

// Record holds everything produced for one context. A non-nil Err is the
// failure sentinel: the context's pipeline failed and the other fields hold
// whatever was produced before the failure.
type Record struct {
	Context           contexts.Context `json:"context"`
	SeedQuestion      string           `json:"seed_question"`
	DistilledQuestion *distill.Result  `json:"distilled_question,omitempty"`
	ModelAnswer       string           `json:"model_answer,omitempty"`
	DistilledAnswer   *distill.Result  `json:"distilled_answer,omitempty"`

	Failure string `json:"failure,omitempty"`
	Err     error  `json:"-"`
}

// Failed reports whether this record is a failure sentinel.
func (r *Record) Failed() bool {
	return r.Err != nil
}

// Config holds experiment-wide settings. Passed in at construction so
// repeated runs stay independent; nothing here is module-level state.
type Config struct {
	// Mode selects the distillation history discipline for the run.
	Mode distill.Mode

	// MaxIterations and ConvergenceThreshold configure both distillation
	// engines. Zero values mean the distill package defaults.
	MaxIterations        int
	ConvergenceThreshold float64

	// Metric scores convergence. Nil means distill.CharSimilarity.
	Metric distill.Metric

	// ReapplyContext re-applies the context's prompt text when submitting
	// the distilled question. Off by default: the distilled question is
	// presented bare, so the answer reflects the question alone.
	ReapplyContext bool

	// RunID identifies this run in events and stored results. Empty means a
	// fresh UUID.
	RunID string

	// Logger receives run progress. Nil disables logging.
	Logger *slog.Logger

	// Publisher receives a RecordCompleted event per context. Nil means the
	// no-op publisher.
	Publisher eventstream.Publisher
}

// Orchestrator drives the experiment across contexts, one at a time.
type Orchestrator struct {
	client         llm.Client
	questionEngine *distill.Engine
	answerEngine   *distill.Engine
	mode           distill.Mode
	reapplyContext bool
	runID          string
	logger         *slog.Logger
	publisher      eventstream.Publisher
}

// NewOrchestrator creates an orchestrator that drives all inference through
// the given client.
func NewOrchestrator(client llm.Client, cfg Config) *Orchestrator {
	mode := cfg.Mode
	if mode == "" {
		mode = distill.ModeTelephone
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	questionEngine := distill.NewEngine(client, distill.Config{
		MaxIterations:        cfg.MaxIterations,
		ConvergenceThreshold: cfg.ConvergenceThreshold,
		Instruction:          distill.PromptInstruction,
		Metric:               cfg.Metric,
		Logger:               logger,
	})
	answerEngine := distill.NewEngine(client, distill.Config{
		MaxIterations:        cfg.MaxIterations,
		ConvergenceThreshold: cfg.ConvergenceThreshold,
		Instruction:          distill.ResponseInstruction,
		Metric:               cfg.Metric,
		Logger:               logger,
	})

	return &Orchestrator{
		client:         client,
		questionEngine: questionEngine,
		answerEngine:   answerEngine,
		mode:           mode,
		reapplyContext: cfg.ReapplyContext,
		runID:          runID,
		logger:         logger,
		publisher:      publisher,
	}
}

// RunID returns the identifier for this orchestrator's run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes the pipeline for each context in enumeration order. Contexts
// are independent: a failure in one produces a sentinel record and the run
// continues. Cancellation is honored between contexts; records completed
// before cancellation are returned.
func (o *Orchestrator) Run(ctx context.Context, ctxs []contexts.Context) []Record {
	records := make([]Record, 0, len(ctxs))

	for _, c := range ctxs {
		if ctx.Err() != nil {
			o.logger.Info("run cancelled", "completed", len(records), "remaining", len(ctxs)-len(records))
			break
		}

		o.logger.Info("running context", "context", c.Name, "mode", o.mode)

		record := o.runContext(ctx, c)
		if record.Err != nil {
			record.Failure = record.Err.Error()
			o.logger.Warn("context pipeline failed", "context", c.Name, "error", record.Err)
		}
		records = append(records, record)

		o.publish(ctx, &record)
	}

	return records
}

// runContext executes the four pipeline stages for one context. Every stage
// failure is wrapped so the record carries both the sentinel and the cause.
func (o *Orchestrator) runContext(ctx context.Context, c contexts.Context) Record {
	record := Record{
		Context:      c,
		SeedQuestion: contexts.SeedQuestion,
	}

	question := applyPrefix(c, contexts.SeedQuestion)

	distilledQuestion, err := o.questionEngine.Distill(ctx, question, o.mode)
	record.DistilledQuestion = distilledQuestion
	if err != nil {
		record.Err = pipelineErr("distilling question", err)
		return record
	}

	finalQuestion := distilledQuestion.Final()
	if o.reapplyContext {
		finalQuestion = applyPrefix(c, finalQuestion)
	}

	answer, err := o.client.Generate(ctx, finalQuestion, nil)
	if err != nil {
		record.Err = pipelineErr("generating answer", err)
		return record
	}
	record.ModelAnswer = answer

	distilledAnswer, err := o.answerEngine.Distill(ctx, answer, o.mode)
	record.DistilledAnswer = distilledAnswer
	if err != nil {
		record.Err = pipelineErr("distilling answer", err)
		return record
	}

	return record
}

func (o *Orchestrator) publish(ctx context.Context, record *Record) {
	event := &eventstream.RecordCompletedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeRecordCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		RunID:         o.runID,
		ContextName:   record.Context.Name,
		Mode:          string(o.mode),
		Failed:        record.Failed(),
		FailureReason: record.Failure,
	}
	if record.DistilledQuestion != nil {
		event.QuestionIterations = record.DistilledQuestion.Iterations
		event.QuestionConverged = record.DistilledQuestion.Converged
	}
	if record.DistilledAnswer != nil {
		event.AnswerIterations = record.DistilledAnswer.Iterations
		event.AnswerConverged = record.DistilledAnswer.Converged
	}

	if err := o.publisher.PublishRecord(ctx, event); err != nil {
		o.logger.Warn("publishing record event", "context", record.Context.Name, "error", err)
	}
}

// applyPrefix prepends the context's framing text to a question. The
// isolation context has no prefix, so the question passes through untouched.
func applyPrefix(c contexts.Context, question string) string {
	if c.IsNull() {
		return question
	}
	return c.PromptText + "\n\n" + question
}
