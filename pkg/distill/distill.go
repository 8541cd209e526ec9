// Package distill implements iterative prompt and response condensation:
// text is resubmitted through an inference client with a fixed "condense"
// instruction until consecutive candidates stop changing or an iteration cap
// is hit. Two history disciplines are supported - full accumulated history
// and "telephone", where only the most recent candidate survives each round.
package distill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
)

// Mode selects the history discipline for a distillation run.
type Mode string

const (
	// ModeWithHistory carries every prior turn in original order.
	ModeWithHistory Mode = "with_history"

	// ModeTelephone carries only the single most recent turn.
	ModeTelephone Mode = "telephone"
)

// Distillation instructions, carried over verbatim from the experiment design.
const (
	PromptInstruction   = "Condense the prompt below to be as clear as possible."
	ResponseInstruction = "Condense the response below to be as clear as possible."
)

const (
	// DefaultMaxIterations caps a distillation run.
	DefaultMaxIterations = 5

	// DefaultConvergenceThreshold is the similarity at which consecutive
	// candidates are considered converged.
	DefaultConvergenceThreshold = 0.95
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeWithHistory, ModeTelephone:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown distillation mode %q (want %q or %q)", s, ModeWithHistory, ModeTelephone)
	}
}

// Result holds one distillation run. Immutable after creation; Candidates are
// owned copies, and the final candidate is the text forwarded downstream.
type Result struct {
	Original   string   `json:"original"`
	Candidates []string `json:"candidates"`
	Converged  bool     `json:"converged"`
	Iterations int      `json:"iterations"`
	Mode       Mode     `json:"mode"`
}

// Final returns the last candidate, or the original text when no iteration
// completed.
func (r *Result) Final() string {
	if len(r.Candidates) == 0 {
		return r.Original
	}
	return r.Candidates[len(r.Candidates)-1]
}

// Config holds distillation engine settings.
type Config struct {
	// MaxIterations caps the loop. Zero means DefaultMaxIterations.
	MaxIterations int

	// ConvergenceThreshold stops the loop on the first candidate whose
	// similarity to its predecessor meets or exceeds it. Zero means
	// DefaultConvergenceThreshold.
	ConvergenceThreshold float64

	// Instruction prefixes each condensation request. Empty means
	// PromptInstruction.
	Instruction string

	// Metric scores candidate-to-predecessor similarity. Nil means
	// CharSimilarity.
	Metric Metric

	// Logger receives per-iteration debug output. Nil disables logging.
	Logger *slog.Logger
}

// Engine drives the distillation loop through an inference client.
type Engine struct {
	client      llm.Client
	metric      Metric
	maxIter     int
	threshold   float64
	instruction string
	logger      *slog.Logger
}

// NewEngine creates a distillation engine.
func NewEngine(client llm.Client, cfg Config) *Engine {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	threshold := cfg.ConvergenceThreshold
	if threshold <= 0 {
		threshold = DefaultConvergenceThreshold
	}

	instruction := cfg.Instruction
	if instruction == "" {
		instruction = PromptInstruction
	}

	metric := cfg.Metric
	if metric == nil {
		metric = CharSimilarity
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		client:      client,
		metric:      metric,
		maxIter:     maxIter,
		threshold:   threshold,
		instruction: instruction,
		logger:      logger,
	}
}

// Distill iteratively condenses seed through the inference client until
// consecutive candidates meet the convergence threshold or the iteration cap
// is reached. The seed is never mutated. On an inference error or
// cancellation the partial result accumulated so far is returned alongside
// the error.
//
// History discipline per iteration k (1-based): ModeWithHistory passes the
// k-1 prior candidate turns in original order; ModeTelephone passes only the
// turn from iteration k-1, and nothing on the first iteration.
func (e *Engine) Distill(ctx context.Context, seed string, mode Mode) (*Result, error) {
	result := &Result{
		Original: seed,
		Mode:     mode,
	}

	conversation := &llm.Conversation{}
	current := seed

	for i := 1; i <= e.maxIter; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var history []llm.Turn
		switch mode {
		case ModeTelephone:
			history = conversation.Last()
		case ModeWithHistory:
			history = conversation.Turns()
		default:
			return result, fmt.Errorf("unknown distillation mode %q", mode)
		}

		prompt := e.instruction + "\n\n" + current

		candidate, err := e.client.Generate(ctx, prompt, history)
		if err != nil {
			return result, fmt.Errorf("distillation iteration %d: %w", i, err)
		}

		result.Candidates = append(result.Candidates, candidate)
		result.Iterations = i
		conversation.Append(llm.RoleModel, candidate)

		similarity := e.metric(current, candidate)
		e.logger.Debug("distillation iteration",
			"mode", mode,
			"iteration", i,
			"similarity", similarity,
			"candidate_len", len(candidate),
		)

		if similarity >= e.threshold {
			result.Converged = true
			break
		}

		current = candidate
	}

	return result, nil
}
