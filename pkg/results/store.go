// Package results
package results

import (
	"context"
	"time"

	"github.com/rhoadesScholar/llm-experiments/pkg/experiment"
)

// Run is the persisted metadata for one experiment run.
type Run struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Mode        string    `json:"mode"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store defines the interface for persisting and retrieving experiment runs,
// their per-context records, and the evaluator's pairwise judgments.
// Persistence is a collaborator of the orchestration core, not part of it:
// the core hands over completed in-memory structures and never reads its own
// output back.
type Store interface {
	// SaveRun stores run metadata. Saving the same run ID twice overwrites.
	SaveRun(ctx context.Context, run *Run) error

	// SaveRecords stores a run's records; position is the slice order, which
	// is the context enumeration order.
	SaveRecords(ctx context.Context, runID string, records []experiment.Record) error

	// SaveJudgments stores the evaluator's pairwise judgment mapping.
	SaveJudgments(ctx context.Context, runID string, judgments map[experiment.Pair]experiment.Judgment) error

	// Run retrieves run metadata by ID.
	Run(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns all runs, most recently started first.
	ListRuns(ctx context.Context) ([]*Run, error)

	// Records returns a run's records in stored position order.
	Records(ctx context.Context, runID string) ([]experiment.Record, error)

	// Judgments returns a run's pairwise judgment mapping.
	Judgments(ctx context.Context, runID string) (map[experiment.Pair]experiment.Judgment, error)

	// Close closes the store and releases any resources.
	Close() error
}
