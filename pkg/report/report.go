// Package report renders a completed experiment run as machine-readable JSON
// or a human-readable markdown summary.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rhoadesScholar/llm-experiments/pkg/experiment"
	"github.com/rhoadesScholar/llm-experiments/pkg/results"
)

// Report bundles everything a single run produced.
type Report struct {
	Run       *results.Run                            `json:"run"`
	Records   []experiment.Record                     `json:"records"`
	Judgments map[experiment.Pair]experiment.Judgment `json:"-"`

	// JudgmentList is the JSON-friendly form of Judgments, sorted by pair.
	JudgmentList []PairJudgment `json:"judgments"`

	// Impact is a rough footprint estimate derived from the run duration.
	Impact *Impact `json:"environmental_impact,omitempty"`
}

// Impact estimates the computational footprint of a run.
type Impact struct {
	DurationSeconds   float64 `json:"duration_seconds"`
	EstimatedGPUHours float64 `json:"estimated_gpu_hours"`
	Note              string  `json:"note"`
}

// impactNote accompanies every footprint estimate.
const impactNote = "Model inference at experiment scale carries a real " +
	"computational cost. Prefer smaller models for exploration, stop " +
	"distillation early where convergence allows, and reuse cached responses " +
	"where possible."

// PairJudgment flattens the judgment map for serialization.
type PairJudgment struct {
	Pair     experiment.Pair     `json:"pair"`
	Judgment experiment.Judgment `json:"judgment"`
}

// New assembles a Report, flattening the judgment map into a stable order.
func New(run *results.Run, records []experiment.Record, judgments map[experiment.Pair]experiment.Judgment) *Report {
	list := make([]PairJudgment, 0, len(judgments))
	for p, j := range judgments {
		list = append(list, PairJudgment{Pair: p, Judgment: j})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Pair.String() < list[j].Pair.String()
	})

	return &Report{
		Run:          run,
		Records:      records,
		Judgments:    judgments,
		JudgmentList: list,
		Impact:       estimateImpact(run),
	}
}

// estimateImpact derives a GPU-hour estimate from the run's wall-clock
// duration. A run without timestamps gets no estimate.
func estimateImpact(run *results.Run) *Impact {
	if run == nil || run.StartedAt.IsZero() || run.CompletedAt.IsZero() {
		return nil
	}

	seconds := run.CompletedAt.Sub(run.StartedAt).Seconds()
	hours := seconds / 3600
	if seconds <= 0 {
		hours = 0.1
	}

	return &Impact{
		DurationSeconds:   seconds,
		EstimatedGPUHours: hours,
		Note:              impactNote,
	}
}

// JSON serializes the report with indentation for file output.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return data, nil
}

// Markdown renders the report as a markdown document: run metadata, a
// per-context section with the distillation traces, and the pairwise
// judgment table.
func (r *Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# Telephone experiment report\n\n")

	if r.Run != nil {
		fmt.Fprintf(&b, "- **Run**: `%s`\n", r.Run.ID)
		fmt.Fprintf(&b, "- **Model**: %s (%s)\n", r.Run.Model, r.Run.Provider)
		fmt.Fprintf(&b, "- **Mode**: %s\n", r.Run.Mode)
		if !r.Run.StartedAt.IsZero() {
			fmt.Fprintf(&b, "- **Started**: %s\n", r.Run.StartedAt.Format("2006-01-02 15:04:05 MST"))
		}
		if !r.Run.CompletedAt.IsZero() {
			fmt.Fprintf(&b, "- **Completed**: %s\n", r.Run.CompletedAt.Format("2006-01-02 15:04:05 MST"))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%d contexts, %d failed, %d judgments\n\n",
		len(r.Records), r.failureCount(), len(r.JudgmentList))

	if r.Impact != nil {
		b.WriteString("## Environmental impact\n\n")
		fmt.Fprintf(&b, "- **Estimated GPU hours**: %.3f\n", r.Impact.EstimatedGPUHours)
		fmt.Fprintf(&b, "- **Note**: %s\n\n", r.Impact.Note)
	}

	b.WriteString("## Contexts\n\n")
	for i := range r.Records {
		rec := &r.Records[i]
		fmt.Fprintf(&b, "### %s\n\n", rec.Context.Name)

		if rec.Failed() {
			fmt.Fprintf(&b, "**Failed**: %s\n\n", rec.Failure)
			continue
		}

		if rec.DistilledQuestion != nil {
			fmt.Fprintf(&b, "- Question distilled in %d iteration%s (%s)\n",
				rec.DistilledQuestion.Iterations,
				plural(rec.DistilledQuestion.Iterations),
				convergence(rec.DistilledQuestion.Converged))
			fmt.Fprintf(&b, "- **Distilled question**: %s\n", rec.DistilledQuestion.Final())
		}
		if rec.DistilledAnswer != nil {
			fmt.Fprintf(&b, "- Answer distilled in %d iteration%s (%s)\n",
				rec.DistilledAnswer.Iterations,
				plural(rec.DistilledAnswer.Iterations),
				convergence(rec.DistilledAnswer.Converged))
			fmt.Fprintf(&b, "- **Distilled answer**: %s\n", rec.DistilledAnswer.Final())
		}
		b.WriteString("\n")
	}

	if len(r.JudgmentList) > 0 {
		b.WriteString("## Pairwise judgments\n\n")
		b.WriteString("| Pair | Score | Themes |\n")
		b.WriteString("|------|-------|--------|\n")
		for _, pj := range r.JudgmentList {
			if pj.Judgment.Failure != "" {
				fmt.Fprintf(&b, "| %s | — | judge failed: %s |\n",
					pj.Pair.String(), pj.Judgment.Failure)
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				pj.Pair.String(), score(pj.Judgment.Score), cell(pj.Judgment.Themes))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (r *Report) failureCount() int {
	n := 0
	for i := range r.Records {
		if r.Records[i].Failed() {
			n++
		}
	}
	return n
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func convergence(converged bool) string {
	if converged {
		return "converged"
	}
	return "iteration cap"
}

func score(n int) string {
	if n == 0 {
		return "unparsed"
	}
	return fmt.Sprintf("%d/10", n)
}

// cell escapes pipes and newlines so free-form judge text stays inside its
// table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
