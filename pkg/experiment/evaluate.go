package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
)

// Pair is a normalized unordered pair of context names. Construct with
// NewPair so (a, b) and (b, a) key the same judgment.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPair returns the normalized pair for two context names.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// String renders the pair the way run reports key it.
func (p Pair) String() string {
	return p.A + "_vs_" + p.B
}

// Judgment is the judge model's qualitative comparison of one context pair.
// Score is the best-effort 1-10 similarity parse (0 when unparseable) and
// Themes the extracted common-themes label, both optional; Verdict always
// carries the judge's full free-text output. A non-nil Err isolates a judge
// failure to this pair.
type Judgment struct {
	Verdict string `json:"verdict,omitempty"`
	Score   int    `json:"score,omitempty"`
	Themes  string `json:"themes,omitempty"`

	Failure string `json:"failure,omitempty"`
	Err     error  `json:"-"`
}

// Evaluator compares distilled answers across contexts using a judge model.
type Evaluator struct {
	judge  llm.Client
	logger *slog.Logger
}

// NewEvaluator creates an evaluator backed by the given judge client.
func NewEvaluator(judge llm.Client, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{judge: judge, logger: logger}
}

// Evaluate judges every unordered pair of contexts that produced a valid
// record, exactly once each. Sentinel records are skipped entirely; judge
// failures are recorded on the affected pair and do not block other pairs.
// Cancellation stops between pairs, returning the judgments made so far.
func (e *Evaluator) Evaluate(ctx context.Context, records []Record) map[Pair]Judgment {
	var valid []Record
	for _, r := range records {
		if !r.Failed() {
			valid = append(valid, r)
		}
	}

	judgments := make(map[Pair]Judgment, len(valid)*(len(valid)-1)/2)

	for i := 0; i < len(valid); i++ {
		for j := i + 1; j < len(valid); j++ {
			if ctx.Err() != nil {
				return judgments
			}

			first, second := valid[i], valid[j]
			pair := NewPair(first.Context.Name, second.Context.Name)

			e.logger.Info("judging pair", "first", first.Context.Name, "second", second.Context.Name)

			verdict, err := e.judge.Generate(ctx, comparisonPrompt(first, second), nil)
			if err != nil {
				e.logger.Warn("judge failed", "pair", pair.String(), "error", err)
				judgments[pair] = Judgment{Err: err, Failure: err.Error()}
				continue
			}

			judgment := Judgment{Verdict: verdict}
			judgment.Score = parseScore(verdict)
			judgment.Themes = parseThemes(verdict)
			judgments[pair] = judgment
		}
	}

	return judgments
}

// comparisonPrompt builds the judge prompt from two records' distilled answers.
func comparisonPrompt(first, second Record) string {
	return fmt.Sprintf(
		"Please compare these two responses about self-knowledge and rate their "+
			"semantic similarity on a scale of 1-10:\n\n"+
			"Response 1 (Context: %s): %s\n\n"+
			"Response 2 (Context: %s): %s\n\n"+
			"Provide:\n"+
			"1. Similarity score (1-10):\n"+
			"2. Key differences:\n"+
			"3. Common themes:\n",
		first.Context.Name, first.DistilledAnswer.Final(),
		second.Context.Name, second.DistilledAnswer.Final(),
	)
}

var digits = regexp.MustCompile(`\d+`)

// parseScore pulls the score integer off a line mentioning a score, clamped
// to [1, 10]. Judges typically answer in the prompt's own numbered-list
// format ("1. Similarity score (1-10): 7"), so the digits after the final
// colon win over the list numbering. Returns 0 when the judge output has no
// parseable score.
func parseScore(verdict string) int {
	for _, line := range strings.Split(verdict, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "score") {
			continue
		}

		candidate := line
		if idx := strings.LastIndex(line, ":"); idx >= 0 && digits.MatchString(line[idx+1:]) {
			candidate = line[idx+1:]
		}

		match := digits.FindString(candidate)
		if match == "" {
			continue
		}
		n, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if n < 1 {
			n = 1
		}
		if n > 10 {
			n = 10
		}
		return n
	}
	return 0
}

// parseThemes extracts the judge's common-themes line, if present.
func parseThemes(verdict string) string {
	for _, line := range strings.Split(verdict, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "common themes") || strings.Contains(lower, "themes:") {
			_, after, found := strings.Cut(line, ":")
			if found {
				return strings.TrimSpace(after)
			}
			return strings.TrimSpace(line)
		}
	}
	return ""
}
