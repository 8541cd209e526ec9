package experiment_test

import (
	"context"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/contexts"
	"github.com/rhoadesScholar/llm-experiments/pkg/distill"
	"github.com/rhoadesScholar/llm-experiments/pkg/experiment"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
)

// validRecord fabricates a completed record for the named context.
func validRecord(name string) experiment.Record {
	return experiment.Record{
		Context:      contexts.Context{Name: name},
		SeedQuestion: contexts.SeedQuestion,
		DistilledQuestion: &distill.Result{
			Original:   "the question",
			Candidates: []string{"the distilled question"},
			Converged:  true,
			Iterations: 1,
		},
		ModelAnswer: "a full answer about " + name,
		DistilledAnswer: &distill.Result{
			Original:   "a full answer about " + name,
			Candidates: []string{"distilled answer for " + name},
			Converged:  true,
			Iterations: 1,
		},
	}
}

func failedRecord(name string) experiment.Record {
	err := fmt.Errorf("backend gone")
	return experiment.Record{
		Context: contexts.Context{Name: name},
		Failure: err.Error(),
		Err:     err,
	}
}

var _ = Describe("Pair", func() {
	It("normalizes order so both constructions key the same judgment", func() {
		Expect(experiment.NewPair("b", "a")).To(Equal(experiment.NewPair("a", "b")))
		Expect(experiment.NewPair("a", "b").String()).To(Equal("a_vs_b"))
	})
})

var _ = Describe("Evaluator", func() {
	Describe("pair coverage", func() {
		It("judges every unordered pair of valid records exactly once", func() {
			records := []experiment.Record{
				validRecord("alpha"),
				validRecord("beta"),
				validRecord("gamma"),
				validRecord("delta"),
			}

			var prompts []string
			judge := llm.GenerateFunc(func(_ context.Context, prompt string, _ []llm.Turn) (string, error) {
				prompts = append(prompts, prompt)
				return "1. Similarity score (1-10): 7\n2. Key differences: few\n3. Common themes: self-knowledge", nil
			})

			evaluator := experiment.NewEvaluator(judge, nil)
			judgments := evaluator.Evaluate(context.Background(), records)

			// C(4,2) = 6 pairs.
			Expect(judgments).To(HaveLen(6))
			Expect(prompts).To(HaveLen(6))

			for pair, judgment := range judgments {
				Expect(pair.A < pair.B).To(BeTrue())
				Expect(judgment.Score).To(Equal(7))
				Expect(judgment.Themes).To(Equal("self-knowledge"))
				Expect(judgment.Verdict).To(ContainSubstring("Similarity score"))
			}
		})

		It("skips failure sentinels entirely", func() {
			records := []experiment.Record{
				validRecord("alpha"),
				failedRecord("broken"),
				validRecord("beta"),
			}

			judge := llm.GenerateFunc(func(_ context.Context, prompt string, _ []llm.Turn) (string, error) {
				Expect(prompt).NotTo(ContainSubstring("broken"))
				return "Similarity score: 5", nil
			})

			evaluator := experiment.NewEvaluator(judge, nil)
			judgments := evaluator.Evaluate(context.Background(), records)

			Expect(judgments).To(HaveLen(1))
			_, ok := judgments[experiment.NewPair("alpha", "beta")]
			Expect(ok).To(BeTrue())
		})

		It("produces no judgments when fewer than two records are valid", func() {
			evaluator := experiment.NewEvaluator(llm.GenerateFunc(
				func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
					Fail("judge should not be called")
					return "", nil
				}), nil)

			judgments := evaluator.Evaluate(context.Background(), []experiment.Record{
				validRecord("only"),
				failedRecord("broken"),
			})
			Expect(judgments).To(BeEmpty())
		})
	})

	Describe("judge failure isolation", func() {
		It("records the failure on the affected pair and judges the rest", func() {
			records := []experiment.Record{
				validRecord("alpha"),
				validRecord("beta"),
				validRecord("gamma"),
			}

			judge := llm.GenerateFunc(func(_ context.Context, prompt string, _ []llm.Turn) (string, error) {
				if strings.Contains(prompt, "alpha") && strings.Contains(prompt, "gamma") {
					return "", llm.ErrBackendUnavailable
				}
				return "Similarity score: 9", nil
			})

			evaluator := experiment.NewEvaluator(judge, nil)
			judgments := evaluator.Evaluate(context.Background(), records)

			Expect(judgments).To(HaveLen(3))

			bad := judgments[experiment.NewPair("alpha", "gamma")]
			Expect(bad.Err).To(MatchError(llm.ErrBackendUnavailable))
			Expect(bad.Failure).NotTo(BeEmpty())
			Expect(bad.Score).To(BeZero())

			good := judgments[experiment.NewPair("alpha", "beta")]
			Expect(good.Err).To(BeNil())
			Expect(good.Score).To(Equal(9))
		})
	})

	Describe("cancellation", func() {
		It("returns the judgments made before cancellation", func() {
			records := []experiment.Record{
				validRecord("alpha"),
				validRecord("beta"),
				validRecord("gamma"),
			}

			ctx, cancel := context.WithCancel(context.Background())
			calls := 0
			judge := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
				calls++
				if calls == 1 {
					cancel()
				}
				return "Similarity score: 4", nil
			})

			evaluator := experiment.NewEvaluator(judge, nil)
			judgments := evaluator.Evaluate(ctx, records)

			Expect(calls).To(Equal(1))
			Expect(judgments).To(HaveLen(1))
		})
	})

	Describe("verdict parsing", func() {
		It("clamps out-of-range scores into 1-10", func() {
			judge := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
				return "similarity score: 37", nil
			})
			evaluator := experiment.NewEvaluator(judge, nil)

			judgments := evaluator.Evaluate(context.Background(), []experiment.Record{
				validRecord("alpha"), validRecord("beta"),
			})
			Expect(judgments[experiment.NewPair("alpha", "beta")].Score).To(Equal(10))
		})

		It("leaves the score zero when the verdict has none", func() {
			judge := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
				return "these answers feel fairly close in spirit", nil
			})
			evaluator := experiment.NewEvaluator(judge, nil)

			judgments := evaluator.Evaluate(context.Background(), []experiment.Record{
				validRecord("alpha"), validRecord("beta"),
			})

			judgment := judgments[experiment.NewPair("alpha", "beta")]
			Expect(judgment.Score).To(BeZero())
			Expect(judgment.Verdict).NotTo(BeEmpty())
		})
	})
})
