package distill_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/distill"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
)

// scriptedClient returns the scripted responses in order and records the
// history passed on each call.
type scriptedClient struct {
	responses []string
	calls     int
	histories [][]llm.Turn
}

func (s *scriptedClient) Generate(_ context.Context, _ string, history []llm.Turn) (string, error) {
	recorded := make([]llm.Turn, len(history))
	copy(recorded, history)
	s.histories = append(s.histories, recorded)

	if s.calls >= len(s.responses) {
		return s.responses[len(s.responses)-1], nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

var _ = Describe("ParseMode", func() {
	It("accepts both history disciplines", func() {
		mode, err := distill.ParseMode("telephone")
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(distill.ModeTelephone))

		mode, err = distill.ParseMode("with_history")
		Expect(err).NotTo(HaveOccurred())
		Expect(mode).To(Equal(distill.ModeWithHistory))
	})

	It("rejects unknown modes", func() {
		_, err := distill.ParseMode("forgetful")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Engine", func() {
	Describe("convergence", func() {
		It("stops on the first candidate meeting the threshold", func() {
			client := &scriptedClient{responses: []string{
				"a completely different rewrite of the text",
				"a completely different rewrite of the texts",
				"should never be requested",
			}}
			engine := distill.NewEngine(client, distill.Config{
				MaxIterations:        5,
				ConvergenceThreshold: 0.9,
			})

			result, err := engine.Distill(context.Background(), "original seed text goes here", distill.ModeTelephone)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Converged).To(BeTrue())
			Expect(result.Iterations).To(Equal(2))
			Expect(result.Candidates).To(HaveLen(2))
			Expect(result.Final()).To(Equal("a completely different rewrite of the texts"))
		})

		It("converges on the first iteration when the candidate echoes the seed", func() {
			client := &scriptedClient{responses: []string{"same text"}}
			engine := distill.NewEngine(client, distill.Config{})

			result, err := engine.Distill(context.Background(), "same text", distill.ModeTelephone)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Converged).To(BeTrue())
			Expect(result.Iterations).To(Equal(1))
		})

		It("stops at the iteration cap without converging", func() {
			calls := 0
			client := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
				calls++
				// Every candidate is wildly different from its predecessor.
				return fmt.Sprintf("%s-%d", strings.Repeat("x", calls*7), calls), nil
			})
			engine := distill.NewEngine(client, distill.Config{MaxIterations: 3})

			result, err := engine.Distill(context.Background(), "seed", distill.ModeTelephone)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Converged).To(BeFalse())
			Expect(result.Iterations).To(Equal(3))
			Expect(calls).To(Equal(3))
		})

		It("honors max iterations of one", func() {
			client := &scriptedClient{responses: []string{"totally unrelated candidate text"}}
			engine := distill.NewEngine(client, distill.Config{MaxIterations: 1})

			result, err := engine.Distill(context.Background(), "seed", distill.ModeTelephone)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Iterations).To(Equal(1))
			Expect(result.Converged).To(BeFalse())
		})
	})

	Describe("history discipline", func() {
		// Candidates are chosen so no pair converges before the cap.
		responses := []string{
			"first candidate rewrite",
			"zz qq ww ee rr tt yy uu",
			"mmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmm",
			"1",
		}

		It("passes no history on the first iteration and one turn afterwards in telephone mode", func() {
			client := &scriptedClient{responses: responses}
			engine := distill.NewEngine(client, distill.Config{MaxIterations: 4})

			_, err := engine.Distill(context.Background(), "seed", distill.ModeTelephone)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.histories).To(HaveLen(4))

			Expect(client.histories[0]).To(BeEmpty())
			for k := 1; k < 4; k++ {
				Expect(client.histories[k]).To(HaveLen(1))
				Expect(client.histories[k][0].Role).To(Equal(llm.RoleModel))
				Expect(client.histories[k][0].Text).To(Equal(responses[k-1]))
			}
		})

		It("passes all prior turns in original order in with_history mode", func() {
			client := &scriptedClient{responses: responses}
			engine := distill.NewEngine(client, distill.Config{MaxIterations: 4})

			_, err := engine.Distill(context.Background(), "seed", distill.ModeWithHistory)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.histories).To(HaveLen(4))

			for k := 0; k < 4; k++ {
				Expect(client.histories[k]).To(HaveLen(k))
				for i, turn := range client.histories[k] {
					Expect(turn.Text).To(Equal(responses[i]))
					Expect(turn.Index).To(Equal(i))
				}
			}
		})
	})

	Describe("failure handling", func() {
		It("returns the partial result alongside an inference error", func() {
			calls := 0
			client := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
				calls++
				if calls == 2 {
					return "", llm.ErrBackendUnavailable
				}
				return fmt.Sprintf("candidate number %d with diverging text", calls), nil
			})
			engine := distill.NewEngine(client, distill.Config{MaxIterations: 5})

			result, err := engine.Distill(context.Background(), "seed", distill.ModeTelephone)
			Expect(err).To(MatchError(llm.ErrBackendUnavailable))
			Expect(result).NotTo(BeNil())
			Expect(result.Candidates).To(HaveLen(1))
			Expect(result.Iterations).To(Equal(1))
			Expect(result.Converged).To(BeFalse())
		})

		It("surfaces input-too-long errors unwrapped", func() {
			client := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
				return "", llm.ErrInputTooLong
			})
			engine := distill.NewEngine(client, distill.Config{})

			_, err := engine.Distill(context.Background(), "seed", distill.ModeTelephone)
			Expect(errors.Is(err, llm.ErrInputTooLong)).To(BeTrue())
		})

		It("stops before the next iteration on cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())

			calls := 0
			client := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
				calls++
				cancel()
				return "wildly different candidate every time", nil
			})
			engine := distill.NewEngine(client, distill.Config{MaxIterations: 5})

			result, err := engine.Distill(ctx, "seed", distill.ModeTelephone)
			Expect(err).To(MatchError(context.Canceled))
			Expect(calls).To(Equal(1))
			Expect(result.Candidates).To(HaveLen(1))
		})
	})

	Describe("Final", func() {
		It("falls back to the original when no iteration completed", func() {
			r := &distill.Result{Original: "untouched"}
			Expect(r.Final()).To(Equal("untouched"))
		})
	})
})
