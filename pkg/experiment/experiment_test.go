package experiment_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/contexts"
	"github.com/rhoadesScholar/llm-experiments/pkg/distill"
	"github.com/rhoadesScholar/llm-experiments/pkg/eventstream"
	"github.com/rhoadesScholar/llm-experiments/pkg/experiment"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
	"github.com/rhoadesScholar/llm-experiments/pkg/llm/stub"
)

// capturePublisher records every event it receives.
type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.RecordCompletedEvent
}

func (p *capturePublisher) PublishRecord(_ context.Context, event *eventstream.RecordCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRecordEvent
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var _ = Describe("Orchestrator", func() {
	Describe("a full run against the echoing stub", func() {
		It("converges immediately and produces a complete record per context", func() {
			client := stub.NewClient(stub.WithEcho(0))
			publisher := &capturePublisher{}

			orch := experiment.NewOrchestrator(client, experiment.Config{
				Mode:                 distill.ModeTelephone,
				MaxIterations:        3,
				ConvergenceThreshold: 0.95,
				Publisher:            publisher,
			})

			all := contexts.All()
			records := orch.Run(context.Background(), all)
			Expect(records).To(HaveLen(len(all)))

			for i, record := range records {
				Expect(record.Failed()).To(BeFalse())
				Expect(record.Context.Name).To(Equal(all[i].Name))
				Expect(record.SeedQuestion).To(Equal(contexts.SeedQuestion))

				// An echoing backend converges on the first rewrite.
				Expect(record.DistilledQuestion).NotTo(BeNil())
				Expect(record.DistilledQuestion.Converged).To(BeTrue())
				Expect(record.DistilledQuestion.Iterations).To(Equal(1))

				Expect(record.ModelAnswer).NotTo(BeEmpty())
				Expect(record.DistilledAnswer).NotTo(BeNil())
				Expect(record.DistilledAnswer.Converged).To(BeTrue())
			}

			Expect(publisher.events).To(HaveLen(len(all)))
			for _, event := range publisher.events {
				Expect(event.RunID).To(Equal(orch.RunID()))
				Expect(event.EventType).To(Equal(eventstream.EventTypeRecordCompleted))
				Expect(event.Failed).To(BeFalse())
			}
		})

		It("frames the seed question with the context prompt", func() {
			client := stub.NewClient(stub.WithEcho(0))
			orch := experiment.NewOrchestrator(client, experiment.Config{
				Mode: distill.ModeTelephone,
			})

			cc, err := contexts.ByName("ai_assistant_negative")
			Expect(err).NotTo(HaveOccurred())

			records := orch.Run(context.Background(), []contexts.Context{cc})
			Expect(records).To(HaveLen(1))

			// The framed question is the distillation seed; the echoed
			// candidate keeps it verbatim.
			Expect(records[0].DistilledQuestion.Original).To(ContainSubstring(cc.PromptText))
			Expect(records[0].DistilledQuestion.Original).To(ContainSubstring(contexts.SeedQuestion))
		})
	})

	Describe("partial failure isolation", func() {
		It("records a sentinel for the failing context and continues", func() {
			all := contexts.All()
			failAt := all[2].Name

			client := llm.GenerateFunc(func(_ context.Context, prompt string, _ []llm.Turn) (string, error) {
				if strings.Contains(prompt, all[2].PromptText) {
					return "", llm.ErrBackendUnavailable
				}
				return prompt, nil
			})

			orch := experiment.NewOrchestrator(client, experiment.Config{
				Mode:          distill.ModeTelephone,
				MaxIterations: 2,
			})

			records := orch.Run(context.Background(), all)
			Expect(records).To(HaveLen(len(all)))

			failed := 0
			for _, record := range records {
				if record.Context.Name == failAt {
					failed++
					Expect(record.Failed()).To(BeTrue())
					Expect(record.Failure).NotTo(BeEmpty())
					Expect(errors.Is(record.Err, experiment.ErrContextPipeline)).To(BeTrue())
					Expect(errors.Is(record.Err, llm.ErrBackendUnavailable)).To(BeTrue())
				} else {
					Expect(record.Failed()).To(BeFalse())
				}
			}
			Expect(failed).To(Equal(1))
		})

		It("marks the failure stage when answer generation fails", func() {
			client := llm.GenerateFunc(func(_ context.Context, prompt string, _ []llm.Turn) (string, error) {
				before, after, found := strings.Cut(prompt, "\n\n")
				if found && strings.Contains(strings.ToLower(before), "condense") {
					return after, nil
				}
				return "", llm.ErrInputTooLong
			})

			orch := experiment.NewOrchestrator(client, experiment.Config{MaxIterations: 2})

			cc, err := contexts.ByName("isolation")
			Expect(err).NotTo(HaveOccurred())

			records := orch.Run(context.Background(), []contexts.Context{cc})
			Expect(records).To(HaveLen(1))
			Expect(records[0].Failed()).To(BeTrue())
			Expect(records[0].Err.Error()).To(ContainSubstring("generating answer"))
			// The distilled question survived the later failure.
			Expect(records[0].DistilledQuestion).NotTo(BeNil())
		})
	})

	Describe("cancellation", func() {
		It("stops at the context boundary and keeps completed records", func() {
			ctx, cancel := context.WithCancel(context.Background())

			completed := 0
			client := llm.GenerateFunc(func(_ context.Context, prompt string, _ []llm.Turn) (string, error) {
				return prompt, nil
			})

			all := contexts.All()
			orch := experiment.NewOrchestrator(client, experiment.Config{
				MaxIterations: 1,
				Publisher: publisherFunc(func() {
					completed++
					if completed == 2 {
						cancel()
					}
				}),
			})

			records := orch.Run(ctx, all)
			Expect(records).To(HaveLen(2))
			for _, record := range records {
				Expect(record.Failed()).To(BeFalse())
			}
		})
	})

	Describe("run identity", func() {
		It("generates a fresh run ID when none is configured", func() {
			orch := experiment.NewOrchestrator(stub.NewClient(), experiment.Config{})
			other := experiment.NewOrchestrator(stub.NewClient(), experiment.Config{})
			Expect(orch.RunID()).NotTo(BeEmpty())
			Expect(orch.RunID()).NotTo(Equal(other.RunID()))
		})

		It("keeps a configured run ID", func() {
			orch := experiment.NewOrchestrator(stub.NewClient(), experiment.Config{RunID: "run-42"})
			Expect(orch.RunID()).To(Equal("run-42"))
		})
	})
})

// publisherFunc adapts a callback to the Publisher interface for tests.
type publisherFunc func()

func (f publisherFunc) PublishRecord(_ context.Context, event *eventstream.RecordCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRecordEvent
	}
	f()
	return nil
}

func (f publisherFunc) Close() error { return nil }
