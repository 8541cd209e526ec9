package llm_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/llm"
)

var _ = Describe("WithFallback", func() {
	It("passes successful calls straight through", func() {
		calls := 0
		primary := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			calls++
			return "ok", nil
		})

		client := llm.WithFallback(primary, nil)
		text, err := client.Generate(context.Background(), "hi", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("ok"))
		Expect(calls).To(Equal(1))
	})

	It("retries an unavailable backend exactly once", func() {
		calls := 0
		primary := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			calls++
			if calls == 1 {
				return "", fmt.Errorf("%w: connection refused", llm.ErrBackendUnavailable)
			}
			return "recovered", nil
		})

		client := llm.WithFallback(primary, nil)
		text, err := client.Generate(context.Background(), "hi", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("recovered"))
		Expect(calls).To(Equal(2))
	})

	It("propagates the error when the retry fails and no fallback is set", func() {
		calls := 0
		primary := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			calls++
			return "", llm.ErrBackendUnavailable
		})

		client := llm.WithFallback(primary, nil)
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrBackendUnavailable)).To(BeTrue())
		Expect(calls).To(Equal(2))
	})

	It("hands the call to the fallback after the retry fails", func() {
		primaryCalls := 0
		primary := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			primaryCalls++
			return "", llm.ErrBackendUnavailable
		})

		fallbackCalls := 0
		fallback := llm.GenerateFunc(func(_ context.Context, prompt string, _ []llm.Turn) (string, error) {
			fallbackCalls++
			return "stubbed: " + prompt, nil
		})

		client := llm.WithFallback(primary, fallback)
		text, err := client.Generate(context.Background(), "hi", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("stubbed: hi"))
		Expect(primaryCalls).To(Equal(2))
		Expect(fallbackCalls).To(Equal(1))
	})

	It("surfaces input-too-long immediately without retrying", func() {
		calls := 0
		primary := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			calls++
			return "", llm.ErrInputTooLong
		})

		fallback := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			Fail("fallback must not be consulted for input-too-long")
			return "", nil
		})

		client := llm.WithFallback(primary, fallback)
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, llm.ErrInputTooLong)).To(BeTrue())
		Expect(calls).To(Equal(1))
	})

	It("does not retry or fall back after cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		primary := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			calls++
			cancel()
			return "", fmt.Errorf("%w: %v", llm.ErrBackendUnavailable, context.Canceled)
		})

		fallback := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			Fail("fallback must not be consulted after cancellation")
			return "", nil
		})

		client := llm.WithFallback(primary, fallback)
		_, err := client.Generate(ctx, "hi", nil)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(calls).To(Equal(1))
	})

	It("does not fall back when cancellation interrupts the retry", func() {
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		primary := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return "", llm.ErrBackendUnavailable
		})

		fallback := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			Fail("fallback must not be consulted after cancellation")
			return "", nil
		})

		client := llm.WithFallback(primary, fallback)
		_, err := client.Generate(ctx, "hi", nil)
		Expect(errors.Is(err, llm.ErrBackendUnavailable)).To(BeTrue())
		Expect(calls).To(Equal(2))
	})

	It("does not retry unrelated errors", func() {
		calls := 0
		boom := errors.New("boom")
		primary := llm.GenerateFunc(func(_ context.Context, _ string, _ []llm.Turn) (string, error) {
			calls++
			return "", boom
		})

		client := llm.WithFallback(primary, nil)
		_, err := client.Generate(context.Background(), "hi", nil)
		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(calls).To(Equal(1))
	})
})

var _ = Describe("Conversation", func() {
	It("assigns ordinal indexes on append", func() {
		c := &llm.Conversation{}
		c.Append(llm.RoleUser, "one")
		c.Append(llm.RoleModel, "two")

		turns := c.Turns()
		Expect(turns).To(HaveLen(2))
		Expect(turns[0].Index).To(Equal(0))
		Expect(turns[1].Index).To(Equal(1))
		Expect(c.Len()).To(Equal(2))
	})

	It("returns only the most recent turn from Last", func() {
		c := &llm.Conversation{}
		Expect(c.Last()).To(BeNil())

		c.Append(llm.RoleModel, "one")
		c.Append(llm.RoleModel, "two")

		last := c.Last()
		Expect(last).To(HaveLen(1))
		Expect(last[0].Text).To(Equal("two"))
	})

	It("hands out copies of its turns", func() {
		c := &llm.Conversation{}
		c.Append(llm.RoleModel, "original")

		turns := c.Turns()
		turns[0].Text = "mutated"

		Expect(c.Turns()[0].Text).To(Equal("original"))
	})
})
