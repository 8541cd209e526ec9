package distill_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rhoadesScholar/llm-experiments/pkg/distill"
)

var _ = Describe("CharSimilarity", func() {
	It("scores identical strings as 1", func() {
		Expect(distill.CharSimilarity("hello world", "hello world")).To(Equal(1.0))
	})

	It("scores two empty strings as 1", func() {
		Expect(distill.CharSimilarity("", "")).To(Equal(1.0))
	})

	It("scores one empty string as 0", func() {
		Expect(distill.CharSimilarity("something", "")).To(BeZero())
		Expect(distill.CharSimilarity("", "something")).To(BeZero())
	})

	It("ignores case", func() {
		Expect(distill.CharSimilarity("Hello World", "hello world")).To(Equal(1.0))
	})

	It("scores near-identical strings above the default threshold", func() {
		a := "the model condensed this sentence carefully"
		b := "the model condensed this sentence carefully!"
		Expect(distill.CharSimilarity(a, b)).To(BeNumerically(">=", distill.DefaultConvergenceThreshold))
	})

	It("scores disjoint strings low", func() {
		Expect(distill.CharSimilarity("aaaa", "zzzzzzzzzzzzzzzz")).To(BeNumerically("<", 0.2))
	})
})

var _ = Describe("Levenshtein", func() {
	It("scores identical strings as 1", func() {
		Expect(distill.Levenshtein("same", "same")).To(Equal(1.0))
	})

	It("scores a single edit proportionally", func() {
		// One substitution in a ten-character string.
		Expect(distill.Levenshtein("abcdefghij", "abcdefghiX")).To(BeNumerically("~", 0.9, 1e-9))
	})

	It("scores one empty string as 0", func() {
		Expect(distill.Levenshtein("abc", "")).To(BeZero())
	})
})

var _ = Describe("EmbeddingCosine", func() {
	It("short-circuits identical strings without calling the embedder", func() {
		metric := distill.EmbeddingCosine(context.Background(), embedderFunc(
			func(_ context.Context, _ string) ([]float32, error) {
				Fail("embedder must not be called for identical inputs")
				return nil, nil
			}))
		Expect(metric("same", "same")).To(Equal(1.0))
	})

	It("scores orthogonal embeddings as 0", func() {
		vectors := map[string][]float32{
			"a": {1, 0},
			"b": {0, 1},
		}
		metric := distill.EmbeddingCosine(context.Background(), embedderFunc(
			func(_ context.Context, text string) ([]float32, error) {
				return vectors[text], nil
			}))
		Expect(metric("a", "b")).To(BeZero())
	})

	It("scores parallel embeddings as 1", func() {
		vectors := map[string][]float32{
			"a": {2, 2},
			"b": {4, 4},
		}
		metric := distill.EmbeddingCosine(context.Background(), embedderFunc(
			func(_ context.Context, text string) ([]float32, error) {
				return vectors[text], nil
			}))
		Expect(metric("a", "b")).To(BeNumerically("~", 1.0, 1e-6))
	})

	It("treats embedder failures as non-converged", func() {
		metric := distill.EmbeddingCosine(context.Background(), embedderFunc(
			func(_ context.Context, _ string) ([]float32, error) {
				return nil, errors.New("embedding backend down")
			}))
		Expect(metric("a", "b")).To(BeZero())
	})
})

// embedderFunc adapts a function to the embeddings.Embedder interface.
type embedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

func (f embedderFunc) Close() error { return nil }
