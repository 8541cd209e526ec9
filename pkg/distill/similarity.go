package distill

import (
	"context"
	"math"
	"strings"

	"github.com/rhoadesScholar/llm-experiments/pkg/embeddings"
)

// Metric scores the similarity of two texts in [0, 1]. Implementations must
// be symmetric and reflexive (Metric(x, x) = 1).
type Metric func(a, b string) float64

// CharSimilarity averages a length ratio with a positional character-match
// ratio (case-insensitive). Cheap, dependency-free, and good enough to detect
// a model returning near-identical text across iterations.
func CharSimilarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	la, lb := strings.ToLower(a), strings.ToLower(b)
	longest := max(len(la), len(lb))

	common := 0
	for i := 0; i < min(len(la), len(lb)); i++ {
		if la[i] == lb[i] {
			common++
		}
	}

	lengthRatio := float64(min(len(la), len(lb))) / float64(longest)
	charRatio := float64(common) / float64(longest)

	return (lengthRatio + charRatio) / 2
}

// Levenshtein scores similarity as 1 - d/maxLen where d is the edit distance.
func Levenshtein(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	longest := max(len(ra), len(rb))
	return 1 - float64(prev[len(rb)])/float64(longest)
}

// EmbeddingCosine builds a Metric from a text embedder: cosine similarity of
// the two embedding vectors, clamped to [0, 1]. Embedding failures score 0 so
// a flaky embedder can never fabricate convergence.
func EmbeddingCosine(ctx context.Context, embedder embeddings.Embedder) Metric {
	return func(a, b string) float64 {
		if a == b {
			return 1
		}

		va, err := embedder.Embed(ctx, a)
		if err != nil {
			return 0
		}
		vb, err := embedder.Embed(ctx, b)
		if err != nil {
			return 0
		}

		return cosine(va, vb)
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
