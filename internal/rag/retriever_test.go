package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder is a deterministic bag-of-words embedder: each word
// increments one dimension chosen by hashing, then the vector is
// normalized. Texts sharing words land close together.
type fakeEmbedder struct {
	dim  int
	fail bool
}

func (f *fakeEmbedder) embed(text string) []float32 {
	v := make([]float32, f.dim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?")
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(f.dim)]++
	}
	return NormalizeVector(v)
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding service unavailable")
	}
	return f.embed(text), nil
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding service unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.embed(t)
	}
	return out, nil
}

func seedIndex(t *testing.T, emb *fakeEmbedder, chunks []string) *VectorIndex {
	t.Helper()
	idx := NewVectorIndex(emb.dim)
	vectors, err := emb.EmbedTexts(context.Background(), chunks)
	require.NoError(t, err)
	ids := make([]int64, len(chunks))
	for i := range ids {
		ids[i] = int64(i)
	}
	require.NoError(t, idx.Add(vectors, ids, chunks))
	return idx
}

func TestRetrieveFolicAcidScenario(t *testing.T) {
	emb := &fakeEmbedder{dim: 64}
	idx := seedIndex(t, emb, []string{
		"Folic acid is important.",
		"Exercise moderately.",
		"Stay hydrated.",
	})
	retriever := NewRetriever(idx, emb, NewContextBudgeter(HeuristicCounter{}, 3000, 500))

	ranked := retriever.Retrieve(context.Background(), "vitamins folic acid", 1, 0.1)

	require.Len(t, ranked, 1)
	assert.Equal(t, "Folic acid is important.", ranked[0].Text)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	emb := &fakeEmbedder{dim: 16}
	idx := NewVectorIndex(16)
	retriever := NewRetriever(idx, emb, NewContextBudgeter(HeuristicCounter{}, 3000, 500))

	ranked := retriever.Retrieve(context.Background(), "anything at all", 3, 0.1)
	assert.Empty(t, ranked)

	contextText := retriever.FindRelevantContext(context.Background(), "anything at all", 3, 0.1, "prompt")
	assert.Equal(t, "", contextText)
}

func TestRetrieveBestMatchFallback(t *testing.T) {
	emb := &fakeEmbedder{dim: 64}
	idx := seedIndex(t, emb, []string{
		"Folic acid is important.",
		"Exercise moderately.",
	})
	retriever := NewRetriever(idx, emb, NewContextBudgeter(HeuristicCounter{}, 3000, 500))

	// Impossible threshold filters everything; the single best raw
	// result is kept so non-empty indexes never return nothing
	ranked := retriever.Retrieve(context.Background(), "folic acid", 2, 1.5)
	require.Len(t, ranked, 1)
	assert.Equal(t, "Folic acid is important.", ranked[0].Text)
}

func TestRetrieveKeywordFallback(t *testing.T) {
	emb := &fakeEmbedder{dim: 64}
	idx := seedIndex(t, emb, []string{
		"Folic acid reduces the risk of neural tube defects. Folic supplements are advised.",
		"Moderate exercise keeps the body healthy.",
		"Hydration matters every single day.",
	})

	t.Run("Used when embedding fails", func(t *testing.T) {
		failing := &fakeEmbedder{dim: 64, fail: true}
		retriever := NewRetriever(idx, failing, NewContextBudgeter(HeuristicCounter{}, 3000, 500))

		ranked := retriever.Retrieve(context.Background(), "folic acid supplements", 2, 0.1)
		require.NotEmpty(t, ranked)
		assert.Contains(t, ranked[0].Text, "Folic acid")
	})

	t.Run("Ignores words of three characters or fewer", func(t *testing.T) {
		failing := &fakeEmbedder{dim: 64, fail: true}
		retriever := NewRetriever(idx, failing, NewContextBudgeter(HeuristicCounter{}, 3000, 500))

		// "the" and "of" are too short to count
		ranked := retriever.Retrieve(context.Background(), "the of a", 2, 0.1)
		assert.Empty(t, ranked)
	})

	t.Run("Caps results at twice topK", func(t *testing.T) {
		many := make([]string, 10)
		for i := range many {
			many[i] = "hydration hydration hydration is key number " + strings.Repeat("x", i+1)
		}
		bigIdx := seedIndex(t, emb, many)
		failing := &fakeEmbedder{dim: 64, fail: true}
		retriever := NewRetriever(bigIdx, failing, NewContextBudgeter(HeuristicCounter{}, 3000, 500))

		ranked := retriever.Retrieve(context.Background(), "hydration", 2, 0.1)
		assert.Len(t, ranked, 4)
	})

	t.Run("Stable order for tied scores", func(t *testing.T) {
		tied := seedIndex(t, emb, []string{
			"hydration first chunk",
			"hydration second chunk",
		})
		failing := &fakeEmbedder{dim: 64, fail: true}
		retriever := NewRetriever(tied, failing, NewContextBudgeter(HeuristicCounter{}, 3000, 500))

		ranked := retriever.Retrieve(context.Background(), "hydration", 2, 0.1)
		require.Len(t, ranked, 2)
		assert.Equal(t, "hydration first chunk", ranked[0].Text)
		assert.Equal(t, "hydration second chunk", ranked[1].Text)
	})
}

func TestFindRelevantContextAssembles(t *testing.T) {
	emb := &fakeEmbedder{dim: 64}
	idx := seedIndex(t, emb, []string{
		"Folic acid is important.",
		"Stay hydrated.",
	})
	retriever := NewRetriever(idx, emb, NewContextBudgeter(HeuristicCounter{}, 3000, 500))

	contextText := retriever.FindRelevantContext(context.Background(), "folic acid", 2, 0.0, "prompt")
	assert.Contains(t, contextText, "Folic acid is important.")
}
