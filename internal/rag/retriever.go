package rag

import (
	"context"
	"sort"
	"strings"

	"maternal-care-platform/internal/logger"
)

// QueryEmbedder produces a single embedding for a query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever turns a user query into relevant chunks, preferring vector
// search and degrading to keyword matching when embeddings are
// unavailable.
type Retriever struct {
	index    *VectorIndex
	embedder QueryEmbedder
	budgeter *ContextBudgeter
}

// RankedChunk is one retrieval hit with its similarity score.
type RankedChunk struct {
	ID    int64   `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

func NewRetriever(index *VectorIndex, embedder QueryEmbedder, budgeter *ContextBudgeter) *Retriever {
	return &Retriever{
		index:    index,
		embedder: embedder,
		budgeter: budgeter,
	}
}

// Retrieve returns up to topK chunks relevant to the query, scored by
// cosine similarity and filtered by threshold. When the filter removes
// everything but at least one raw result exists, the single best match
// is kept so callers never get an empty result from a non-empty index.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) []RankedChunk {
	ntotal := r.index.Ntotal()
	if ntotal == 0 {
		return r.keywordFallback(query, topK)
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed, using keyword fallback", "error", err)
		return r.keywordFallback(query, topK)
	}
	NormalizeVector(vector)

	// Over-fetch 3x so threshold filtering rarely needs a second pass
	k := topK * 3
	if k > ntotal {
		k = ntotal
	}

	results, err := r.index.Search(vector, k)
	if err != nil {
		logger.Warn("Vector search failed, using keyword fallback", "error", err)
		return r.keywordFallback(query, topK)
	}

	var ranked []RankedChunk
	var best *RankedChunk
	for _, res := range results {
		if res.ID < 0 {
			continue
		}
		text, ok := r.index.ChunkByID(res.ID)
		if !ok {
			continue
		}
		rc := RankedChunk{ID: res.ID, Text: text, Score: float64(res.Score)}
		if best == nil {
			best = &rc
		}
		if rc.Score >= threshold {
			ranked = append(ranked, rc)
		}
	}

	// Threshold removed everything; keep the single best match
	if len(ranked) == 0 && best != nil {
		ranked = append(ranked, *best)
	}

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	return ranked
}

// FindRelevantContext retrieves chunks for the query and assembles them
// into a budgeted context string.
func (r *Retriever) FindRelevantContext(ctx context.Context, query string, topK int, threshold float64, systemPrompt string) string {
	ranked := r.Retrieve(ctx, query, topK, threshold)
	if len(ranked) == 0 {
		return ""
	}

	chunks := make([]string, len(ranked))
	for i, rc := range ranked {
		chunks[i] = rc.Text
	}

	return r.budgeter.Assemble(chunks, query, systemPrompt)
}

// keywordFallback scores every stored chunk by summed case-insensitive
// substring counts of the query's words longer than 3 characters,
// keeping up to topK*2 nonzero-scoring chunks. Ties preserve original
// chunk order.
func (r *Retriever) keywordFallback(query string, topK int) []RankedChunk {
	chunks := r.index.Chunks()
	if len(chunks) == 0 {
		return nil
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	var scored []RankedChunk
	for i, chunk := range chunks {
		lower := strings.ToLower(chunk)
		score := 0
		for _, w := range words {
			score += strings.Count(lower, w)
		}
		if score > 0 {
			scored = append(scored, RankedChunk{ID: int64(i), Text: chunk, Score: float64(score)})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	limit := topK * 2
	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored
}
