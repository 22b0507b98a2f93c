package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicCounter(t *testing.T) {
	c := HeuristicCounter{}
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 25, c.Count(strings.Repeat("a", 100)))
}

func TestAssembleNegativeBudget(t *testing.T) {
	// System prompt and query alone blow the budget
	budgeter := NewContextBudgeter(HeuristicCounter{}, 100, 500)

	long := strings.Repeat("Folic acid guidance sentence. ", 40)
	result := budgeter.Assemble([]string{long, "second chunk"}, "query", "system prompt")

	require.NotEmpty(t, result, "output must be non-empty while data exists")
	assert.Equal(t, long[:500], result)
}

func TestAssembleEmptyChunks(t *testing.T) {
	budgeter := NewContextBudgeter(HeuristicCounter{}, 3000, 500)
	assert.Equal(t, "", budgeter.Assemble(nil, "query", "prompt"))
}

func TestAssembleGreedyPacking(t *testing.T) {
	budgeter := NewContextBudgeter(HeuristicCounter{}, 3000, 500)

	chunks := []string{
		"First relevant chunk about folic acid.",
		"Second chunk about hydration.",
		"Third chunk about moderate exercise.",
	}
	result := budgeter.Assemble(chunks, "query", "prompt")

	// All three fit comfortably, separated by blank lines
	parts := strings.Split(result, "\n\n")
	require.Len(t, parts, 3)
	assert.Equal(t, chunks[0], parts[0])
	assert.Equal(t, chunks[2], parts[2])
}

func TestAssembleSoftTokenBound(t *testing.T) {
	counter := HeuristicCounter{}
	maxTotal := 700
	reserve := 500
	budgeter := NewContextBudgeter(counter, maxTotal, reserve)

	query := "short query"
	prompt := "short prompt"
	available := maxTotal - counter.Count(prompt) - counter.Count(query) - reserve
	require.Greater(t, available, 0)

	chunks := []string{
		strings.Repeat("Sentence about prenatal vitamins. ", 30),
		strings.Repeat("Another long chunk entirely. ", 30),
	}
	result := budgeter.Assemble(chunks, query, prompt)

	// Soft bound: never exceeds the budget by more than one chunk's
	// worth of estimation slack
	assert.LessOrEqual(t, counter.Count(result), available+counter.Count(chunks[0]))
}

func TestAssemblePartialChunkSentenceBackoff(t *testing.T) {
	counter := HeuristicCounter{}
	budgeter := NewContextBudgeter(counter, 1000, 500)

	query := strings.Repeat("q", 400)   // 100 tokens
	prompt := strings.Repeat("p", 400)  // 100 tokens
	// available = 1000 - 100 - 100 - 500 = 300 tokens = 1200 chars

	first := strings.Repeat("Fits fully. ", 50) // ~600 chars = 150 tokens
	second := strings.Repeat("This one does not fit in whole. ", 60) // ~1920 chars

	result := budgeter.Assemble([]string{strings.TrimSpace(first), strings.TrimSpace(second)}, query, prompt)

	parts := strings.Split(result, "\n\n")
	require.Len(t, parts, 2, "second chunk should be partially included")
	assert.Less(t, len(parts[1]), len(second), "partial chunk must be truncated")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(parts[1]), "."),
		"partial chunk should end at a sentence boundary, got tail %q", parts[1][len(parts[1])-20:])
}

func TestAssembleStopsWhenRemainderTooSmall(t *testing.T) {
	counter := HeuristicCounter{}
	budgeter := NewContextBudgeter(counter, 1000, 500)

	query := strings.Repeat("q", 400)
	prompt := strings.Repeat("p", 400)
	// available = 300 tokens

	first := strings.Repeat("Nearly fills the budget alone. ", 36) // ~1116 chars = 279 tokens
	second := "This chunk never appears."

	result := budgeter.Assemble([]string{strings.TrimSpace(first), second}, query, prompt)
	assert.NotContains(t, result, second, "remaining budget of 21 tokens is below the 50-token floor")
}
