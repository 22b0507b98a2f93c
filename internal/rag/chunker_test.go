package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	t.Run("Removes page markers", func(t *testing.T) {
		text := "First part.\n--- Page 2 ---\nSecond part."
		cleaned := CleanText(text)
		assert.NotContains(t, cleaned, "--- Page")
	})

	t.Run("Collapses repeated spaces", func(t *testing.T) {
		cleaned := CleanText("too    many   spaces")
		assert.Equal(t, "too many spaces", cleaned)
	})

	t.Run("Fixes missing space after period", func(t *testing.T) {
		cleaned := CleanText("End of sentence.Next sentence starts.")
		assert.Contains(t, cleaned, "sentence. Next")
	})

	t.Run("Fixes lowercase-uppercase joins", func(t *testing.T) {
		cleaned := CleanText("brokenWord")
		assert.Equal(t, "broken Word", cleaned)
	})

	t.Run("Preserves paragraph breaks", func(t *testing.T) {
		cleaned := CleanText("First paragraph.\n\n\n\nSecond paragraph.")
		assert.Equal(t, "First paragraph.\n\nSecond paragraph.", cleaned)
	})
}

func TestChunkerEdgeCases(t *testing.T) {
	chunker := NewChunker(800, 100, 50)

	t.Run("Empty input returns empty list", func(t *testing.T) {
		assert.Empty(t, chunker.Chunk(""))
	})

	t.Run("Input below min size is discarded", func(t *testing.T) {
		assert.Empty(t, chunker.Chunk("too short"))
	})

	t.Run("Input between min and max returns single chunk", func(t *testing.T) {
		text := strings.Repeat("Pregnancy nutrition matters. ", 10)
		chunks := chunker.Chunk(text)
		require.Len(t, chunks, 1)
		assert.Equal(t, CleanText(text), chunks[0])
	})
}

func TestChunkerSizeBounds(t *testing.T) {
	chunker := NewChunker(800, 100, 50)

	// Single 2000-char paragraph of 20 sentences, forcing sentence-level
	// splitting with trailing-sentence overlap.
	sentence := "This sentence is precisely about prenatal care and healthy habits. " // ~68 chars
	text := strings.TrimSpace(strings.Repeat(sentence, 30))

	chunks := chunker.Chunk(text)
	require.Greater(t, len(chunks), 1, "long paragraph must be split")

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 800+100, "chunk %d exceeds max plus overlap slack", i)
		assert.GreaterOrEqual(t, len(chunk), 50, "chunk %d below min size", i)
	}
}

func TestChunkerParagraphAccumulation(t *testing.T) {
	chunker := NewChunker(300, 100, 50)

	para1 := strings.Repeat("Alpha paragraph sentence. ", 5) // ~130 chars
	para2 := strings.Repeat("Beta paragraph sentence. ", 5)
	para3 := strings.Repeat("Gamma paragraph sentence. ", 5)
	text := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2) + "\n\n" + strings.TrimSpace(para3)

	chunks := chunker.Chunk(text)
	require.Greater(t, len(chunks), 1)

	// Paragraphs are never torn apart when they individually fit
	for _, chunk := range chunks {
		for _, para := range strings.Split(chunk, "\n\n") {
			assert.True(t,
				strings.HasPrefix(para, "Alpha") || strings.HasPrefix(para, "Beta") || strings.HasPrefix(para, "Gamma"),
				"paragraph fragment found: %q", para[:min(40, len(para))])
		}
	}
}

func TestChunkerOverlapCarry(t *testing.T) {
	// Overlap large enough to carry a whole paragraph forward
	chunker := NewChunker(200, 120, 20)

	short := "Short overlap paragraph here."
	long1 := strings.Repeat("Filler one. ", 12)
	long2 := strings.Repeat("Filler two. ", 12)
	text := strings.TrimSpace(long1) + "\n\n" + short + "\n\n" + strings.TrimSpace(long2)

	chunks := chunker.Chunk(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	// The short paragraph must appear in consecutive chunks as overlap
	occurrences := 0
	for _, chunk := range chunks {
		if strings.Contains(chunk, short) {
			occurrences++
		}
	}
	assert.GreaterOrEqual(t, occurrences, 2, "overlap paragraph should be carried forward")
}

func TestChunkerIdempotence(t *testing.T) {
	chunker := NewChunker(800, 100, 50)

	text := strings.TrimSpace(strings.Repeat("Iron supplements support healthy blood volume during pregnancy. ", 25))
	chunks := chunker.Chunk(text)
	require.NotEmpty(t, chunks)

	// Re-chunking any valid chunk returns it unchanged as one element
	for i, chunk := range chunks {
		rechunked := chunker.Chunk(chunk)
		require.Len(t, rechunked, 1, "chunk %d should survive re-chunking intact", i)
		assert.Equal(t, chunk, rechunked[0])
	}
}

func TestGetChunkStats(t *testing.T) {
	t.Run("Empty input", func(t *testing.T) {
		stats := GetChunkStats(nil)
		assert.Equal(t, 0, stats.Count)
	})

	t.Run("Computes lengths", func(t *testing.T) {
		stats := GetChunkStats([]string{"abcd", "ab", "abcdef"})
		assert.Equal(t, 3, stats.Count)
		assert.Equal(t, 2, stats.MinLength)
		assert.Equal(t, 6, stats.MaxLength)
		assert.Equal(t, 12, stats.TotalLength)
		assert.Equal(t, 4, stats.AvgLength)
	})
}
