package rag

import (
	"regexp"
	"strings"
)

// Chunker splits raw document text into overlapping, size-bounded
// segments, preferring paragraph boundaries and falling back to
// sentence boundaries for oversized paragraphs.
type Chunker struct {
	maxChunkSize int
	overlapSize  int
	minChunkSize int

	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

// NewChunker creates a chunker. Constraints: maxChunkSize > 0,
// 0 <= overlapSize < maxChunkSize, 0 < minChunkSize <= maxChunkSize.
func NewChunker(maxChunkSize, overlapSize, minChunkSize int) *Chunker {
	return &Chunker{
		maxChunkSize:   maxChunkSize,
		overlapSize:    overlapSize,
		minChunkSize:   minChunkSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+\s+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

var (
	pageMarkerRegex  = regexp.MustCompile(`\n--- Page \d+ ---\n`)
	spaceRunRegex    = regexp.MustCompile(`[ \t]+`)
	caseJoinRegex    = regexp.MustCompile(`([a-z])([A-Z])`)
	periodJoinRegex  = regexp.MustCompile(`(\.)([A-Z])`)
	newlineRunRegex  = regexp.MustCompile(`\n{3,}`)
	trailingWSRegex  = regexp.MustCompile(` +\n`)
)

// CleanText normalizes extraction artifacts: page-break markers,
// repeated whitespace, and missing spaces introduced by PDF text
// extraction. Paragraph breaks (blank lines) are preserved.
func CleanText(text string) string {
	text = pageMarkerRegex.ReplaceAllString(text, "\n\n")
	text = spaceRunRegex.ReplaceAllString(text, " ")
	text = caseJoinRegex.ReplaceAllString(text, "$1 $2")
	text = periodJoinRegex.ReplaceAllString(text, "$1 $2")
	text = trailingWSRegex.ReplaceAllString(text, "\n")
	text = newlineRunRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Chunk cleans the text and splits it into chunks. Empty input yields
// an empty list. Input shorter than the minimum size is discarded
// entirely (short documents vanish; callers log when that happens).
func (c *Chunker) Chunk(text string) []string {
	text = CleanText(text)

	if len(text) == 0 {
		return []string{}
	}

	if len(text) <= c.maxChunkSize {
		if len(text) >= c.minChunkSize {
			return []string{text}
		}
		return []string{}
	}

	chunks := c.chunkByParagraphs(text)

	// Re-split anything still over the limit at sentence granularity
	finalChunks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) > c.maxChunkSize {
			finalChunks = append(finalChunks, c.chunkBySentences(chunk)...)
		} else {
			finalChunks = append(finalChunks, chunk)
		}
	}

	// Drop undersized chunks; they are never merged forward
	validChunks := make([]string, 0, len(finalChunks))
	for _, chunk := range finalChunks {
		if len(chunk) >= c.minChunkSize {
			validChunks = append(validChunks, chunk)
		}
	}

	return validChunks
}

// chunkByParagraphs accumulates consecutive paragraphs until adding the
// next one would exceed the max size, carrying the last paragraph
// forward as overlap when it fits within the overlap budget.
func (c *Chunker) chunkByParagraphs(text string) []string {
	rawParagraphs := c.paragraphRegex.Split(text, -1)

	paragraphs := make([]string, 0, len(rawParagraphs))
	for _, p := range rawParagraphs {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []string
	var current []string
	currentLength := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunkText := strings.Join(current, "\n\n")
		if len(chunkText) >= c.minChunkSize {
			chunks = append(chunks, chunkText)
		}
	}

	for _, paragraph := range paragraphs {
		paraLength := len(paragraph)

		// A single oversized paragraph is split at sentence boundaries
		if paraLength > c.maxChunkSize {
			flush()
			current = nil
			currentLength = 0

			chunks = append(chunks, c.chunkBySentences(paragraph)...)
			continue
		}

		if currentLength+paraLength > c.maxChunkSize && len(current) > 0 {
			flush()

			// Carry the last paragraph forward when it fits the overlap
			if c.overlapSize > 0 {
				last := current[len(current)-1]
				if len(last) <= c.overlapSize {
					current = []string{last}
					currentLength = len(last)
				} else {
					current = nil
					currentLength = 0
				}
			} else {
				current = nil
				currentLength = 0
			}
		}

		current = append(current, paragraph)
		currentLength += paraLength + 2 // separator
	}

	flush()

	return chunks
}

// chunkBySentences accumulates sentences until the max size would be
// exceeded, carrying trailing sentences whose combined length fits the
// overlap budget into the next chunk.
func (c *Chunker) chunkBySentences(text string) []string {
	sentences := c.SplitSentences(text)

	var chunks []string
	var current []string
	currentLength := 0

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		sentenceLength := len(sentence)

		if currentLength+sentenceLength > c.maxChunkSize && len(current) > 0 {
			chunkText := strings.Join(current, " ")
			if len(chunkText) >= c.minChunkSize {
				chunks = append(chunks, chunkText)
			}

			// Collect trailing sentences for overlap, newest first
			var overlap []string
			overlapLength := 0
			for i := len(current) - 1; i >= 0; i-- {
				sentLen := len(current[i])
				if overlapLength+sentLen > c.overlapSize {
					break
				}
				overlap = append([]string{current[i]}, overlap...)
				overlapLength += sentLen
			}

			current = overlap
			currentLength = overlapLength
		}

		current = append(current, sentence)
		currentLength += sentenceLength
	}

	if len(current) > 0 {
		chunkText := strings.Join(current, " ")
		if len(chunkText) >= c.minChunkSize {
			chunks = append(chunks, chunkText)
		}
	}

	return chunks
}

// SplitSentences splits text at sentence boundaries, keeping the
// terminating punctuation with the sentence. Falls back to naive
// punctuation splitting when no boundary is found.
func (c *Chunker) SplitSentences(text string) []string {
	boundaries := c.sentenceRegex.FindAllStringIndex(text, -1)
	if len(boundaries) == 0 {
		// Naive fallback: split on punctuation without trailing space
		parts := regexp.MustCompile(`[.!?]+`).Split(text, -1)
		sentences := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				sentences = append(sentences, p)
			}
		}
		return sentences
	}

	var sentences []string
	start := 0
	for _, b := range boundaries {
		// Keep punctuation, drop the trailing whitespace run
		end := b[0] + strings.IndexFunc(text[b[0]:b[1]], func(r rune) bool {
			return r == ' ' || r == '\n' || r == '\t'
		})
		if end < b[0] {
			end = b[1]
		}
		sentence := strings.TrimSpace(text[start:end])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = b[1]
	}

	if start < len(text) {
		tail := strings.TrimSpace(text[start:])
		if tail != "" {
			sentences = append(sentences, tail)
		}
	}

	return sentences
}

// ChunkStats summarizes the output of a chunking pass.
type ChunkStats struct {
	Count       int `json:"count"`
	AvgLength   int `json:"avg_length"`
	MinLength   int `json:"min_length"`
	MaxLength   int `json:"max_length"`
	TotalLength int `json:"total_length"`
}

func GetChunkStats(chunks []string) ChunkStats {
	if len(chunks) == 0 {
		return ChunkStats{}
	}

	stats := ChunkStats{
		Count:     len(chunks),
		MinLength: len(chunks[0]),
	}
	for _, chunk := range chunks {
		l := len(chunk)
		stats.TotalLength += l
		if l < stats.MinLength {
			stats.MinLength = l
		}
		if l > stats.MaxLength {
			stats.MaxLength = l
		}
	}
	stats.AvgLength = stats.TotalLength / len(chunks)

	return stats
}
