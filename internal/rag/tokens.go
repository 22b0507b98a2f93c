package rag

import "strings"

// TokenCounter estimates token counts for budget accounting.
// The default is a characters-per-token heuristic; a real BPE counter
// can be plugged in where exactness matters.
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter approximates tokens as len(text)/4. Approximate by
// construction; budget arithmetic built on it is a soft bound.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	return len(text) / 4
}

// ContextBudgeter assembles ranked chunks into a single context string
// that fits, together with the query and system prompt, under a total
// token budget.
type ContextBudgeter struct {
	counter         TokenCounter
	maxTotalTokens  int
	responseReserve int
	splitter        *Chunker
}

func NewContextBudgeter(counter TokenCounter, maxTotalTokens, responseReserve int) *ContextBudgeter {
	if counter == nil {
		counter = HeuristicCounter{}
	}
	return &ContextBudgeter{
		counter:         counter,
		maxTotalTokens:  maxTotalTokens,
		responseReserve: responseReserve,
		splitter:        NewChunker(1, 0, 1), // sentence splitting only
	}
}

// Assemble packs chunks greedily in the given relevance order.
// Chunks are separated by blank lines. The first chunk that does not
// fully fit is partially included, truncated at the last complete
// sentence, when more than 50 tokens of budget remain; packing stops
// there. A non-positive budget degrades to the first 500 characters of
// the first chunk so output is never empty while data exists.
func (b *ContextBudgeter) Assemble(chunks []string, query, systemPrompt string) string {
	if len(chunks) == 0 {
		return ""
	}

	available := b.maxTotalTokens - b.counter.Count(systemPrompt) - b.counter.Count(query) - b.responseReserve

	if available <= 0 {
		first := chunks[0]
		if len(first) > 500 {
			return first[:500]
		}
		return first
	}

	var sb strings.Builder
	used := 0

	for i, chunk := range chunks {
		chunkTokens := b.counter.Count(chunk)
		remaining := available - used

		if chunkTokens <= remaining {
			if i > 0 && sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(chunk)
			used += chunkTokens
			continue
		}

		if remaining > 50 {
			truncated := chunk
			if maxChars := remaining * 4; len(truncated) > maxChars {
				truncated = truncated[:maxChars]
			}
			truncated = b.trimToSentence(truncated)
			if truncated != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n\n")
				}
				sb.WriteString(truncated)
			}
		}
		break
	}

	return sb.String()
}

// trimToSentence drops a trailing partial sentence when more than one
// sentence survives the cut; a single-sentence fragment is kept as-is.
func (b *ContextBudgeter) trimToSentence(text string) string {
	sentences := b.splitter.SplitSentences(text)
	if len(sentences) <= 1 {
		return text
	}

	last := sentences[len(sentences)-1]
	cut := strings.LastIndex(text, last)
	if cut <= 0 {
		return text
	}

	// Only drop the tail when it does not end at a sentence boundary
	trimmedTail := strings.TrimSpace(text[cut:])
	if strings.HasSuffix(trimmedTail, ".") || strings.HasSuffix(trimmedTail, "!") || strings.HasSuffix(trimmedTail, "?") {
		return text
	}

	return strings.TrimSpace(text[:cut])
}
