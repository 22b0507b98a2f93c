package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateTextQuality(t *testing.T) {
	e := NewPDFExtractor()

	t.Run("clean prose scores high", func(t *testing.T) {
		text := strings.Repeat("The placenta delivers oxygen and nutrients to the baby. ", 5)
		assert.GreaterOrEqual(t, e.evaluateTextQuality(text), 0.8)
	})

	t.Run("corrupted text scores low", func(t *testing.T) {
		text := strings.Repeat("��� ", 40)
		assert.Less(t, e.evaluateTextQuality(text), 0.3)
	})

	t.Run("empty and tiny inputs", func(t *testing.T) {
		assert.Zero(t, e.evaluateTextQuality(""))
		assert.InDelta(t, 0.1, e.evaluateTextQuality("hi"), 1e-9)
	})

	t.Run("score is clamped to [0,1]", func(t *testing.T) {
		good := strings.Repeat("Regular checkups are important for the mother and the baby. ", 20)
		score := e.evaluateTextQuality(good)
		assert.LessOrEqual(t, score, 1.0)
		assert.GreaterOrEqual(t, score, 0.0)
	})
}

func TestHasGoodPatterns(t *testing.T) {
	assert.True(t, hasGoodPatterns("The midwife checked the heartbeat. Everything looked fine."))
	assert.False(t, hasGoodPatterns("xxxx yyyy zzzz"))
}

func TestAnalyzeText(t *testing.T) {
	e := NewPDFExtractor()
	result := &ExtractionResult{Text: "one two three"}
	e.analyzeText(result)

	assert.Equal(t, 3, result.WordCount)
	assert.Equal(t, 13, result.CharacterCount)
}
