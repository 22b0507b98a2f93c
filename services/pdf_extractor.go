package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"maternal-care-platform/internal/logger"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts plain text from uploaded PDF documents.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractionResult contains the result of PDF text extraction
type ExtractionResult struct {
	Text           string
	Pages          int
	Method         string
	QualityScore   float64
	ProcessingTime time.Duration
	WordCount      int
	CharacterCount int
}

// ExtractText extracts text from raw PDF bytes. Pages that fail to
// decode are skipped; page markers are inserted between pages so the
// chunker can strip them consistently.
func (e *PDFExtractor) ExtractText(content []byte) (*ExtractionResult, error) {
	start := time.Now()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "error", err)
			continue
		}

		if i > 1 {
			textBuilder.WriteString(fmt.Sprintf("\n--- Page %d ---\n", i))
		}
		textBuilder.WriteString(text)
	}

	extractedText := textBuilder.String()
	if len(extractedText) == 0 {
		return nil, fmt.Errorf("no text extracted from PDF")
	}

	result := &ExtractionResult{
		Text:           extractedText,
		Pages:          pages,
		Method:         "go-pdf",
		ProcessingTime: time.Since(start),
	}

	result.QualityScore = e.evaluateTextQuality(extractedText)
	e.analyzeText(result)

	return result, nil
}

// evaluateTextQuality scores extracted text in [0,1] by character-type
// ratios and common English patterns. Low scores usually mean a
// scanned or font-mangled document.
func (e *PDFExtractor) evaluateTextQuality(text string) float64 {
	if len(text) == 0 {
		return 0.0
	}

	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return 0.1
	}

	var alphanumeric, printable, corrupted int

	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			alphanumeric++
			printable++
		case r == ' ' || r == '\n' || r == '\t':
			printable++
		case r == '.' || r == ',' || r == ';' || r == ':' || r == '!' || r == '?' || r == '-' || r == '_':
			printable++
		case r == '�':
			corrupted++
		case r >= 32 && r <= 126:
			printable++
		default:
			if r > 127 && !isCommonUnicodeChar(r) {
				corrupted++
			} else {
				printable++
			}
		}
	}

	total := len([]rune(text))
	if total == 0 {
		return 0.0
	}

	alphanumericRatio := float64(alphanumeric) / float64(total)
	printableRatio := float64(printable) / float64(total)
	corruptedRatio := float64(corrupted) / float64(total)

	score := 0.0
	score += printableRatio * 0.4

	if alphanumericRatio >= 0.3 {
		score += 0.3
	} else {
		score += alphanumericRatio
	}

	score -= corruptedRatio * 2.0

	if len(text) > 100 {
		score += 0.1
	}

	if hasGoodPatterns(text) {
		score += 0.2
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return score
}

func isCommonUnicodeChar(r rune) bool {
	common := []rune{'—', '“', '”', '‘', '’', '…', '€', '£', '¥', '©', '®', '™'}
	for _, c := range common {
		if r == c {
			return true
		}
	}
	return false
}

// hasGoodPatterns checks for patterns that indicate good text extraction
func hasGoodPatterns(text string) bool {
	patterns := []string{
		`\b[A-Z][a-z]+\b`,       // Capitalized words
		`[.!?]\s+[A-Z]`,         // Sentence boundaries
		`\b(the|and|or|of|to|in|for|with|on|at|by|from)\b`, // Common words
	}

	goodPatterns := 0
	for _, pattern := range patterns {
		if matched, _ := regexp.MatchString(pattern, text); matched {
			goodPatterns++
		}
	}

	return goodPatterns >= 2
}

func (e *PDFExtractor) analyzeText(result *ExtractionResult) {
	words := strings.Fields(result.Text)
	result.WordCount = len(words)
	result.CharacterCount = len(result.Text)
}
