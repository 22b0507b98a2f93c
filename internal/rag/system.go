package rag

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"maternal-care-platform/internal/logger"
	"maternal-care-platform/utils"
)

const SystemPrompt = "You are a helpful pregnancy guidance assistant. Provide accurate, supportive, and safe information about pregnancy. Always recommend consulting healthcare providers for medical concerns. Be empathetic and understanding."

// AI status values reported alongside generated responses so the
// transport layer can return success while still flagging degraded
// completions.
const (
	AIStatusOK       = "ok"
	AIStatusDegraded = "degraded"
)

// Embedder is the embedding contract the system consumes.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionClient is the LLM contract the system consumes.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error)
}

// ChunkSink receives newly indexed chunks for durable storage. Write
// failures are logged and ignored; the in-memory index is the source
// of truth for retrieval. MaxEmbeddingID reports the highest id
// already persisted (-1 when none), so id assignment never collides
// with chunks the worker process wrote behind this index's back.
type ChunkSink interface {
	StoreChunks(ctx context.Context, sourceFile string, ids []int64, chunks []string, vectors [][]float32) error
	MaxEmbeddingID(ctx context.Context) (int64, error)
}

// SearchLogger records retrieval activity, fire-and-forget.
type SearchLogger interface {
	LogSearch(userID, query string, resultsCount int, processingTime time.Duration)
}

// Options configures a System.
type Options struct {
	Chunker          *Chunker
	Index            *VectorIndex
	Embedder         Embedder
	LLM              CompletionClient
	Budgeter         *ContextBudgeter
	ChunkSink        ChunkSink
	SearchLogger     SearchLogger
	SnapshotPath     string
	HashPath         string
	DefaultTopK      int
	DefaultThreshold float64
	LLMTimeout       time.Duration
}

// System owns the full retrieval pipeline: chunking, indexing,
// retrieval, context budgeting, and response generation.
type System struct {
	chunker          *Chunker
	index            *VectorIndex
	embedder         Embedder
	llm              CompletionClient
	budgeter         *ContextBudgeter
	retriever        *Retriever
	chunkSink        ChunkSink
	searchLogger     SearchLogger
	snapshotPath     string
	hashPath         string
	defaultTopK      int
	defaultThreshold float64
	llmTimeout       time.Duration
}

func NewSystem(opts Options) *System {
	if opts.LLMTimeout == 0 {
		opts.LLMTimeout = 60 * time.Second
	}
	return &System{
		chunker:          opts.Chunker,
		index:            opts.Index,
		embedder:         opts.Embedder,
		llm:              opts.LLM,
		budgeter:         opts.Budgeter,
		retriever:        NewRetriever(opts.Index, opts.Embedder, opts.Budgeter),
		chunkSink:        opts.ChunkSink,
		searchLogger:     opts.SearchLogger,
		snapshotPath:     opts.SnapshotPath,
		hashPath:         opts.HashPath,
		defaultTopK:      opts.DefaultTopK,
		defaultThreshold: opts.DefaultThreshold,
		llmTimeout:       opts.LLMTimeout,
	}
}

// Retriever exposes the underlying retriever for search endpoints.
func (s *System) Retriever() *Retriever { return s.retriever }

// Index exposes the underlying index for stats endpoints.
func (s *System) Index() *VectorIndex { return s.index }

// DefaultTopK reports the configured retrieval depth.
func (s *System) DefaultTopK() int { return s.defaultTopK }

// DefaultThreshold reports the configured similarity floor.
func (s *System) DefaultThreshold() float64 { return s.defaultThreshold }

// LoadOrBuild restores the index from its snapshot when the corpus
// hash matches, otherwise chunks and embeds the corpus from scratch
// and writes a fresh snapshot. A stale or corrupt snapshot triggers a
// rebuild, never a startup failure.
func (s *System) LoadOrBuild(ctx context.Context, corpus, sourceFile string) error {
	corpusHash := utils.HashText(corpus)

	if s.snapshotMatches(corpusHash) {
		if err := s.index.Load(s.snapshotPath); err == nil {
			logger.Info("Vector index restored from snapshot", "chunks", s.index.Ntotal())
			return nil
		} else {
			logger.Warn("Snapshot load failed, rebuilding index", "error", err)
		}
	}

	s.index.Reset()
	if _, err := s.IngestText(ctx, corpus, sourceFile); err != nil {
		return fmt.Errorf("failed to build index from corpus: %v", err)
	}

	if err := os.WriteFile(s.hashPath, []byte(corpusHash), 0o644); err != nil {
		logger.Warn("Failed to write corpus hash file", "error", err)
	}

	return nil
}

func (s *System) snapshotMatches(corpusHash string) bool {
	stored, err := os.ReadFile(s.hashPath)
	if err != nil {
		return false
	}
	if strings.TrimSpace(string(stored)) != corpusHash {
		logger.Info("Knowledge base changed, snapshot is stale")
		return false
	}
	if _, err := os.Stat(s.snapshotPath); err != nil {
		return false
	}
	return true
}

// IngestText chunks, embeds, and indexes a piece of text. Returns the
// ids assigned to the new chunks. Chunk rows are forwarded to the
// chunk sink and the snapshot is refreshed.
func (s *System) IngestText(ctx context.Context, text, sourceFile string) ([]int64, error) {
	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		logger.Warn("Chunking produced no chunks, nothing ingested", "source", sourceFile, "input_length", len(text))
		return nil, nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %v", err)
	}

	for _, v := range vectors {
		NormalizeVector(v)
	}

	base := s.index.NextID()
	if s.chunkSink != nil {
		maxID, err := s.chunkSink.MaxEmbeddingID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read persisted embedding ids: %v", err)
		}
		if maxID+1 > base {
			base = maxID + 1
		}
	}
	ids := make([]int64, len(chunks))
	for i := range ids {
		ids[i] = base + int64(i)
	}

	if err := s.index.Add(vectors, ids, chunks); err != nil {
		return nil, fmt.Errorf("failed to add vectors to index: %v", err)
	}

	if s.chunkSink != nil {
		if err := s.chunkSink.StoreChunks(ctx, sourceFile, ids, chunks, vectors); err != nil {
			logger.Error("Failed to persist chunk rows", "source", sourceFile, "error", err)
		}
	}

	s.Snapshot()

	stats := GetChunkStats(chunks)
	logger.Info("Ingested text into index",
		"source", sourceFile,
		"chunks", stats.Count,
		"avg_length", stats.AvgLength,
		"ntotal", s.index.Ntotal())

	return ids, nil
}

// Snapshot persists the current index state. Errors are logged, not
// returned; a failed snapshot only costs a rebuild on next startup.
func (s *System) Snapshot() {
	if s.snapshotPath == "" {
		return
	}
	if err := s.index.Save(s.snapshotPath); err != nil {
		logger.Error("Failed to save index snapshot", "error", err)
	}
}

// GenerateResult carries a generated response plus its provenance.
type GenerateResult struct {
	Response      string
	AIStatus      string
	ContextChunks int
}

// GenerateResponse retrieves context for the query, builds the prompts,
// and calls the LLM with one retry. Completion failures degrade to an
// apologetic message with AIStatus set to degraded; the error never
// reaches the caller.
func (s *System) GenerateResponse(ctx context.Context, userID, query string, topK int, threshold float64) GenerateResult {
	start := time.Now()

	if topK <= 0 {
		topK = s.defaultTopK
	}
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	ranked := s.retriever.Retrieve(ctx, query, topK, threshold)
	chunkTexts := make([]string, len(ranked))
	for i, rc := range ranked {
		chunkTexts[i] = rc.Text
	}
	contextText := s.budgeter.Assemble(chunkTexts, query, SystemPrompt)

	userPrompt := buildUserPrompt(query, contextText)

	response, err := s.completeWithRetry(ctx, userPrompt)
	status := AIStatusOK
	if err != nil {
		logger.Error("LLM completion failed after retry", "error", err, "query_length", len(query))
		response = fmt.Sprintf("I'm sorry, I encountered an error: %v. Please try again or consult your healthcare provider.", err)
		status = AIStatusDegraded
	}

	if s.searchLogger != nil {
		go s.searchLogger.LogSearch(userID, query, len(ranked), time.Since(start))
	}

	return GenerateResult{
		Response:      response,
		AIStatus:      status,
		ContextChunks: len(ranked),
	}
}

func (s *System) completeWithRetry(ctx context.Context, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	response, err := s.llm.Complete(callCtx, SystemPrompt, userPrompt, 0.7)
	if err == nil {
		return response, nil
	}

	logger.Warn("LLM completion failed, retrying once", "error", err)

	retryCtx, cancelRetry := context.WithTimeout(ctx, s.llmTimeout)
	defer cancelRetry()

	return s.llm.Complete(retryCtx, SystemPrompt, userPrompt, 0.7)
}

func buildUserPrompt(query, contextText string) string {
	if contextText != "" {
		return fmt.Sprintf(`Context information:
%s

Question: %s

Please provide a helpful response based on the context above. If the context doesn't contain relevant information, provide general pregnancy guidance while emphasizing the importance of consulting healthcare providers.`, contextText, query)
	}
	return fmt.Sprintf(`Question: %s

Please provide helpful pregnancy guidance while emphasizing the importance of consulting healthcare providers for specific medical concerns.`, query)
}
