package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"maternal-care-platform/internal/ai"
	"maternal-care-platform/internal/config"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/internal/rag"
	"maternal-care-platform/models"
	"maternal-care-platform/services"
)

const TaskProcessDocument = "document:process"

// DocumentProcessPayload identifies an uploaded document waiting to be
// extracted, chunked, and embedded.
type DocumentProcessPayload struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
	SourceFile string `json:"source_file"`
}

// NewDocumentProcessTask builds the asynq task for a stored upload.
func NewDocumentProcessTask(documentID, filePath, sourceFile string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentProcessPayload{
		DocumentID: documentID,
		FilePath:   filePath,
		SourceFile: sourceFile,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("documents"),
	), nil
}

// TaskProcessor handles background document ingestion. It runs in the
// worker process, which has no in-memory index; chunk rows and ids go
// straight to the document store, and id assignment continues from the
// highest persisted embedding id.
type TaskProcessor struct {
	documents *services.DocumentService
	extractor *services.PDFExtractor
	embedder  ai.Embedder
	chunker   *rag.Chunker
}

func NewTaskProcessor(cfg *config.Config, documents *services.DocumentService, extractor *services.PDFExtractor, embedder ai.Embedder) *TaskProcessor {
	return &TaskProcessor{
		documents: documents,
		extractor: extractor,
		embedder:  embedder,
		chunker:   rag.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
	}
}

// ProcessDocument extracts text from the stored file, chunks it, embeds
// the chunks, and persists them with continued embedding ids. The
// document status tracks each outcome.
func (p *TaskProcessor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	docID, err := primitive.ObjectIDFromHex(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", payload.DocumentID, asynq.SkipRetry)
	}

	logger.Info("Processing document", "document_id", payload.DocumentID, "source", payload.SourceFile)

	if err := p.documents.UpdateStatus(ctx, docID, models.StatusProcessing, "", 0); err != nil {
		return err
	}

	count, err := p.ingest(ctx, payload)
	if err != nil {
		if statusErr := p.documents.UpdateStatus(ctx, docID, models.StatusFailed, err.Error(), 0); statusErr != nil {
			logger.Error("Failed to mark document failed", "document_id", payload.DocumentID, "error", statusErr)
		}
		return err
	}

	if err := p.documents.UpdateStatus(ctx, docID, models.StatusCompleted, "", count); err != nil {
		return err
	}

	logger.Info("Document processed", "document_id", payload.DocumentID, "chunks", count)
	return nil
}

func (p *TaskProcessor) ingest(ctx context.Context, payload DocumentProcessPayload) (int, error) {
	content, err := os.ReadFile(payload.FilePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read stored file: %v", err)
	}

	extraction, err := p.extractor.ExtractText(content)
	if err != nil {
		return 0, fmt.Errorf("text extraction failed: %v", err)
	}

	chunks := p.chunker.Chunk(extraction.Text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document produced no usable chunks")
	}

	vectors, err := p.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %v", err)
	}
	for _, v := range vectors {
		rag.NormalizeVector(v)
	}

	maxID, err := p.documents.MaxEmbeddingID(ctx)
	if err != nil {
		return 0, err
	}

	ids := make([]int64, len(chunks))
	for i := range ids {
		ids[i] = maxID + 1 + int64(i)
	}

	if err := p.documents.StoreChunks(ctx, payload.SourceFile, ids, chunks, vectors); err != nil {
		return 0, err
	}

	return len(chunks), nil
}
