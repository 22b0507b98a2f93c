package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document represents an uploaded knowledge-base document
type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"original_name" json:"original_name"`
	FilePath     string             `bson:"file_path" json:"file_path"` // Storage path
	FileHash     string             `bson:"file_hash" json:"file_hash"` // For deduplication
	UploadedBy   string             `bson:"uploaded_by" json:"uploaded_by"`
	ChunkCount   int                `bson:"chunk_count" json:"chunk_count"`
	Status       string             `bson:"status" json:"status"` // pending, processing, completed, failed
	ErrorMessage string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt  *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	Metadata     DocumentMetadata   `bson:"metadata" json:"metadata"`
}

// DocumentMetadata contains extraction metadata
type DocumentMetadata struct {
	Size             int64   `bson:"size" json:"size"`
	Pages            int     `bson:"pages" json:"pages"`
	ProcessingTimeMS int64   `bson:"processing_time_ms" json:"processing_time_ms"`
	ExtractionMethod string  `bson:"extraction_method" json:"extraction_method"`
	QualityScore     float64 `bson:"quality_score" json:"quality_score"`
	WordCount        int     `bson:"word_count" json:"word_count"`
	CharacterCount   int     `bson:"character_count" json:"character_count"`
}

// DocumentChunk is the persistent mirror of one in-memory index entry.
// The API process rebuilds its vector index from this collection at
// startup; the worker process appends to it after async ingestion.
type DocumentChunk struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID  primitive.ObjectID `bson:"document_id,omitempty" json:"document_id,omitempty"`
	ChunkID     string             `bson:"chunk_id" json:"chunk_id"`
	EmbeddingID int64              `bson:"embedding_id" json:"embedding_id"`
	SourceFile  string             `bson:"source_file" json:"source_file"`
	Order       int                `bson:"order" json:"order"`
	Text        string             `bson:"text,omitempty" json:"text,omitempty"`
	Compressed  []byte             `bson:"compressed,omitempty" json:"-"`
	Compression string             `bson:"compression,omitempty" json:"-"`
	CharCount   int                `bson:"char_count" json:"char_count"`
	Vector      []float32          `bson:"vector" json:"-"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// UploadResponse represents the response after a successful upload
type UploadResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Message    string `json:"message"`
	TaskID     string `json:"task_id,omitempty"` // For async processing
}

// Processing status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
