package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"maternal-care-platform/internal/logger"
	"maternal-care-platform/models"
	"maternal-care-platform/utils"

	"github.com/google/uuid"
)

// DocumentService persists uploaded documents and the chunk mirror in
// MongoDB. The chunk collection lets the API and the worker share
// index state across processes: the worker appends rows, the API
// rebuilds its in-memory index from them.
type DocumentService struct {
	documents *mongo.Collection
	chunks    *mongo.Collection
}

func NewDocumentService(db *mongo.Database) *DocumentService {
	return &DocumentService{
		documents: db.Collection("documents"),
		chunks:    db.Collection("document_chunks"),
	}
}

// FindByHash returns an already-uploaded document with the same file
// hash, or nil.
func (ds *DocumentService) FindByHash(ctx context.Context, fileHash string) (*models.Document, error) {
	var doc models.Document
	err := ds.documents.FindOne(ctx, bson.M{"file_hash": fileHash}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up document by hash: %v", err)
	}
	return &doc, nil
}

// CreateDocument inserts a new document record in pending state.
func (ds *DocumentService) CreateDocument(ctx context.Context, doc *models.Document) error {
	doc.ID = primitive.NewObjectID()
	doc.Status = models.StatusPending
	doc.UploadedAt = time.Now()

	_, err := ds.documents.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert document: %v", err)
	}
	return nil
}

// UpdateStatus transitions a document's processing status. A non-empty
// errorMessage marks the failure reason; completed documents get a
// processed timestamp and chunk count.
func (ds *DocumentService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status, errorMessage string, chunkCount int) error {
	update := bson.M{
		"status":        status,
		"error_message": errorMessage,
	}
	if status == models.StatusCompleted {
		now := time.Now()
		update["processed_at"] = now
		update["chunk_count"] = chunkCount
	}

	_, err := ds.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to update document status: %v", err)
	}
	return nil
}

// GetDocument returns a document by id, or nil.
func (ds *DocumentService) GetDocument(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	var doc models.Document
	err := ds.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %v", err)
	}
	return &doc, nil
}

// ListRecent returns the most recently uploaded documents.
func (ds *DocumentService) ListRecent(ctx context.Context, limit int) ([]models.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	opts := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := ds.documents.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %v", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// StoreChunks persists chunk rows with their vectors, satisfying the
// retrieval system's chunk sink. Chunk text over the compression floor
// is stored brotli-compressed.
func (ds *DocumentService) StoreChunks(ctx context.Context, sourceFile string, ids []int64, chunks []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(ids))
	now := time.Now()

	for i, id := range ids {
		row := models.DocumentChunk{
			ChunkID:     uuid.NewString(),
			EmbeddingID: id,
			SourceFile:  sourceFile,
			Order:       i,
			CharCount:   len(chunks[i]),
			Vector:      vectors[i],
			CreatedAt:   now,
		}

		compressed, algorithm, err := utils.CompressText(chunks[i])
		if err != nil || algorithm == utils.CompressionNone {
			row.Text = chunks[i]
		} else {
			row.Compressed = compressed
			row.Compression = string(algorithm)
		}

		rows = append(rows, row)
	}

	_, err := ds.chunks.InsertMany(ctx, rows)
	if err != nil {
		return fmt.Errorf("failed to insert chunk rows: %v", err)
	}

	logger.Debug("Persisted chunk rows", "source", sourceFile, "count", len(rows))
	return nil
}

// LoadAllChunks streams every stored chunk in embedding-id order,
// decompressing text as needed. Used to rebuild the in-memory index.
func (ds *DocumentService) LoadAllChunks(ctx context.Context) (ids []int64, chunks []string, vectors [][]float32, err error) {
	opts := options.Find().SetSort(bson.D{{Key: "embedding_id", Value: 1}})
	cursor, err := ds.chunks.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to query chunk rows: %v", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row models.DocumentChunk
		if err := cursor.Decode(&row); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to decode chunk row: %v", err)
		}

		text := row.Text
		if text == "" && len(row.Compressed) > 0 {
			text, err = utils.DecompressText(row.Compressed, utils.CompressionAlgorithm(row.Compression))
			if err != nil {
				logger.Warn("Failed to decompress chunk, skipping", "embedding_id", row.EmbeddingID, "error", err)
				continue
			}
		}

		ids = append(ids, row.EmbeddingID)
		chunks = append(chunks, text)
		vectors = append(vectors, row.Vector)
	}

	return ids, chunks, vectors, cursor.Err()
}

// MaxEmbeddingID returns the highest persisted embedding id, or -1
// when no chunks exist. The worker uses it to continue id assignment
// without access to the API's in-memory index.
func (ds *DocumentService) MaxEmbeddingID(ctx context.Context) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "embedding_id", Value: -1}})

	var row models.DocumentChunk
	err := ds.chunks.FindOne(ctx, bson.M{}, opts).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("failed to find max embedding id: %v", err)
	}
	return row.EmbeddingID, nil
}

// ChunkCount returns the number of persisted chunk rows.
func (ds *DocumentService) ChunkCount(ctx context.Context) (int64, error) {
	return ds.chunks.CountDocuments(ctx, bson.M{})
}
