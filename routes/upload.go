package routes

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"maternal-care-platform/internal/config"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/internal/queue"
	"maternal-care-platform/internal/rag"
	"maternal-care-platform/middleware"
	"maternal-care-platform/models"
	"maternal-care-platform/services"
	"maternal-care-platform/utils"
)

// SetupUploadRoutes registers document upload and status endpoints.
// Small files are processed inline; anything over the sync limit goes
// to the worker queue.
func SetupUploadRoutes(router *gin.Engine, cfg *config.Config, documents *services.DocumentService, extractor *services.PDFExtractor, system *rag.System, asynqClient *asynq.Client, authMiddleware *middleware.AuthMiddleware) {
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	api.POST("/upload", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file provided", gin.H{"error": err.Error()})
			return
		}

		if fileHeader.Size > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, "File too large",
				gin.H{"max_bytes": cfg.MaxFileSize, "got_bytes": fileHeader.Size})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if !isAllowedType(contentType, cfg.AllowedTypes) {
			utils.RespondWithBadRequest(c, "Unsupported file type", gin.H{"content_type": contentType})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read upload", nil)
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read upload", nil)
			return
		}

		ctx := c.Request.Context()
		fileHash := utils.HashBytes(content)

		existing, err := documents.FindByHash(ctx, fileHash)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to check for duplicates", nil)
			return
		}
		if existing != nil {
			utils.RespondWithConflict(c, "Document already uploaded", gin.H{
				"id":     existing.ID.Hex(),
				"status": existing.Status,
			})
			return
		}

		storedName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
		storedPath := filepath.Join(cfg.FileStorageDir, storedName)
		if err := os.WriteFile(storedPath, content, 0o644); err != nil {
			utils.RespondWithInternalError(c, "Failed to store file", nil)
			return
		}

		doc := &models.Document{
			Filename:     storedName,
			OriginalName: fileHeader.Filename,
			FilePath:     storedPath,
			FileHash:     fileHash,
			UploadedBy:   middleware.GetUserID(c),
			Metadata:     models.DocumentMetadata{Size: fileHeader.Size},
		}
		if err := documents.CreateDocument(ctx, doc); err != nil {
			utils.RespondWithInternalError(c, "Failed to record upload", nil)
			return
		}

		if fileHeader.Size <= cfg.SyncProcessingLimit {
			processSyncUpload(c, documents, extractor, system, doc, content)
			return
		}

		task, err := queue.NewDocumentProcessTask(doc.ID.Hex(), storedPath, fileHeader.Filename)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to queue processing", nil)
			return
		}
		info, err := asynqClient.EnqueueContext(ctx, task)
		if err != nil {
			logger.Error("Failed to enqueue document task", "document_id", doc.ID.Hex(), "error", err)
			utils.RespondWithInternalError(c, "Failed to queue processing", nil)
			return
		}

		c.JSON(http.StatusAccepted, models.UploadResponse{
			ID:       doc.ID.Hex(),
			Filename: fileHeader.Filename,
			Status:   models.StatusPending,
			Message:  "Document queued for processing",
			TaskID:   info.ID,
		})
	})

	api.GET("/upload/status", func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Query("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid document id", nil)
			return
		}

		doc, err := documents.GetDocument(c.Request.Context(), id)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}
		if doc == nil {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":            doc.ID.Hex(),
			"filename":      doc.OriginalName,
			"status":        doc.Status,
			"chunk_count":   doc.ChunkCount,
			"error_message": doc.ErrorMessage,
			"uploaded_at":   doc.UploadedAt,
			"processed_at":  doc.ProcessedAt,
		})
	})

	api.GET("/upload/history", func(c *gin.Context) {
		docs, err := documents.ListRecent(c.Request.Context(), 20)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	})
}

func processSyncUpload(c *gin.Context, documents *services.DocumentService, extractor *services.PDFExtractor, system *rag.System, doc *models.Document, content []byte) {
	ctx := c.Request.Context()
	start := time.Now()

	if err := documents.UpdateStatus(ctx, doc.ID, models.StatusProcessing, "", 0); err != nil {
		logger.Warn("Failed to mark document processing", "document_id", doc.ID.Hex(), "error", err)
	}

	extraction, err := extractor.ExtractText(content)
	if err != nil {
		documents.UpdateStatus(ctx, doc.ID, models.StatusFailed, err.Error(), 0)
		utils.RespondWithBadRequest(c, "Text extraction failed", gin.H{"error": err.Error()})
		return
	}

	ids, err := system.IngestText(ctx, extraction.Text, doc.OriginalName)
	if err != nil {
		documents.UpdateStatus(ctx, doc.ID, models.StatusFailed, err.Error(), 0)
		utils.RespondWithInternalError(c, "Failed to index document", gin.H{"error": err.Error()})
		return
	}

	if err := documents.UpdateStatus(ctx, doc.ID, models.StatusCompleted, "", len(ids)); err != nil {
		logger.Warn("Failed to mark document completed", "document_id", doc.ID.Hex(), "error", err)
	}

	c.JSON(http.StatusOK, models.UploadResponse{
		ID:         doc.ID.Hex(),
		Filename:   doc.OriginalName,
		Status:     models.StatusCompleted,
		ChunkCount: len(ids),
		Message: fmt.Sprintf("Document processed in %dms (%d pages, quality %.2f)",
			time.Since(start).Milliseconds(), extraction.Pages, extraction.QualityScore),
	})
}

func isAllowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if contentType == t {
			return true
		}
	}
	return false
}
