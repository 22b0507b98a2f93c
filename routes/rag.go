package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"maternal-care-platform/internal/database"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/internal/rag"
	"maternal-care-platform/middleware"
	"maternal-care-platform/services"
	"maternal-care-platform/utils"
)

type searchRequest struct {
	Query               string   `json:"query" binding:"required,min=1,max=2000"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

// SetupRAGRoutes registers the retrieval and index-management
// endpoints.
func SetupRAGRoutes(router *gin.Engine, store *database.Store, system *rag.System, documents *services.DocumentService, authMiddleware *middleware.AuthMiddleware) {
	// Index statistics stay public; everything else needs a token.
	router.GET("/api/stats", func(c *gin.Context) {
		ctx := c.Request.Context()

		persisted, err := documents.ChunkCount(ctx)
		if err != nil {
			logger.Warn("Failed to count persisted chunks", "error", err)
		}
		searches, err := store.RecentSearchCount(ctx, 24*time.Hour)
		if err != nil {
			logger.Warn("Failed to count recent searches", "error", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"index_chunks":     system.Index().Ntotal(),
			"vector_dimension": system.Index().Dimension(),
			"persisted_chunks": persisted,
			"searches_24h":     searches,
		})
	})

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	api.POST("/search", func(c *gin.Context) {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		topK := system.DefaultTopK()
		if req.TopK != nil && *req.TopK > 0 {
			topK = *req.TopK
		}
		threshold := system.DefaultThreshold()
		if req.SimilarityThreshold != nil && *req.SimilarityThreshold > 0 {
			threshold = *req.SimilarityThreshold
		}

		start := time.Now()
		ranked := system.Retriever().Retrieve(c.Request.Context(), req.Query, topK, threshold)

		go store.LogSearch(middleware.GetUserID(c), req.Query, len(ranked), time.Since(start))

		c.JSON(http.StatusOK, gin.H{
			"query":   req.Query,
			"results": ranked,
			"count":   len(ranked),
		})
	})

	api.POST("/context", func(c *gin.Context) {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		topK := system.DefaultTopK()
		if req.TopK != nil && *req.TopK > 0 {
			topK = *req.TopK
		}
		threshold := system.DefaultThreshold()
		if req.SimilarityThreshold != nil && *req.SimilarityThreshold > 0 {
			threshold = *req.SimilarityThreshold
		}

		contextText := system.Retriever().FindRelevantContext(
			c.Request.Context(), req.Query, topK, threshold, rag.SystemPrompt)

		c.JSON(http.StatusOK, gin.H{
			"query":   req.Query,
			"context": contextText,
			"length":  len(contextText),
		})
	})

	// Rebuild the in-memory index from the persisted chunk mirror,
	// picking up anything the worker ingested since startup.
	api.POST("/reindex", func(c *gin.Context) {
		ctx := c.Request.Context()

		ids, chunks, vectors, err := documents.LoadAllChunks(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load persisted chunks", gin.H{"error": err.Error()})
			return
		}

		system.Index().Reset()
		if len(ids) > 0 {
			for _, v := range vectors {
				rag.NormalizeVector(v)
			}
			if err := system.Index().Add(vectors, ids, chunks); err != nil {
				utils.RespondWithInternalError(c, "Failed to rebuild index", gin.H{"error": err.Error()})
				return
			}
		}
		system.Snapshot()

		logger.Info("Index rebuilt from persisted chunks", "chunks", len(ids), "requested_by", middleware.GetUserID(c))

		c.JSON(http.StatusOK, gin.H{
			"message":      "Index rebuilt",
			"index_chunks": system.Index().Ntotal(),
		})
	})
}
