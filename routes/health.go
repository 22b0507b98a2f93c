package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"maternal-care-platform/internal/config"
	"maternal-care-platform/internal/database"
	"maternal-care-platform/internal/rag"
)

var startTime = time.Now()

// SetupHealthRoutes registers the unauthenticated health and banner
// endpoints.
func SetupHealthRoutes(router *gin.Engine, cfg *config.Config, system *rag.System, store *database.Store) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "maternal-care-platform",
			"status":  "running",
			"endpoints": gin.H{
				"chat":            "POST /api/chat",
				"sessions":        "GET /api/chats",
				"search":          "POST /api/search",
				"upload":          "POST /api/upload",
				"users":           "POST /api/users",
				"recommendations": "GET /api/recommendations/:user_id",
				"predictions":     "POST /api/predictions",
				"health":          "GET /health",
			},
		})
	})

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		checks := gin.H{
			"index_chunks": system.Index().Ntotal(),
		}

		if err := store.Ping(c.Request.Context()); err != nil {
			status = "degraded"
			checks["postgres"] = err.Error()
		} else {
			checks["postgres"] = "ok"
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":         status,
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
			"checks":         checks,
		})
	})

	if cfg.GinMode == "release" {
		return
	}

	router.GET("/api/debug", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"gin_mode":         cfg.GinMode,
			"llm_model":        cfg.LLMModel,
			"embeddings":       cfg.EmbeddingsProvider,
			"vector_dimension": system.Index().Dimension(),
			"index_chunks":     system.Index().Ntotal(),
			"default_top_k":    cfg.DefaultTopK,
			"threshold":        cfg.SimilarityThreshold,
		})
	})
}
