package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"maternal-care-platform/internal/database"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/internal/rag"
	"maternal-care-platform/middleware"
	"maternal-care-platform/models"
	"maternal-care-platform/services"
	"maternal-care-platform/utils"
)

// SetupChatRoutes registers the conversational endpoints. All of them
// require a valid token from the identity service.
func SetupChatRoutes(router *gin.Engine, store *database.Store, system *rag.System, exporter *services.ExportService, authMiddleware *middleware.AuthMiddleware) {
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	api.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if req.TopK != nil && (*req.TopK < 1 || *req.TopK > 20) {
			utils.RespondWithBadRequest(c, "top_k must be between 1 and 20", nil)
			return
		}
		if req.SimilarityThreshold != nil && (*req.SimilarityThreshold < 0 || *req.SimilarityThreshold > 1) {
			utils.RespondWithBadRequest(c, "similarity_threshold must be between 0 and 1", nil)
			return
		}

		userID := middleware.GetUserID(c)
		ctx := c.Request.Context()
		start := time.Now()

		// Resolve or create the session before generating, so a slow
		// LLM call never loses the user's message.
		var session *models.ChatSession
		var err error
		if req.SessionID != "" {
			session, err = store.GetSession(ctx, req.SessionID, userID)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to load session", nil)
				return
			}
			if session == nil {
				utils.RespondWithNotFound(c, "Session not found")
				return
			}
		} else {
			session, err = store.CreateSession(ctx, userID, "")
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to create session", nil)
				return
			}
		}

		userMsg := &models.ChatMessage{
			SessionID: session.ID,
			UserID:    userID,
			Role:      "user",
			Content:   req.Message,
		}
		if err := store.AddMessage(ctx, userMsg); err != nil {
			logger.Error("Failed to persist user message", "session_id", session.ID, "error", err)
		}

		topK := 0
		if req.TopK != nil {
			topK = *req.TopK
		}
		threshold := 0.0
		if req.SimilarityThreshold != nil {
			threshold = *req.SimilarityThreshold
		}

		result := system.GenerateResponse(ctx, userID, req.Message, topK, threshold)
		elapsed := time.Since(start)

		assistantMsg := &models.ChatMessage{
			SessionID:        session.ID,
			UserID:           userID,
			Role:             "assistant",
			Content:          result.Response,
			ProcessingTimeMS: elapsed.Milliseconds(),
		}
		if err := store.AddMessage(ctx, assistantMsg); err != nil {
			logger.Error("Failed to persist assistant message", "session_id", session.ID, "error", err)
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Response:         result.Response,
			SessionID:        session.ID,
			AIStatus:         result.AIStatus,
			ProcessingTimeMS: elapsed.Milliseconds(),
			TopK:             topKOrDefault(req.TopK, system),
			Threshold:        thresholdOrDefault(req.SimilarityThreshold, system),
			Timestamp:        time.Now(),
		})
	})

	api.POST("/chats", func(c *gin.Context) {
		var req models.CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		session, err := store.CreateSession(c.Request.Context(), middleware.GetUserID(c), req.SessionName)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create session", nil)
			return
		}

		c.JSON(http.StatusCreated, session)
	})

	api.GET("/chats", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		sessions, err := store.ListSessions(c.Request.Context(), middleware.GetUserID(c), limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list sessions", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
	})

	api.GET("/chats/:id", func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		sessionID := c.Param("id")
		ctx := c.Request.Context()

		session, err := store.GetSession(ctx, sessionID, userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load session", nil)
			return
		}
		if session == nil {
			utils.RespondWithNotFound(c, "Session not found")
			return
		}

		messages, err := store.GetMessages(ctx, sessionID, userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load messages", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"session": session, "messages": messages})
	})

	api.DELETE("/chats/:id", func(c *gin.Context) {
		deleted, err := store.DeleteSession(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete session", nil)
			return
		}
		if !deleted {
			utils.RespondWithNotFound(c, "Session not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
	})

	api.GET("/chats/:id/export", func(c *gin.Context) {
		format := c.DefaultQuery("format", services.ExportFormatJSON)

		file, err := exporter.ExportSession(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), format)
		if err != nil {
			utils.RespondWithBadRequest(c, "Export failed", gin.H{"error": err.Error()})
			return
		}
		if file == nil {
			utils.RespondWithNotFound(c, "Session not found")
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		c.Data(http.StatusOK, file.ContentType, file.Data)
	})

	api.GET("/user/stats", func(c *gin.Context) {
		days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

		stats, err := store.GetUserStats(c.Request.Context(), middleware.GetUserID(c), days)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to compute stats", nil)
			return
		}

		c.JSON(http.StatusOK, stats)
	})
}

func topKOrDefault(v *int, system *rag.System) int {
	if v != nil && *v > 0 {
		return *v
	}
	return system.DefaultTopK()
}

func thresholdOrDefault(v *float64, system *rag.System) float64 {
	if v != nil && *v > 0 {
		return *v
	}
	return system.DefaultThreshold()
}
