package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"maternal-care-platform/internal/database"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/middleware"
	"maternal-care-platform/models"
	"maternal-care-platform/services"
	"maternal-care-platform/utils"
)

// SetupPredictionRoutes registers the maternal-risk prediction CRUD
// endpoints backed by the external classifier service.
func SetupPredictionRoutes(router *gin.Engine, store *database.Store, predictor *services.PredictorClient, authMiddleware *middleware.AuthMiddleware) {
	// Classifier metadata is public; the prediction CRUD needs a token.
	router.GET("/api/model-info", func(c *gin.Context) {
		info, err := predictor.ModelInfo(c.Request.Context())
		if err != nil {
			utils.RespondWithError(c, http.StatusBadGateway, "classifier_unavailable",
				"Risk classification service is unavailable", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, info)
	})

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	api.POST("/predictions", func(c *gin.Context) {
		var input models.PredictionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if err := services.ValidatePredictionInput(&input); err != nil {
			utils.RespondWithBadRequest(c, "Invalid vitals", gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		result, err := predictor.Predict(ctx, &input)
		if err != nil {
			logger.Error("Classifier call failed", "error", err)
			utils.RespondWithError(c, http.StatusBadGateway, "classifier_unavailable",
				"Risk classification service is unavailable", gin.H{"error": err.Error()})
			return
		}

		prediction := &models.Prediction{
			UserEmail:    middleware.GetUserID(c),
			Input:        input,
			Result:       *result,
			InputSummary: services.SummarizeInput(&input),
		}
		if err := store.StorePrediction(ctx, prediction); err != nil {
			utils.RespondWithInternalError(c, "Failed to store prediction", nil)
			return
		}

		c.JSON(http.StatusCreated, prediction)
	})

	api.GET("/predictions", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

		predictions, err := store.GetUserPredictions(c.Request.Context(), middleware.GetUserID(c), limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list predictions", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"predictions": predictions, "count": len(predictions)})
	})

	api.GET("/predictions/history", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		predictions, err := store.GetUserPredictions(c.Request.Context(), middleware.GetUserID(c), limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list predictions", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"predictions": predictions, "count": len(predictions)})
	})

	api.GET("/predictions/latest", func(c *gin.Context) {
		prediction, err := store.GetLatestPrediction(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load prediction", nil)
			return
		}
		if prediction == nil {
			utils.RespondWithNotFound(c, "No predictions yet")
			return
		}

		c.JSON(http.StatusOK, prediction)
	})

	api.GET("/predictions/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid prediction id", nil)
			return
		}

		prediction, err := store.GetPrediction(c.Request.Context(), id, middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load prediction", nil)
			return
		}
		if prediction == nil {
			utils.RespondWithNotFound(c, "Prediction not found")
			return
		}

		c.JSON(http.StatusOK, prediction)
	})

	// Re-running the classifier on corrected vitals overwrites the row
	// rather than creating a new history entry.
	api.PUT("/predictions/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid prediction id", nil)
			return
		}

		var input models.PredictionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if err := services.ValidatePredictionInput(&input); err != nil {
			utils.RespondWithBadRequest(c, "Invalid vitals", gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		userEmail := middleware.GetUserID(c)

		result, err := predictor.Predict(ctx, &input)
		if err != nil {
			logger.Error("Classifier call failed", "error", err)
			utils.RespondWithError(c, http.StatusBadGateway, "classifier_unavailable",
				"Risk classification service is unavailable", gin.H{"error": err.Error()})
			return
		}

		prediction := &models.Prediction{
			ID:           id,
			UserEmail:    userEmail,
			Input:        input,
			Result:       *result,
			InputSummary: services.SummarizeInput(&input),
		}

		updated, err := store.UpdatePrediction(ctx, id, userEmail, prediction)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to update prediction", nil)
			return
		}
		if !updated {
			utils.RespondWithNotFound(c, "Prediction not found")
			return
		}

		c.JSON(http.StatusOK, prediction)
	})

	api.DELETE("/predictions/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid prediction id", nil)
			return
		}

		deleted, err := store.DeletePrediction(c.Request.Context(), id, middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete prediction", nil)
			return
		}
		if !deleted {
			utils.RespondWithNotFound(c, "Prediction not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Prediction deleted"})
	})

	// Per-user variants. Prediction rows are keyed by the token's email,
	// so the path segment must match the caller's own identity.
	api.GET("/users/:id/predictions", func(c *gin.Context) {
		email := c.Param("id")
		if email != middleware.GetUserID(c) {
			utils.RespondWithForbidden(c, "Predictions are only visible to their owner")
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

		predictions, err := store.GetUserPredictions(c.Request.Context(), email, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list predictions", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"predictions": predictions, "count": len(predictions)})
	})

	api.GET("/users/:id/predictions/latest", func(c *gin.Context) {
		email := c.Param("id")
		if email != middleware.GetUserID(c) {
			utils.RespondWithForbidden(c, "Predictions are only visible to their owner")
			return
		}

		prediction, err := store.GetLatestPrediction(c.Request.Context(), email)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load prediction", nil)
			return
		}
		if prediction == nil {
			utils.RespondWithNotFound(c, "No predictions yet")
			return
		}

		c.JSON(http.StatusOK, prediction)
	})

}
