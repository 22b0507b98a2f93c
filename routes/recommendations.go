package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"maternal-care-platform/internal/database"
	"maternal-care-platform/middleware"
	"maternal-care-platform/models"
	"maternal-care-platform/services"
	"maternal-care-platform/utils"
)

// SetupRecommendationRoutes registers health-profile management and
// the daily recommendation endpoints.
func SetupRecommendationRoutes(router *gin.Engine, store *database.Store, recommender *services.Recommender, authMiddleware *middleware.AuthMiddleware) {
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	api.POST("/users", func(c *gin.Context) {
		var req models.RegisterProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		profile, err := store.CreateProfile(c.Request.Context(), &req)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create profile", nil)
			return
		}

		c.JSON(http.StatusCreated, profile)
	})

	api.GET("/users/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid user id", nil)
			return
		}

		profile, err := store.GetProfile(c.Request.Context(), id)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load profile", nil)
			return
		}
		if profile == nil {
			utils.RespondWithNotFound(c, "Profile not found")
			return
		}

		c.JSON(http.StatusOK, profile)
	})

	api.PUT("/users/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid user id", nil)
			return
		}

		var req models.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		profile, err := store.UpdateProfile(c.Request.Context(), id, &req)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to update profile", nil)
			return
		}
		if profile == nil {
			utils.RespondWithNotFound(c, "Profile not found")
			return
		}

		c.JSON(http.StatusOK, profile)
	})

	api.GET("/recommendations/:user_id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid user id", nil)
			return
		}

		ctx := c.Request.Context()
		profile, err := store.GetProfile(ctx, id)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load profile", nil)
			return
		}
		if profile == nil {
			utils.RespondWithNotFound(c, "Profile not found")
			return
		}

		rec, err := recommender.DailyRecommendation(ctx, profile)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate recommendation", nil)
			return
		}

		c.JSON(http.StatusOK, rec)
	})

	api.GET("/recommendations/:user_id/history", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid user id", nil)
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

		history, err := store.GetRecommendationHistory(c.Request.Context(), id, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load history", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"user_id": id, "recommendations": history, "count": len(history)})
	})
}
