package middleware

import (
	"github.com/gin-gonic/gin"

	"maternal-care-platform/internal/config"
	"maternal-care-platform/utils"
)

// AuthMiddleware validates JWTs issued by the Spring Boot identity
// service. This service never issues tokens itself; it only verifies
// the shared-secret signature and reads the email out of the subject.
type AuthMiddleware struct {
	config *config.Config
}

func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{config: cfg}
}

// RequireAuth rejects requests without a valid bearer token and stores
// the authenticated user's email in the gin context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(tokenString, a.config.JWTSecret)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.Email())
		c.Set("claims", claims)
		c.Next()
	}
}

// OptionalAuth validates a token when one is present but never rejects
// the request. Handlers check GetUserID to branch on authentication.
func (a *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString != "" {
			if claims, err := utils.ValidateJWT(tokenString, a.config.JWTSecret); err == nil {
				c.Set("user_id", claims.Email())
				c.Set("claims", claims)
			}
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's email, or "".
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// IsAuthenticated reports whether the request carried a valid token.
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("user_id")
	return exists
}
