package middleware

import (
	"net/http"
	"strings"

	"github.com/MMTECHNOLOGIES228/GESTIONSPROJET-sub001/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware validates bearer tokens and sets the user id on the context.
func AuthMiddleware(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required", "code": "Unauthorized"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format", "code": "Unauthorized"})
			c.Abort()
			return
		}

		token, err := authService.ValidateToken(parts[1])
		if err != nil || !token.Valid {
			logger.Debug("token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "Unauthorized"})
			c.Abort()
			return
		}

		userID, err := authService.GetUserIDFromToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims", "code": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// GetUserID retrieves the authenticated user id set by AuthMiddleware.
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

// RequireUserID is GetUserID for handlers that already sit behind
// AuthMiddleware; it aborts with 401 if the id is somehow missing.
func RequireUserID(c *gin.Context) (string, bool) {
	id, ok := GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "Unauthorized"})
		c.Abort()
	}
	return id, ok
}
