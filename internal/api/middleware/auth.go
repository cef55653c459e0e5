package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/robe-lope/bookbuddy-swapper/internal/auth"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// ContextKeyUserID holds the key for the acting user's utils.SixID in Gin context.
const ContextKeyUserID = "userID"

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Invalid or expired token: %v", err)})
			return
		}

		userID, err := claims.SubjectID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token does not identify a user"})
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// CurrentUserID returns the user set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (utils.SixID, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return utils.SixID{}, false
	}
	id, ok := v.(utils.SixID)
	return id, ok && !id.IsZero()
}
