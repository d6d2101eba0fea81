package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"trading_ledger/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by the authentication middleware
const (
	CtxUserID         = "userID"
	CtxIsAdmin        = "isAdmin"
	CtxImpersonatedBy = "impersonatedBy"
	CtxAdmin          = "admin"
)

// JWTAuthMiddleware validates JWT tokens and extracts user information
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(CtxUserID, claims.UserID)                 // Store userID in context
		c.Set(CtxIsAdmin, claims.IsAdmin)               // Admin tokens carry the admin ID as subject
		c.Set(CtxImpersonatedBy, claims.ImpersonatedBy) // Non-zero for login-as-user sessions
		c.Next()                                        // Proceed to the next handler
	}
}

// UserOnlyMiddleware rejects admin tokens on routes that act on a user's own money
func UserOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(CtxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User session required"})
			return
		}
		c.Next()
	}
}
