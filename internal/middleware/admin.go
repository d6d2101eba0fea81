package middleware

import (
	"context"  // Request context
	"errors"   // Error kind checks
	"net/http" // HTTP status codes

	"trading_ledger/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AdminLookup loads an admin profile
type AdminLookup interface {
	GetAdmin(ctx context.Context, adminID uint) (*domain.Admin, error)
}

// RequirePermission checks the admin's role and capabilities from the store on
// each request. An empty perm admits any active admin.
func RequirePermission(admins AdminLookup, perm domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := c.GetUint(CtxUserID) // Subject of the token
		// Check that an admin token was presented
		if adminID == 0 || !c.GetBool(CtxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		admin, err := admins.GetAdmin(c.Request.Context(), adminID) // Fetch admin profile
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logrus.WithFields(logrus.Fields{
					"admin_id": adminID,
					"error":    err.Error(),
				}).Error("Failed to load admin")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load admin"})
				return
			}
			// Unknown admin
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// Disabled admins keep their token until expiry but lose all access
		if !admin.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin account is disabled"})
			return
		}
		if perm != "" && !admin.HasPermission(perm) {
			logrus.WithFields(logrus.Fields{
				"admin_id":   adminID,
				"role":       admin.Role,
				"permission": perm,
			}).Warn("Admin permission denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Set(CtxAdmin, admin) // Handlers read the acting admin from here
		c.Next()
	}
}
