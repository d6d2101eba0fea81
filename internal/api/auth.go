package api

import (
	"net/http" // HTTP status codes

	"trading_ledger/internal/ledger" // Ledger service
	"trading_ledger/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// VerifyPINRequest carries a PIN to check
type VerifyPINRequest struct {
	PIN string `json:"pin" binding:"required"` // Candidate PIN
}

// ChangePINRequest replaces a trading account PIN
type ChangePINRequest struct {
	CurrentPIN string `json:"current_pin" binding:"required"` // PIN in use
	NewPIN     string `json:"new_pin" binding:"required"`     // Four digits
}

// VerifyPINHandler reports whether a PIN opens the caller's trading account
func VerifyPINHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req VerifyPINRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		valid, err := svc.VerifyAccountPIN(c.Request.Context(), userID, c.Param("id"), req.PIN)
		if err != nil {
			respondError(c, err, "Error verifying PIN")
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": valid})
	}
}

// ChangePINHandler sets a new PIN after checking the current one
func ChangePINHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ChangePINRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		accountID := c.Param("id")
		if err := svc.ChangeAccountPIN(c.Request.Context(), userID, accountID, req.CurrentPIN, req.NewPIN); err != nil {
			respondError(c, err, "Error changing PIN")
			return
		}
		_ = utils.DeleteCache(c.Request.Context(), rdb, utils.AccountKey(accountID)) // Refresh cached record
		c.JSON(http.StatusOK, gin.H{"message": "PIN changed successfully"})
	}
}
