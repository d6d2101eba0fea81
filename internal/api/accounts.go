package api

import (
	"net/http" // HTTP status codes

	"trading_ledger/internal/domain"     // Importing domain models
	"trading_ledger/internal/ledger"     // Ledger service
	"trading_ledger/internal/middleware" // Context keys
	"trading_ledger/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact decimal money
	"github.com/sirupsen/logrus"    // Logging library
)

// CreateAccountRequest opens a trading account
type CreateAccountRequest struct {
	AccountTypeID uint   `json:"account_type_id" binding:"required"` // Plan to open
	PIN           string `json:"pin" binding:"required"`             // Four digit transfer PIN
}

// TransferRequest moves funds between the wallet and a trading account
type TransferRequest struct {
	Amount              decimal.Decimal          `json:"amount"`                                              // Must be positive
	Direction           domain.TransferDirection `json:"direction" binding:"required,oneof=deposit withdraw"` // deposit or withdraw
	PIN                 string                   `json:"pin"`                                                 // Required unless skipped
	SkipPINVerification bool                     `json:"skip_pin_verification"`                               // Honoured for admin sessions only
}

// ListAccountsHandler returns the caller's trading accounts
func ListAccountsHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		accounts, err := svc.ListAccounts(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "Failed to fetch trading accounts")
			return
		}
		if accounts == nil {
			accounts = []domain.TradingAccount{}
		}
		c.JSON(http.StatusOK, gin.H{"accounts": accounts})
	}
}

// CreateAccountHandler opens a trading account funded with the plan's minimum deposit
func CreateAccountHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CreateAccountRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		opening, err := svc.CreateAccount(c.Request.Context(), userID, req.AccountTypeID, req.PIN)
		if err != nil {
			respondError(c, err, "Error creating account")
			return
		}
		invalidateUser(c.Request.Context(), rdb, userID) // Wallet was debited
		c.JSON(http.StatusCreated, gin.H{
			"message":        "Trading account created successfully",
			"account":        opening.Account,
			"wallet_balance": opening.WalletBalance,
			"reference":      opening.Reference,
			"warnings":       opening.Warnings,
		})
	}
}

// GetAccountHandler returns one of the caller's trading accounts
func GetAccountHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		accountID := c.Param("id")
		ctx := c.Request.Context()
		cacheKey := utils.AccountKey(accountID)

		var account domain.TradingAccount
		// Cached records are still subject to the ownership check
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &account); err == nil && found && account.UserID == userID {
			c.JSON(http.StatusOK, gin.H{"account": account, "cached": true})
			return
		}
		stored, err := svc.GetUserAccount(ctx, userID, accountID)
		if err != nil {
			respondError(c, err, "Failed to load trading account")
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, stored, CacheTTL)
		c.JSON(http.StatusOK, gin.H{"account": stored, "cached": false})
	}
}

// AccountSummaryHandler returns the live equity snapshot of one of the caller's accounts
func AccountSummaryHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		accountID := c.Param("id")
		if _, err := svc.GetUserAccount(c.Request.Context(), userID, accountID); err != nil {
			respondError(c, err, "Error fetching account summary")
			return
		}
		// Never cached: positions move continuously
		summary, err := svc.Summarize(c.Request.Context(), accountID)
		if err != nil {
			respondError(c, err, "Error fetching account summary")
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}

// TransferHandler moves funds between the caller's wallet and trading account
func TransferHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TransferRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		adminSession := c.GetUint(middleware.CtxImpersonatedBy) != 0
		accountID := c.Param("id")

		res, err := svc.Transfer(c.Request.Context(), ledger.TransferRequest{
			UserID:              userID,
			AccountID:           accountID,
			Amount:              req.Amount,
			Direction:           req.Direction,
			PIN:                 req.PIN,
			SkipPINVerification: req.SkipPINVerification && adminSession,
		})
		if err != nil {
			respondError(c, err, "Error transferring funds")
			return
		}
		invalidateUser(c.Request.Context(), rdb, userID, accountID)

		message := "Funds transferred to account successfully"
		if req.Direction == domain.DirectionWithdraw {
			message = "Funds withdrawn to main wallet successfully"
		}
		if adminSession {
			logrus.WithFields(logrus.Fields{
				"admin_id":   c.GetUint(middleware.CtxImpersonatedBy), // Acting admin
				"user_id":    userID,                                  // Impersonated user
				"account_id": accountID,                               // Trading account
				"reference":  res.Reference,                           // Transaction reference
			}).Warn("Transfer made in admin session")
		}
		c.JSON(http.StatusOK, gin.H{
			"message":         message,
			"wallet_balance":  res.WalletBalance,
			"account_balance": res.AccountBalance,
			"reference":       res.Reference,
			"warnings":        res.Warnings,
		})
	}
}
