package api

import (
	"context"  // Request context
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Token lifetime

	"trading_ledger/internal/domain"     // Importing domain models
	"trading_ledger/internal/ledger"     // Ledger service
	"trading_ledger/internal/middleware" // Context keys
	"trading_ledger/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact decimal money
	"github.com/sirupsen/logrus"    // Logging library
)

// AdjustRequest is an admin balance or credit change
type AdjustRequest struct {
	Amount decimal.Decimal `json:"amount"`                    // Must be positive
	Reason string          `json:"reason" binding:"required"` // Recorded in the audit log
}

// UpdateAccountRequest changes trading account risk settings. Omitted fields stay unchanged.
type UpdateAccountRequest struct {
	Leverage      *int                  `json:"leverage"`
	ExposureLimit *decimal.Decimal      `json:"exposure_limit"`
	Status        *domain.AccountStatus `json:"status"`
	Reason        string                `json:"reason"`
}

// ResetPINRequest sets a new trading account PIN
type ResetPINRequest struct {
	NewPIN string `json:"new_pin" binding:"required"` // Four digits
	Reason string `json:"reason"`                     // Recorded in the audit log
}

// LoginAsUserRequest opens a support session as a user
type LoginAsUserRequest struct {
	Reason string `json:"reason"` // Recorded in the audit log
}

// AdminMeHandler returns the acting admin's profile
func AdminMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"admin": admin, "permissions": admin.Permissions})
	}
}

type accountPage struct {
	Accounts   []domain.TradingAccount `json:"accounts"`    // List of accounts
	Page       int                     `json:"page"`        // Current page
	PageSize   int                     `json:"page_size"`   // Page size
	Total      int64                   `json:"total"`       // Total number of accounts
	TotalPages int                     `json:"total_pages"` // Total pages
	Cached     bool                    `json:"cached"`      // Served from cache
}

// ListAllAccountsHandler pages through every trading account
func ListAllAccountsHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pagination(c)
		// Create a cache key based on pagination parameters
		cacheKey := utils.AdminAccountsKey(page, pageSize)
		var cached accountPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			cached.Cached = true
			c.JSON(http.StatusOK, cached)
			return
		}
		accounts, total, err := svc.ListAllAccounts(ctx, page, pageSize)
		if err != nil {
			respondError(c, err, "Failed to fetch accounts")
			return
		}
		if accounts == nil {
			accounts = []domain.TradingAccount{}
		}
		resp := accountPage{
			Accounts:   accounts,                    // List of accounts
			Page:       page,                        // Current page
			PageSize:   pageSize,                    // Page size
			Total:      total,                       // Total number of accounts
			TotalPages: totalPages(total, pageSize), // Total pages
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, CacheTTL) // Cache the response for future requests
		c.JSON(http.StatusOK, resp)
	}
}

// AdminUserWalletHandler returns a user's wallet
func AdminUserWalletHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		wallet, err := svc.GetWallet(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "Failed to load wallet")
			return
		}
		c.JSON(http.StatusOK, gin.H{"wallet": wallet})
	}
}

// AdminUserAccountsHandler returns a user's trading accounts
func AdminUserAccountsHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
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

// AdminUserTransactionsHandler returns a user's transaction history
func AdminUserTransactionsHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		writeTransactionPage(c, svc, rdb, userID)
	}
}

type walletAdjustFunc func(ctx context.Context, actorID, userID uint, amount decimal.Decimal, reason string) (*ledger.Adjustment, error)

type accountAdjustFunc func(ctx context.Context, actorID uint, accountID string, amount decimal.Decimal, reason string) (*ledger.Adjustment, error)

// AddFundsHandler credits a user's wallet
func AddFundsHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return walletAdjustHandler(svc.AddFunds, rdb, "Funds added successfully")
}

// DeductFundsHandler debits a user's wallet
func DeductFundsHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return walletAdjustHandler(svc.DeductFunds, rdb, "Funds deducted successfully")
}

func walletAdjustHandler(adjust walletAdjustFunc, rdb redis.Cmdable, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req AdjustRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		adj, err := adjust(c.Request.Context(), c.GetUint(middleware.CtxUserID), userID, req.Amount, req.Reason)
		if err != nil {
			respondError(c, err, "Error adjusting wallet")
			return
		}
		invalidateUser(c.Request.Context(), rdb, userID)
		c.JSON(http.StatusOK, gin.H{
			"message":          message,
			"previous_balance": adj.Previous,
			"balance":          adj.Current,
			"reference":        adj.Reference,
			"warnings":         adj.Warnings,
		})
	}
}

// AddAccountFundsHandler credits a trading account balance directly
func AddAccountFundsHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return accountAdjustHandler(svc, svc.AddAccountFunds, rdb, "balance", "Funds added to account successfully")
}

// AddCreditHandler grants bonus credit to a trading account
func AddCreditHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return accountAdjustHandler(svc, svc.AddCredit, rdb, "credit", "Credit added successfully")
}

// RemoveCreditHandler withdraws bonus credit from a trading account
func RemoveCreditHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return accountAdjustHandler(svc, svc.RemoveCredit, rdb, "credit", "Credit removed successfully")
}

func accountAdjustHandler(svc *ledger.Service, adjust accountAdjustFunc, rdb redis.Cmdable, field, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdjustRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		accountID := c.Param("id")
		adj, err := adjust(c.Request.Context(), c.GetUint(middleware.CtxUserID), accountID, req.Amount, req.Reason)
		if err != nil {
			respondError(c, err, "Error adjusting account")
			return
		}
		invalidateAccount(c.Request.Context(), svc, rdb, accountID)
		c.JSON(http.StatusOK, gin.H{
			"message":           message,
			"previous_" + field: adj.Previous,
			field:               adj.Current,
			"reference":         adj.Reference,
			"warnings":          adj.Warnings,
		})
	}
}

// invalidateAccount drops cached reads of an account and of its owner
func invalidateAccount(ctx context.Context, svc *ledger.Service, rdb redis.Cmdable, accountID string) {
	if rdb == nil {
		return
	}
	account, err := svc.GetAccount(ctx, accountID)
	if err != nil {
		_ = utils.DeleteCache(ctx, rdb, utils.AccountKey(accountID))
		_ = utils.DeleteCachePrefix(ctx, rdb, utils.AdminAccountsPrefix)
		return
	}
	invalidateUser(ctx, rdb, account.UserID, accountID)
}

// AdminAccountSummaryHandler returns the live equity snapshot of any account
func AdminAccountSummaryHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := svc.Summarize(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err, "Error fetching account summary")
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}

// UpdateAccountHandler changes leverage, exposure limit or status
func UpdateAccountHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateAccountRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		accountID := c.Param("id")
		account, warnings, err := svc.UpdateAccountSettings(c.Request.Context(), c.GetUint(middleware.CtxUserID), accountID, ledger.AccountSettings{
			Leverage:      req.Leverage,
			ExposureLimit: req.ExposureLimit,
			Status:        req.Status,
		}, req.Reason)
		if err != nil {
			respondError(c, err, "Error updating account")
			return
		}
		invalidateUser(c.Request.Context(), rdb, account.UserID, accountID) // Account record and admin list pages
		c.JSON(http.StatusOK, gin.H{"message": "Account updated", "account": account, "warnings": warnings})
	}
}

// ResetPINHandler sets a trading account PIN without the old one
func ResetPINHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPINRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		warnings, err := svc.ResetAccountPIN(c.Request.Context(), c.GetUint(middleware.CtxUserID), c.Param("id"), req.NewPIN, req.Reason)
		if err != nil {
			respondError(c, err, "Error resetting PIN")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "PIN reset successfully", "warnings": warnings})
	}
}

// LoginAsUserHandler issues a short lived user token flagged as an admin session
func LoginAsUserHandler(svc *ledger.Service, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "userId")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req LoginAsUserRequest
		_ = c.ShouldBindJSON(&req) // Body is optional
		adminID := c.GetUint(middleware.CtxUserID)

		token, err := utils.GenerateImpersonationJWT(userID, adminID, jwtSecret, ttl)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"admin_id": adminID,     // Acting admin
				"user_id":  userID,      // Target user
				"error":    err.Error(), // Error message
			}).Error("Failed to generate impersonation token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		reason := req.Reason
		if reason == "" {
			reason = "Admin logged in as user " + strconv.FormatUint(uint64(userID), 10)
		}
		warnings := svc.LogImpersonation(c.Request.Context(), adminID, userID, reason)
		c.JSON(http.StatusOK, gin.H{
			"message":    "Login as user successful",
			"token":      token,
			"expires_in": int(ttl.Seconds()),
			"warnings":   warnings,
		})
	}
}
