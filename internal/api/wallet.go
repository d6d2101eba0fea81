package api

import (
	"context"  // Context for cache invalidation
	"net/http" // HTTP status codes
	"time"     // Time durations

	"trading_ledger/internal/domain" // Importing domain models
	"trading_ledger/internal/ledger" // Ledger service
	"trading_ledger/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// CacheTTL is how long cached reads are served before going back to the store
var CacheTTL = 60 * time.Second

// invalidateUser drops every cached read derived from userID's money,
// including the admin account list pages that show the balances
func invalidateUser(ctx context.Context, rdb redis.Cmdable, userID uint, accountIDs ...string) {
	keys := []string{utils.WalletKey(userID)} // Wallet cache key
	for _, id := range accountIDs {
		keys = append(keys, utils.AccountKey(id)) // Trading account cache keys
	}
	if err := utils.DeleteCache(ctx, rdb, keys...); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Cache invalidation failed")
	}
	// Every paginated history page of this user
	if err := utils.DeleteCachePrefix(ctx, rdb, utils.TxHistoryPrefix(userID)); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Cache invalidation failed")
	}
	if err := utils.DeleteCachePrefix(ctx, rdb, utils.AdminAccountsPrefix); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Cache invalidation failed")
	}
}

// CreateWalletHandler creates the caller's wallet if it does not exist yet
func CreateWalletHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		wallet, err := svc.GetOrCreateWallet(c.Request.Context(), userID) // Idempotent
		if err != nil {
			respondError(c, err, "Failed to create wallet")
			return
		}
		invalidateUser(c.Request.Context(), rdb, userID)
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet ready", "wallet": wallet})
	}
}

// GetWalletHandler returns wallet info for the authenticated user
func GetWalletHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()                                // Context for Redis operations
		cacheKey := utils.WalletKey(userID)                       // Cache key for wallet
		var wallet domain.Wallet                                  // Wallet struct to hold data
		found, err := utils.GetCache(ctx, rdb, cacheKey, &wallet) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": true})
			return
		}
		// If not in cache, fetch from the store
		stored, err := svc.GetWallet(ctx, userID)
		if err != nil {
			respondError(c, err, "Failed to load wallet")
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, stored, CacheTTL)        // Cache the wallet
		c.JSON(http.StatusOK, gin.H{"wallet": stored, "cached": false}) // Return wallet info
	}
}

type transactionPage struct {
	Transactions []domain.Transaction `json:"transactions"` // List of transactions
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
	Cached       bool                 `json:"cached"`       // Served from cache
}

// GetTransactionHistoryHandler returns the authenticated user's money movements, newest first
func GetTransactionHistoryHandler(svc *ledger.Service, rdb redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		writeTransactionPage(c, svc, rdb, userID)
	}
}

func writeTransactionPage(c *gin.Context, svc *ledger.Service, rdb redis.Cmdable, userID uint) {
	page, pageSize := pagination(c)
	ctx := c.Request.Context()
	cacheKey := utils.TxHistoryKey(userID, page, pageSize) // Redis cache key

	var cached transactionPage
	// Try to get from cache
	if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
		cached.Cached = true
		c.JSON(http.StatusOK, cached)
		return
	}

	txs, total, err := svc.ListTransactions(ctx, userID, page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to fetch transactions")
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	resp := transactionPage{
		Transactions: txs,                         // List of transactions
		Page:         page,                        // Current page
		PageSize:     pageSize,                    // Page size
		Total:        total,                       // Total transactions
		TotalPages:   totalPages(total, pageSize), // Total pages
	}
	_ = utils.SetCache(ctx, rdb, cacheKey, resp, CacheTTL) // Cache the result
	c.JSON(http.StatusOK, resp)                            // Return transaction history
}

// ListAccountTypesHandler returns the plans a user can open
func ListAccountTypesHandler(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		types, err := svc.ListAccountTypes(c.Request.Context())
		if err != nil {
			respondError(c, err, "Failed to fetch account types")
			return
		}
		if types == nil {
			types = []domain.AccountType{}
		}
		c.JSON(http.StatusOK, gin.H{"account_types": types})
	}
}
