package api

import (
	"time" // Token lifetime

	"trading_ledger/internal/domain"     // Permissions
	"trading_ledger/internal/ledger"     // Ledger service
	"trading_ledger/internal/middleware" // Authentication middleware

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// RouteConfig carries what the handlers need besides the service
type RouteConfig struct {
	JWTSecret        string        // Secret for verifying and issuing tokens
	ImpersonationTTL time.Duration // Lifetime of login-as-user tokens
}

// RegisterRoutes mounts the ledger API on r. rdb may be nil to run without a cache.
func RegisterRoutes(r gin.IRouter, svc *ledger.Service, rdb redis.Cmdable, cfg RouteConfig) {
	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)

	// User routes (protected by JWT, user sessions only)
	user := r.Group("/api")
	user.Use(auth, middleware.UserOnlyMiddleware())
	user.POST("/wallet", CreateWalletHandler(svc, rdb))                      // Create wallet endpoint
	user.GET("/wallet", GetWalletHandler(svc, rdb))                          // Get wallet endpoint
	user.GET("/wallet/transactions", GetTransactionHistoryHandler(svc, rdb)) // Transaction history endpoint
	user.GET("/account-types", ListAccountTypesHandler(svc))                 // Account plans
	user.GET("/trading-accounts", ListAccountsHandler(svc))                  // Caller's accounts
	user.POST("/trading-accounts", CreateAccountHandler(svc, rdb))           // Open an account
	user.GET("/trading-accounts/:id", GetAccountHandler(svc, rdb))           // One account
	user.GET("/trading-accounts/:id/summary", AccountSummaryHandler(svc))    // Equity snapshot
	user.POST("/trading-accounts/:id/verify-pin", VerifyPINHandler(svc))     // PIN check
	user.PUT("/trading-accounts/:id/change-pin", ChangePINHandler(svc, rdb)) // PIN change
	user.POST("/trading-accounts/:id/transfer", TransferHandler(svc, rdb))   // Wallet <-> account

	// Admin routes (protected by JWT, capability checked per route)
	admin := r.Group("/api/admin")
	admin.Use(auth)
	perm := func(p domain.Permission) gin.HandlerFunc { return middleware.RequirePermission(svc, p) }

	admin.GET("/me", perm(""), AdminMeHandler())
	admin.GET("/trading-accounts", perm(domain.PermAccounts), ListAllAccountsHandler(svc, rdb))
	admin.GET("/trading-accounts/:id/summary", perm(domain.PermAccounts), AdminAccountSummaryHandler(svc))
	admin.PUT("/trading-accounts/:id", perm(domain.PermAccounts), UpdateAccountHandler(svc, rdb))
	admin.PUT("/trading-accounts/:id/reset-pin", perm(domain.PermAccounts), ResetPINHandler(svc))
	admin.POST("/trading-accounts/:id/add-fund", perm(domain.PermFunds), AddAccountFundsHandler(svc, rdb))
	admin.POST("/trading-accounts/:id/add-credit", perm(domain.PermFunds), AddCreditHandler(svc, rdb))
	admin.POST("/trading-accounts/:id/remove-credit", perm(domain.PermFunds), RemoveCreditHandler(svc, rdb))
	admin.GET("/users/:id/wallet", perm(domain.PermUsers), AdminUserWalletHandler(svc))
	admin.GET("/users/:id/trading-accounts", perm(domain.PermAccounts), AdminUserAccountsHandler(svc))
	admin.GET("/users/:id/transactions", perm(domain.PermTransactions), AdminUserTransactionsHandler(svc, rdb))
	admin.POST("/users/:id/add-fund", perm(domain.PermFunds), AddFundsHandler(svc, rdb))
	admin.POST("/users/:id/deduct", perm(domain.PermFunds), DeductFundsHandler(svc, rdb))
	admin.POST("/login-as-user/:userId", perm(domain.PermUsers), LoginAsUserHandler(svc, cfg.JWTSecret, cfg.ImpersonationTTL))
}
