package main

import (
	"context"   // Shutdown deadlines and Redis ping
	"errors"    // Server closed check
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"trading_ledger/internal/api"       // HTTP handlers and routes
	"trading_ledger/internal/audit"     // Audit log dispatcher
	"trading_ledger/internal/config"    // Configuration
	"trading_ledger/internal/db"        // Database connection and migrations
	"trading_ledger/internal/ledger"    // Ledger service
	"trading_ledger/internal/positions" // Open trade reader
	"trading_ledger/internal/store"     // Persistence
	"trading_ledger/internal/utils"     // PIN limiter

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"github.com/sirupsen/logrus"                              // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	}

	st, pos := openStorage(cfg) // Ledger store and open trade source

	deps := ledger.Deps{Store: st}
	if pos != nil {
		deps.Positions = pos
	}

	// Setup Redis client, optional
	var cache redis.Cmdable
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		cache = redisClient
		deps.PINLimiter = utils.NewRedisPINLimiter(redisClient, cfg.PINMaxAttempts, cfg.PINLockoutWindow)
	} else {
		logrus.Warn("REDIS_ADDR not set, running without cache and PIN lockout")
	}

	// Audit records are written in the background with retries
	dispatcher := audit.NewDispatcher(st, cfg.AuditQueueSize, cfg.AuditMaxAttempts)
	deps.Audit = dispatcher
	go dispatcher.Run(context.Background())

	svc := ledger.NewService(deps)
	api.CacheTTL = cfg.CacheTTL

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	api.RegisterRoutes(r, svc, cache, api.RouteConfig{
		JWTSecret:        cfg.JWTSecret,        // Token secret
		ImpersonationTTL: cfg.ImpersonationTTL, // Login-as-user token lifetime
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // Prometheus scrape endpoint
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
	// Flush queued audit records before exit
	if err := dispatcher.Close(ctx); err != nil {
		logrus.WithError(err).Error("Audit queue not fully drained")
	}
	logrus.Info("Server exited")
}

// openStorage picks the store for cfg.DBDriver. The memory driver is seeded
// with the default account types and has no open trade source.
func openStorage(cfg *config.Config) (store.Store, *positions.Reader) {
	if cfg.DBDriver == config.DriverMemory {
		logrus.Warn("DB_DRIVER=memory, ledger state is lost on restart")
		mem := store.NewMemory()
		for _, at := range db.DefaultAccountTypes() {
			mem.PutAccountType(at)
		}
		if cfg.AdminEmail != "" {
			mem.PutAdmin(db.BootstrapAdmin(cfg.AdminEmail))
		}
		return mem, nil
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	return store.NewGormStore(gdb), positions.NewReader(gdb)
}
