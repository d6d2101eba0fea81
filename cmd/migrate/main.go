package main

import (
	"trading_ledger/internal/config" // Custom import path (Config)
	"trading_ledger/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logging library
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	if cfg.DBDriver == config.DriverMemory {
		logrus.Fatal("nothing to migrate for DB_DRIVER=memory")
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatal(err)
	}
	if err := db.Seed(gdb, cfg.AdminEmail); err != nil {
		logrus.Fatal(err)
	}
}
