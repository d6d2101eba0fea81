package db

import (
	"fmt" // Error wrapping

	"trading_ledger/internal/config" // Configuration
	"trading_ledger/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/driver/postgres"    // Postgres driver for GORM
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/logger"        // GORM query logger
)

// Open connects to the database named by cfg
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN())
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("driver %q has no database connection", cfg.DBDriver)
	}

	logLevel := logger.Warn // Slow queries and errors
	if cfg.IsProd {
		logLevel = logger.Error
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // Unique violations come back as gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}

// Models lists every table the ledger owns. The trades table belongs to the
// trade engine and is not migrated here.
func Models() []any {
	return []any{
		&domain.Wallet{},
		&domain.AccountType{},
		&domain.TradingAccount{},
		&domain.Transaction{},
		&domain.Admin{},
		&domain.AdminLog{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
