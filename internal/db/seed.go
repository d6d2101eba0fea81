package db

import (
	"fmt" // Error wrapping

	"trading_ledger/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Exact decimal money
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
	"gorm.io/gorm/clause"           // ON CONFLICT clauses
)

// DefaultAccountTypes are the plans offered on a fresh install
func DefaultAccountTypes() []domain.AccountType {
	return []domain.AccountType{
		{ID: 1, Name: "Standard", Description: "Entry level account", MinDeposit: decimal.NewFromInt(100), Leverage: 100, ExposureLimit: decimal.NewFromInt(50000), IsActive: true},
		{ID: 2, Name: "Pro", Description: "Tighter spreads, higher limits", MinDeposit: decimal.NewFromInt(1000), Leverage: 200, ExposureLimit: decimal.NewFromInt(250000), IsActive: true},
		{ID: 3, Name: "Demo", Description: "Practice account", MinDeposit: decimal.Zero, Leverage: 500, ExposureLimit: decimal.NewFromInt(10000), IsActive: true},
	}
}

// BootstrapAdmin is the super admin created when adminEmail is set
func BootstrapAdmin(adminEmail string) domain.Admin {
	return domain.Admin{
		ID:       1,
		Name:     "Administrator",
		Email:    adminEmail,
		Role:     domain.RoleSuperAdmin,
		IsActive: true,
	}
}

// Seed inserts the default account types and, when adminEmail is set, the
// bootstrap super admin. Rows that already exist are left untouched.
func Seed(db *gorm.DB, adminEmail string) error {
	types := DefaultAccountTypes()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&types).Error; err != nil {
		return fmt.Errorf("seed account types: %w", err)
	}
	if adminEmail != "" {
		admin := BootstrapAdmin(adminEmail)
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&admin).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	logrus.WithField("account_types", len(types)).Info("Seed completed.")
	return nil
}
