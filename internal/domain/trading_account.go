package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact decimal money
)

// AccountStatus is the lifecycle state of a trading account
type AccountStatus string

const (
	AccountActive    AccountStatus = "Active"    // Transfers allowed
	AccountSuspended AccountStatus = "Suspended" // Temporarily blocked by an admin
	AccountClosed    AccountStatus = "Closed"    // Permanently closed
)

// Valid reports whether s is one of the known statuses
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountSuspended, AccountClosed:
		return true
	}
	return false
}

// TradingAccount Model
type TradingAccount struct {
	ID            uint            `gorm:"primaryKey" json:"id"`                                        // Primary key
	UserID        uint            `gorm:"index;not null" json:"user_id"`                               // Owner
	AccountID     string          `gorm:"uniqueIndex;size:20;not null" json:"account_id"`              // Human readable identifier
	AccountTypeID uint            `gorm:"index;not null" json:"account_type_id"`                       // Plan the account was opened on
	Balance       decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"`        // Real, withdrawable funds
	Credit        decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"credit"`         // Bonus funds, not withdrawable
	PINHash       string          `gorm:"column:pin_hash;size:100;not null" json:"-"`                  // bcrypt hash of the transfer PIN
	Leverage      int             `gorm:"not null" json:"leverage"`                                    // Leverage multiplier
	ExposureLimit decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"exposure_limit"` // Maximum exposure
	Status        AccountStatus   `gorm:"size:16;not null;default:Active" json:"status"`               // Lifecycle state
	CreatedAt     time.Time       `json:"created_at"`                                                  // Creation time
	UpdatedAt     time.Time       `json:"updated_at"`                                                  // Last mutation time
}

// IsActive reports whether the account accepts transfers
func (a *TradingAccount) IsActive() bool {
	return a.Status == AccountActive
}
