package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Exact decimal money
)

// Wallet Model
type Wallet struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                                 // Primary key
	UserID    uint            `gorm:"uniqueIndex;not null" json:"user_id"`                  // Owner, one wallet per user
	Balance   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"` // Cash balance, never negative
	CreatedAt time.Time       `json:"created_at"`                                           // Creation time
	UpdatedAt time.Time       `json:"updated_at"`                                           // Last mutation time
}

// NewWallet returns an empty wallet for userID
func NewWallet(userID uint) *Wallet {
	return &Wallet{UserID: userID, Balance: decimal.Zero}
}
