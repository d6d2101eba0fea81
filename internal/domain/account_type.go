package domain

import "github.com/shopspring/decimal"

// AccountType is a plan a trading account is opened on
type AccountType struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:64;not null" json:"name"`
	Description   string          `gorm:"size:255" json:"description"`
	MinDeposit    decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"min_deposit"`
	Leverage      int             `gorm:"not null" json:"leverage"`
	ExposureLimit decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"exposure_limit"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
}
