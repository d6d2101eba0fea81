package domain

import "time"

// AdminAction tags an audited admin operation
type AdminAction string

const (
	ActionAddFunds        AdminAction = "ADD_FUNDS"
	ActionDeductFunds     AdminAction = "DEDUCT_FUNDS"
	ActionAddAccountFunds AdminAction = "ADD_ACCOUNT_FUNDS"
	ActionAddCredit       AdminAction = "ADD_CREDIT"
	ActionRemoveCredit    AdminAction = "REMOVE_CREDIT"
	ActionUpdateAccount   AdminAction = "UPDATE_ACCOUNT"
	ActionResetPIN        AdminAction = "RESET_PIN"
	ActionLoginAsUser     AdminAction = "LOGIN_AS_USER"
)

// TargetType names the kind of entity an admin action touched
type TargetType string

const (
	TargetWallet         TargetType = "WALLET"
	TargetTradingAccount TargetType = "TRADING_ACCOUNT"
	TargetUser           TargetType = "USER"
)

// Snapshot is a structured before or after value of an audited field set
type Snapshot map[string]any

// AdminLog Model, append-only
type AdminLog struct {
	ID            uint        `gorm:"primaryKey" json:"id"`                            // Primary key
	AdminID       uint        `gorm:"index;not null" json:"admin_id"`                  // Acting admin
	Action        AdminAction `gorm:"size:32;not null;index" json:"action"`            // What was done
	TargetType    TargetType  `gorm:"size:32;not null" json:"target_type"`             // Kind of target
	TargetID      string      `gorm:"size:64;not null;index" json:"target_id"`         // Target identifier
	PreviousValue Snapshot    `gorm:"serializer:json" json:"previous_value,omitempty"` // State before the change
	NewValue      Snapshot    `gorm:"serializer:json" json:"new_value,omitempty"`      // State after the change
	Reason        string      `gorm:"size:500" json:"reason"`                          // Free text reason
	CreatedAt     time.Time   `json:"created_at"`                                      // When the record was written
}
