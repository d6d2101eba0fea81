package domain

import "github.com/shopspring/decimal" // Exact decimal money

// TransactionType tags the kind of money movement
type TransactionType string

const (
	TxTransferToAccount     TransactionType = "Transfer_To_Account"     // Wallet to trading account
	TxTransferFromAccount   TransactionType = "Transfer_From_Account"   // Trading account to wallet
	TxAccountOpeningDeposit TransactionType = "Account_Opening_Deposit" // Minimum deposit taken at account creation
	TxAdminCredit           TransactionType = "Admin_Credit"            // Funds added by an admin
	TxAdminDebit            TransactionType = "Admin_Debit"             // Funds deducted by an admin
)

// TransactionStatus is the settlement state of a transaction record
type TransactionStatus string

const (
	TxCompleted TransactionStatus = "Completed"
	TxFailed    TransactionStatus = "Failed"
	TxPending   TransactionStatus = "Pending"
)

// Payment methods recorded on internal movements
const (
	PaymentInternal = "Internal" // Wallet <-> trading account
	PaymentAdmin    = "Admin"    // Admin adjustment
)

// Transaction Model, append-only
type Transaction struct {
	ID               uint              `gorm:"primaryKey" json:"id"`                              // Primary key
	UserID           uint              `gorm:"index;not null" json:"user_id"`                     // Owner of the funds
	Type             TransactionType   `gorm:"size:32;not null" json:"type"`                      // Transaction type
	Amount           decimal.Decimal   `gorm:"type:decimal(20,8);not null" json:"amount"`         // Always positive
	PaymentMethod    string            `gorm:"size:32;not null" json:"payment_method"`            // Internal, Admin or an external method
	TradingAccountID *string           `gorm:"index;size:20" json:"trading_account_id,omitempty"` // Trading account involved, if any
	Status           TransactionStatus `gorm:"size:16;not null" json:"status"`                    // Settlement state
	Reference        string            `gorm:"uniqueIndex;size:64;not null" json:"reference"`     // Unique reference
	CreatedAt        int64             `gorm:"autoCreateTime:milli;index" json:"created_at"`      // Timestamp of creation in milliseconds
}

// TransferDirection says which way funds move between a wallet and a trading account
type TransferDirection string

const (
	DirectionDeposit  TransferDirection = "deposit"  // Wallet to trading account
	DirectionWithdraw TransferDirection = "withdraw" // Trading account to wallet
)

// Valid reports whether d is a known direction
func (d TransferDirection) Valid() bool {
	return d == DirectionDeposit || d == DirectionWithdraw
}

// TransactionType returns the ledger tag recorded for a transfer in direction d
func (d TransferDirection) TransactionType() TransactionType {
	if d == DirectionDeposit {
		return TxTransferToAccount
	}
	return TxTransferFromAccount
}
