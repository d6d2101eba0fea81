// Package store is the persistence boundary of the ledger. Two implementations
// are provided: GormStore for MySQL or Postgres, and Memory for tests and local
// development.
package store

import (
	"context"
	"errors"

	"trading_ledger/internal/domain"
)

// ErrDuplicate is returned when an insert hits a unique constraint
var ErrDuplicate = errors.New("duplicate key")

// Store is what the ledger needs from persistence.
type Store interface {
	// Atomic runs fn as one unit of work. Either everything fn wrote is
	// committed or nothing is.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error)
	GetAccount(ctx context.Context, accountID string) (*domain.TradingAccount, error)
	ListAccountsByUser(ctx context.Context, userID uint) ([]domain.TradingAccount, error)
	ListAccounts(ctx context.Context, page, pageSize int) ([]domain.TradingAccount, int64, error)

	AppendTransaction(ctx context.Context, tx *domain.Transaction) error
	ListTransactions(ctx context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error)

	GetAccountType(ctx context.Context, id uint) (*domain.AccountType, error)
	ListAccountTypes(ctx context.Context) ([]domain.AccountType, error)

	GetAdmin(ctx context.Context, id uint) (*domain.Admin, error)
	AppendAdminLog(ctx context.Context, log *domain.AdminLog) error
}

// Tx is the store as seen from inside a unit of work. Lock methods hold the
// row until the unit of work ends. Wallets are always locked before trading
// accounts so that two units touching the same pair cannot deadlock.
type Tx interface {
	// GetOrCreateWallet returns the locked wallet of userID, inserting an
	// empty one first when the user has none.
	GetOrCreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error)
	LockAccount(ctx context.Context, accountID string) (*domain.TradingAccount, error)
	AccountIDExists(ctx context.Context, accountID string) (bool, error)
	CreateAccount(ctx context.Context, account *domain.TradingAccount) error
	SaveWallet(ctx context.Context, wallet *domain.Wallet) error
	SaveAccount(ctx context.Context, account *domain.TradingAccount) error
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
