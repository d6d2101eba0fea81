package store

import (
	"context"
	"fmt"

	"trading_ledger/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a relational database through GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Atomic runs fn inside a database transaction
func (s *GormStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	return translateError(err)
}

// GetWallet reads the wallet of userID without locking it
func (s *GormStore) GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, fmt.Errorf("wallet of user %d: %w", userID, translateError(err))
	}
	return &wallet, nil
}

// GetAccount reads a trading account by its public account ID
func (s *GormStore) GetAccount(ctx context.Context, accountID string) (*domain.TradingAccount, error) {
	var account domain.TradingAccount
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error; err != nil {
		return nil, fmt.Errorf("trading account %s: %w", accountID, translateError(err))
	}
	return &account, nil
}

// ListAccountsByUser returns the accounts of userID, newest first
func (s *GormStore) ListAccountsByUser(ctx context.Context, userID uint) ([]domain.TradingAccount, error) {
	var accounts []domain.TradingAccount
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&accounts).Error
	return accounts, translateError(err)
}

// ListAccounts pages through every trading account, newest first
func (s *GormStore) ListAccounts(ctx context.Context, page, pageSize int) ([]domain.TradingAccount, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.TradingAccount{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}
	var accounts []domain.TradingAccount
	err := s.db.WithContext(ctx).Order("created_at desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&accounts).Error
	return accounts, total, translateError(err)
}

// AppendTransaction inserts a history record
func (s *GormStore) AppendTransaction(ctx context.Context, tx *domain.Transaction) error {
	return translateError(s.db.WithContext(ctx).Create(tx).Error)
}

// ListTransactions pages through the history of userID, newest first
func (s *GormStore) ListTransactions(ctx context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	query := s.db.WithContext(ctx).Model(&domain.Transaction{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}
	var txs []domain.Transaction
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	return txs, total, translateError(err)
}

// GetAccountType reads one account plan
func (s *GormStore) GetAccountType(ctx context.Context, id uint) (*domain.AccountType, error) {
	var accountType domain.AccountType
	if err := s.db.WithContext(ctx).First(&accountType, id).Error; err != nil {
		return nil, fmt.Errorf("account type %d: %w", id, translateError(err))
	}
	return &accountType, nil
}

// ListAccountTypes returns the active plans, cheapest first
func (s *GormStore) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	var types []domain.AccountType
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("min_deposit asc").Find(&types).Error
	return types, translateError(err)
}

// GetAdmin reads an admin profile
func (s *GormStore) GetAdmin(ctx context.Context, id uint) (*domain.Admin, error) {
	var admin domain.Admin
	if err := s.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		return nil, fmt.Errorf("admin %d: %w", id, translateError(err))
	}
	return &admin, nil
}

// AppendAdminLog inserts an audit record
func (s *GormStore) AppendAdminLog(ctx context.Context, log *domain.AdminLog) error {
	return translateError(s.db.WithContext(ctx).Create(log).Error)
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) locking() *gorm.DB {
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GetOrCreateWallet inserts the wallet if absent, then locks it
func (t *gormTx) GetOrCreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	// Insert-if-absent keeps concurrent first accesses from racing on the unique user_id.
	if err := t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(domain.NewWallet(userID)).Error; err != nil {
		return nil, translateError(err)
	}
	var wallet domain.Wallet
	if err := t.locking().WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, fmt.Errorf("wallet of user %d: %w", userID, translateError(err))
	}
	return &wallet, nil
}

// LockAccount reads a trading account with FOR UPDATE
func (t *gormTx) LockAccount(ctx context.Context, accountID string) (*domain.TradingAccount, error) {
	var account domain.TradingAccount
	if err := t.locking().WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error; err != nil {
		return nil, fmt.Errorf("trading account %s: %w", accountID, translateError(err))
	}
	return &account, nil
}

// AccountIDExists reports whether accountID is taken
func (t *gormTx) AccountIDExists(ctx context.Context, accountID string) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&domain.TradingAccount{}).Where("account_id = ?", accountID).Count(&count).Error
	return count > 0, translateError(err)
}

// CreateAccount inserts a new trading account
func (t *gormTx) CreateAccount(ctx context.Context, account *domain.TradingAccount) error {
	return translateError(t.db.WithContext(ctx).Create(account).Error)
}

// SaveWallet writes the wallet balance back
func (t *gormTx) SaveWallet(ctx context.Context, wallet *domain.Wallet) error {
	res := t.db.WithContext(ctx).Model(&domain.Wallet{}).Where("id = ?", wallet.ID).Update("balance", wallet.Balance)
	return rowsUpdated(res, "wallet", wallet.ID)
}

// SaveAccount writes the mutable account columns back
func (t *gormTx) SaveAccount(ctx context.Context, account *domain.TradingAccount) error {
	res := t.db.WithContext(ctx).Model(&domain.TradingAccount{}).Where("id = ?", account.ID).Updates(map[string]any{
		"balance":        account.Balance,
		"credit":         account.Credit,
		"pin_hash":       account.PINHash,
		"leverage":       account.Leverage,
		"exposure_limit": account.ExposureLimit,
		"status":         account.Status,
	})
	return rowsUpdated(res, "trading account", account.ID)
}

func rowsUpdated(res *gorm.DB, what string, id uint) error {
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %d vanished during update", domain.ErrConflict, what, id)
	}
	return nil
}

var _ Store = (*GormStore)(nil)
