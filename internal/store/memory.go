package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trading_ledger/internal/domain"
)

// Memory is an in-process Store. Units of work are serialised on a single
// mutex and their writes are staged until fn returns nil, so a failed unit
// leaves no trace.
type Memory struct {
	mu sync.RWMutex

	wallets      map[uint]domain.Wallet           // by user id
	accounts     map[string]domain.TradingAccount // by public account id
	transactions []domain.Transaction
	accountTypes map[uint]domain.AccountType
	admins       map[uint]domain.Admin
	adminLogs    []domain.AdminLog

	nextWalletID  uint
	nextAccountID uint
	nextTxID      uint
	nextLogID     uint
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		wallets:      make(map[uint]domain.Wallet),
		accounts:     make(map[string]domain.TradingAccount),
		accountTypes: make(map[uint]domain.AccountType),
		admins:       make(map[uint]domain.Admin),
	}
}

// PutAccountType seeds an account type
func (m *Memory) PutAccountType(t domain.AccountType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountTypes[t.ID] = t
}

// PutAdmin seeds an admin
func (m *Memory) PutAdmin(a domain.Admin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	m.admins[a.ID] = a
}

// AdminLogs returns a copy of every persisted audit record
func (m *Memory) AdminLogs() []domain.AdminLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.AdminLog(nil), m.adminLogs...)
}

// Atomic runs fn with the store locked and commits its staged writes if fn
// returns nil
func (m *Memory) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{
		m:        m,
		wallets:  make(map[uint]domain.Wallet),
		accounts: make(map[string]domain.TradingAccount),

		nextWalletID:  m.nextWalletID,
		nextAccountID: m.nextAccountID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	for userID, w := range tx.wallets {
		m.wallets[userID] = w
	}
	for id, a := range tx.accounts {
		m.accounts[id] = a
	}
	m.nextWalletID = tx.nextWalletID
	m.nextAccountID = tx.nextAccountID
	return nil
}

// GetWallet returns a copy of the committed wallet of userID
func (m *Memory) GetWallet(_ context.Context, userID uint) (*domain.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wallets[userID]
	if !ok {
		return nil, fmt.Errorf("wallet of user %d: %w", userID, domain.ErrNotFound)
	}
	return &w, nil
}

// GetAccount returns a copy of the committed trading account
func (m *Memory) GetAccount(_ context.Context, accountID string) (*domain.TradingAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("trading account %s: %w", accountID, domain.ErrNotFound)
	}
	return &a, nil
}

// ListAccountsByUser returns the accounts of userID, newest first
func (m *Memory) ListAccountsByUser(_ context.Context, userID uint) ([]domain.TradingAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.TradingAccount
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sortAccounts(out)
	return out, nil
}

// ListAccounts pages through every trading account, newest first
func (m *Memory) ListAccounts(_ context.Context, page, pageSize int) ([]domain.TradingAccount, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]domain.TradingAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		all = append(all, a)
	}
	sortAccounts(all)
	return paginate(all, page, pageSize), int64(len(all)), nil
}

// AppendTransaction stores a history record; references are unique
func (m *Memory) AppendTransaction(_ context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.transactions {
		if existing.Reference == tx.Reference {
			return fmt.Errorf("transaction reference %s: %w", tx.Reference, ErrDuplicate)
		}
	}
	m.nextTxID++
	tx.ID = m.nextTxID
	if tx.CreatedAt == 0 {
		tx.CreatedAt = time.Now().UnixMilli()
	}
	m.transactions = append(m.transactions, *tx)
	return nil
}

// ListTransactions pages through the history of userID, newest first
func (m *Memory) ListTransactions(_ context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var mine []domain.Transaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if m.transactions[i].UserID == userID {
			mine = append(mine, m.transactions[i])
		}
	}
	return paginate(mine, page, pageSize), int64(len(mine)), nil
}

// GetAccountType returns one seeded plan
func (m *Memory) GetAccountType(_ context.Context, id uint) (*domain.AccountType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.accountTypes[id]
	if !ok {
		return nil, fmt.Errorf("account type %d: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

// ListAccountTypes returns the active plans
func (m *Memory) ListAccountTypes(_ context.Context) ([]domain.AccountType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.AccountType
	for _, t := range m.accountTypes {
		if t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinDeposit.LessThan(out[j].MinDeposit) })
	return out, nil
}

// GetAdmin returns a seeded admin
func (m *Memory) GetAdmin(_ context.Context, id uint) (*domain.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, fmt.Errorf("admin %d: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

// AppendAdminLog stores an audit record
func (m *Memory) AppendAdminLog(_ context.Context, log *domain.AdminLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLogID++
	log.ID = m.nextLogID
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	m.adminLogs = append(m.adminLogs, *log)
	return nil
}

// memoryTx reads through its own staged writes before falling back to the
// committed state. The parent mutex is held for its whole life.
type memoryTx struct {
	m        *Memory
	wallets  map[uint]domain.Wallet
	accounts map[string]domain.TradingAccount

	nextWalletID  uint
	nextAccountID uint
}

func (t *memoryTx) wallet(userID uint) (domain.Wallet, bool) {
	if w, ok := t.wallets[userID]; ok {
		return w, true
	}
	w, ok := t.m.wallets[userID]
	return w, ok
}

func (t *memoryTx) account(accountID string) (domain.TradingAccount, bool) {
	if a, ok := t.accounts[accountID]; ok {
		return a, true
	}
	a, ok := t.m.accounts[accountID]
	return a, ok
}

// GetOrCreateWallet stages an empty wallet when userID has none
// GetOrCreateWallet stages an empty wallet when userID has none
func (t *memoryTx) GetOrCreateWallet(_ context.Context, userID uint) (*domain.Wallet, error) {
	if w, ok := t.wallet(userID); ok {
		return &w, nil
	}
	t.nextWalletID++
	w := *domain.NewWallet(userID)
	w.ID = t.nextWalletID
	now := time.Now()
	w.CreatedAt, w.UpdatedAt = now, now
	t.wallets[userID] = w
	return &w, nil
}

func (t *memoryTx) LockAccount(_ context.Context, accountID string) (*domain.TradingAccount, error) {
	a, ok := t.account(accountID)
	if !ok {
		return nil, fmt.Errorf("trading account %s: %w", accountID, domain.ErrNotFound)
	}
	return &a, nil
}

func (t *memoryTx) AccountIDExists(_ context.Context, accountID string) (bool, error) {
	_, ok := t.account(accountID)
	return ok, nil
}

// CreateAccount stages a new account under the next id
// CreateAccount stages a new account under the next id
func (t *memoryTx) CreateAccount(_ context.Context, account *domain.TradingAccount) error {
	if _, ok := t.account(account.AccountID); ok {
		return fmt.Errorf("trading account %s: %w", account.AccountID, ErrDuplicate)
	}
	t.nextAccountID++
	account.ID = t.nextAccountID
	now := time.Now()
	account.CreatedAt, account.UpdatedAt = now, now
	if account.Status == "" {
		account.Status = domain.AccountActive
	}
	t.accounts[account.AccountID] = *account
	return nil
}

func (t *memoryTx) SaveWallet(_ context.Context, wallet *domain.Wallet) error {
	if _, ok := t.wallet(wallet.UserID); !ok {
		return fmt.Errorf("wallet of user %d: %w", wallet.UserID, domain.ErrNotFound)
	}
	w := *wallet
	w.UpdatedAt = time.Now()
	t.wallets[wallet.UserID] = w
	return nil
}

func (t *memoryTx) SaveAccount(_ context.Context, account *domain.TradingAccount) error {
	if _, ok := t.account(account.AccountID); !ok {
		return fmt.Errorf("trading account %s: %w", account.AccountID, domain.ErrNotFound)
	}
	a := *account
	a.UpdatedAt = time.Now()
	t.accounts[account.AccountID] = a
	return nil
}

func sortAccounts(accounts []domain.TradingAccount) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID > accounts[j].ID
		}
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
}

func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var _ Store = (*Memory)(nil)
