package ledger

import (
	"context"
	"errors"
	"fmt"

	"trading_ledger/internal/domain"
	"trading_ledger/internal/metrics"
	"trading_ledger/internal/store"
	"trading_ledger/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxCreateAttempts = 3

// AccountOpening is the outcome of CreateAccount
type AccountOpening struct {
	Account       *domain.TradingAccount
	WalletBalance decimal.Decimal
	Reference     string   // Opening deposit reference, empty when nothing was deposited
	Warnings      []string // Post-commit bookkeeping that did not succeed
}

// AccountSettings is a partial update of a trading account's risk settings.
// Nil fields are left unchanged.
type AccountSettings struct {
	Leverage      *int
	ExposureLimit *decimal.Decimal
	Status        *domain.AccountStatus
}

// GetWallet returns the wallet of userID or ErrNotFound
func (s *Service) GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	return s.store.GetWallet(ctx, userID)
}

// GetOrCreateWallet returns the wallet of userID, creating an empty one if needed
func (s *Service) GetOrCreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var wallet *domain.Wallet
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		w, err := tx.GetOrCreateWallet(ctx, userID)
		wallet = w
		return err
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// GetAccount returns a trading account by its public id
func (s *Service) GetAccount(ctx context.Context, accountID string) (*domain.TradingAccount, error) {
	return s.store.GetAccount(ctx, accountID)
}

// GetUserAccount returns accountID only if it belongs to userID. Someone
// else's account is reported as not found.
func (s *Service) GetUserAccount(ctx context.Context, userID uint, accountID string) (*domain.TradingAccount, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("trading account %s: %w", accountID, domain.ErrNotFound)
	}
	return account, nil
}

// ListAccounts returns the trading accounts of userID, newest first
func (s *Service) ListAccounts(ctx context.Context, userID uint) ([]domain.TradingAccount, error) {
	return s.store.ListAccountsByUser(ctx, userID)
}

// ListAllAccounts pages through every trading account
func (s *Service) ListAllAccounts(ctx context.Context, page, pageSize int) ([]domain.TradingAccount, int64, error) {
	return s.store.ListAccounts(ctx, page, pageSize)
}

// ListTransactions pages through the money movements of userID, newest first
func (s *Service) ListTransactions(ctx context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	return s.store.ListTransactions(ctx, userID, page, pageSize)
}

// ListAccountTypes returns the plans a user can open
func (s *Service) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	return s.accountTypes.ListAccountTypes(ctx)
}

// GetAdmin returns an admin profile
func (s *Service) GetAdmin(ctx context.Context, adminID uint) (*domain.Admin, error) {
	return s.store.GetAdmin(ctx, adminID)
}

// CreateAccount opens a trading account of accountTypeID for userID. The
// plan's minimum deposit moves from the wallet to the new account in the same
// unit of work that inserts the account.
func (s *Service) CreateAccount(ctx context.Context, userID, accountTypeID uint, pin string) (*AccountOpening, error) {
	if !utils.IsValidPIN(pin) {
		return nil, validationf("PIN must be exactly 4 digits")
	}
	accountType, err := s.accountTypes.GetAccountType(ctx, accountTypeID)
	if err != nil {
		return nil, err
	}
	if !accountType.IsActive {
		return nil, validationf("account type %d is not available", accountTypeID)
	}
	pinHash, err := utils.HashPIN(pin)
	if err != nil {
		return nil, err
	}

	// The wallet outlives a rejected opening.
	if _, err := s.GetOrCreateWallet(ctx, userID); err != nil {
		return nil, err
	}

	var (
		account *domain.TradingAccount
		wallet  *domain.Wallet
	)
	for attempt := 1; ; attempt++ {
		account, wallet, err = s.openAccount(ctx, userID, accountType, pinHash)
		if err == nil || !errors.Is(err, store.ErrDuplicate) || attempt >= maxCreateAttempts {
			break
		}
		logrus.WithFields(logrus.Fields{"user_id": userID, "attempt": attempt}).Warn("Account id collision, retrying")
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":         userID,
			"account_type_id": accountTypeID,
		}).WithError(err).Warn("Trading account not created")
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: could not allocate a unique account id", domain.ErrConflict)
		}
		return nil, err
	}
	metrics.IncAccountsCreated()

	opening := &AccountOpening{Account: account, WalletBalance: wallet.Balance}
	if accountType.MinDeposit.IsPositive() {
		opening.Reference = s.ids.Reference(RefOpening)
		opening.Warnings = s.appendTransaction(ctx, &domain.Transaction{
			UserID:           userID,
			Type:             domain.TxAccountOpeningDeposit,
			Amount:           accountType.MinDeposit,
			PaymentMethod:    domain.PaymentInternal,
			TradingAccountID: &account.AccountID,
			Status:           domain.TxCompleted,
			Reference:        opening.Reference,
		})
	}

	logrus.WithFields(logrus.Fields{
		"user_id":      userID,
		"account_id":   account.AccountID,
		"account_type": accountType.Name,
		"min_deposit":  accountType.MinDeposit.String(),
	}).Info("Trading account created")
	return opening, nil
}

func (s *Service) openAccount(ctx context.Context, userID uint, accountType *domain.AccountType, pinHash string) (*domain.TradingAccount, *domain.Wallet, error) {
	var (
		account *domain.TradingAccount
		wallet  *domain.Wallet
	)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		w, err := tx.GetOrCreateWallet(ctx, userID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(accountType.MinDeposit) {
			return fmt.Errorf("%w: minimum deposit of %s required, wallet holds %s",
				domain.ErrInsufficientFunds, accountType.MinDeposit.String(), w.Balance.String())
		}

		accountID, err := s.freeAccountID(ctx, tx)
		if err != nil {
			return err
		}

		w.Balance = w.Balance.Sub(accountType.MinDeposit)
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		a := &domain.TradingAccount{
			UserID:        userID,
			AccountID:     accountID,
			AccountTypeID: accountType.ID,
			Balance:       accountType.MinDeposit,
			Credit:        decimal.Zero,
			PINHash:       pinHash,
			Leverage:      accountType.Leverage,
			ExposureLimit: accountType.ExposureLimit,
			Status:        domain.AccountActive,
		}
		if err := tx.CreateAccount(ctx, a); err != nil {
			return err
		}
		account, wallet = a, w
		return nil
	})
	return account, wallet, err
}

func (s *Service) freeAccountID(ctx context.Context, tx store.Tx) (string, error) {
	for i := 0; i < maxAccountIDAttempts; i++ {
		id, err := s.ids.AccountID()
		if err != nil {
			return "", err
		}
		taken, err := tx.AccountIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free account id after %d attempts: %w", maxAccountIDAttempts, store.ErrDuplicate)
}

// VerifyAccountPIN reports whether pin opens accountID. A wrong PIN is a
// false result, not an error; a locked account is ErrPINLocked and a PIN that
// is not four digits is ErrValidation.
func (s *Service) VerifyAccountPIN(ctx context.Context, userID uint, accountID, pin string) (bool, error) {
	if !utils.IsValidPIN(pin) {
		return false, validationf("PIN must be exactly 4 digits")
	}
	account, err := s.GetUserAccount(ctx, userID, accountID)
	if err != nil {
		return false, err
	}
	err = s.checkPIN(ctx, account, pin)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrWrongPIN):
		return false, nil
	default:
		return false, err
	}
}

// ChangeAccountPIN replaces the PIN of accountID after checking the current one
func (s *Service) ChangeAccountPIN(ctx context.Context, userID uint, accountID, currentPIN, newPIN string) error {
	if !utils.IsValidPIN(currentPIN) {
		return validationf("current PIN must be exactly 4 digits")
	}
	if !utils.IsValidPIN(newPIN) {
		return validationf("new PIN must be exactly 4 digits")
	}
	account, err := s.GetUserAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if err := s.checkPIN(ctx, account, currentPIN); err != nil {
		return err
	}
	hash, err := utils.HashPIN(newPIN)
	if err != nil {
		return err
	}
	if err := s.setPIN(ctx, accountID, hash); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "account_id": accountID}).Info("Trading account PIN changed")
	return nil
}

// ResetAccountPIN sets a new PIN without knowing the old one. Admin only; audited.
func (s *Service) ResetAccountPIN(ctx context.Context, actorID uint, accountID, newPIN, reason string) ([]string, error) {
	if !utils.IsValidPIN(newPIN) {
		return nil, validationf("new PIN must be exactly 4 digits")
	}
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPIN(newPIN)
	if err != nil {
		return nil, err
	}
	if err := s.setPIN(ctx, accountID, hash); err != nil {
		return nil, err
	}
	s.resetPINFailures(ctx, accountID)

	logrus.WithFields(logrus.Fields{"admin_id": actorID, "account_id": accountID}).Info("Trading account PIN reset by admin")
	return s.recordAudit(&domain.AdminLog{
		AdminID:       actorID,
		Action:        domain.ActionResetPIN,
		TargetType:    domain.TargetTradingAccount,
		TargetID:      accountID,
		PreviousValue: domain.Snapshot{"user_id": account.UserID},
		NewValue:      domain.Snapshot{"pin_reset": true},
		Reason:        reason,
	}), nil
}

func (s *Service) setPIN(ctx context.Context, accountID, hash string) error {
	return s.store.Atomic(ctx, func(tx store.Tx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		account.PINHash = hash
		return tx.SaveAccount(ctx, account)
	})
}

// UpdateAccountSettings changes leverage, exposure limit or status. Admin only; audited.
func (s *Service) UpdateAccountSettings(ctx context.Context, actorID uint, accountID string, settings AccountSettings, reason string) (*domain.TradingAccount, []string, error) {
	if settings.Leverage == nil && settings.ExposureLimit == nil && settings.Status == nil {
		return nil, nil, validationf("nothing to update")
	}
	if settings.Leverage != nil && *settings.Leverage <= 0 {
		return nil, nil, validationf("leverage must be positive")
	}
	if settings.ExposureLimit != nil && settings.ExposureLimit.IsNegative() {
		return nil, nil, validationf("exposure limit must not be negative")
	}
	if settings.Status != nil && !settings.Status.Valid() {
		return nil, nil, validationf("unknown account status %q", *settings.Status)
	}

	var (
		updated        *domain.TradingAccount
		previous, next domain.Snapshot
	)
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		previous, next = domain.Snapshot{}, domain.Snapshot{}
		if settings.Leverage != nil {
			previous["leverage"], next["leverage"] = account.Leverage, *settings.Leverage
			account.Leverage = *settings.Leverage
		}
		if settings.ExposureLimit != nil {
			previous["exposure_limit"], next["exposure_limit"] = account.ExposureLimit.String(), settings.ExposureLimit.String()
			account.ExposureLimit = *settings.ExposureLimit
		}
		if settings.Status != nil {
			previous["status"], next["status"] = account.Status, *settings.Status
			account.Status = *settings.Status
		}
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"admin_id":   actorID,
		"account_id": accountID,
		"changes":    next,
	}).Info("Trading account settings updated")
	warnings := s.recordAudit(&domain.AdminLog{
		AdminID:       actorID,
		Action:        domain.ActionUpdateAccount,
		TargetType:    domain.TargetTradingAccount,
		TargetID:      accountID,
		PreviousValue: previous,
		NewValue:      next,
		Reason:        reason,
	})
	return updated, warnings, nil
}

// LogImpersonation records that actorID opened a session as userID
func (s *Service) LogImpersonation(ctx context.Context, actorID, userID uint, reason string) []string {
	logrus.WithFields(logrus.Fields{"admin_id": actorID, "user_id": userID}).Warn("Admin logged in as user")
	return s.recordAudit(&domain.AdminLog{
		AdminID:    actorID,
		Action:     domain.ActionLoginAsUser,
		TargetType: domain.TargetUser,
		TargetID:   fmt.Sprint(userID),
		NewValue:   domain.Snapshot{"impersonated_user_id": userID},
		Reason:     reason,
	})
}
