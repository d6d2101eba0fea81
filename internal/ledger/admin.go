package ledger

import (
	"context"
	"fmt"

	"trading_ledger/internal/domain"
	"trading_ledger/internal/metrics"
	"trading_ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Adjustment is the outcome of an admin balance or credit change
type Adjustment struct {
	TargetID  string          `json:"target_id"`
	Previous  decimal.Decimal `json:"previous"`
	Current   decimal.Decimal `json:"current"`
	Reference string          `json:"reference,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// AddFunds credits amount to the wallet of userID
func (s *Service) AddFunds(ctx context.Context, actorID, userID uint, amount decimal.Decimal, reason string) (*Adjustment, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return s.adjustWallet(ctx, actorID, userID, amount, reason, domain.ActionAddFunds)
}

// DeductFunds debits amount from the wallet of userID
func (s *Service) DeductFunds(ctx context.Context, actorID, userID uint, amount decimal.Decimal, reason string) (*Adjustment, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return s.adjustWallet(ctx, actorID, userID, amount.Neg(), reason, domain.ActionDeductFunds)
}

// AdjustWalletBalance applies a signed delta to the wallet of userID. A delta
// that would take the balance below zero is ErrInsufficientFunds.
func (s *Service) AdjustWalletBalance(ctx context.Context, actorID, userID uint, delta decimal.Decimal, reason string) (*Adjustment, error) {
	if err := checkDelta(delta); err != nil {
		return nil, err
	}
	action := domain.ActionAddFunds
	if delta.IsNegative() {
		action = domain.ActionDeductFunds
	}
	return s.adjustWallet(ctx, actorID, userID, delta, reason, action)
}

func (s *Service) adjustWallet(ctx context.Context, actorID, userID uint, delta decimal.Decimal, reason string, action domain.AdminAction) (*Adjustment, error) {
	adj := &Adjustment{TargetID: fmt.Sprint(userID)}
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		wallet, err := tx.GetOrCreateWallet(ctx, userID)
		if err != nil {
			return err
		}
		next := wallet.Balance.Add(delta)
		if next.IsNegative() {
			return fmt.Errorf("%w: wallet holds %s", domain.ErrInsufficientFunds, wallet.Balance.String())
		}
		adj.Previous = wallet.Balance
		wallet.Balance = next
		if err := tx.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		adj.Current = next
		return nil
	})
	metrics.IncAdminAdjustment(string(action), outcome(err))
	fields := logrus.Fields{
		"admin_id": actorID,
		"user_id":  userID,
		"action":   action,
		"delta":    delta.String(),
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Wallet adjustment rejected")
		return nil, err
	}

	txType := domain.TxAdminCredit
	if delta.IsNegative() {
		txType = domain.TxAdminDebit
	}
	adj.Reference = s.ids.Reference(RefAdmin)
	adj.Warnings = append(adj.Warnings, s.appendTransaction(ctx, &domain.Transaction{
		UserID:        userID,
		Type:          txType,
		Amount:        delta.Abs(),
		PaymentMethod: domain.PaymentAdmin,
		Status:        domain.TxCompleted,
		Reference:     adj.Reference,
	})...)
	adj.Warnings = append(adj.Warnings, s.recordAudit(&domain.AdminLog{
		AdminID:       actorID,
		Action:        action,
		TargetType:    domain.TargetWallet,
		TargetID:      adj.TargetID,
		PreviousValue: domain.Snapshot{"balance": adj.Previous.String()},
		NewValue:      domain.Snapshot{"balance": adj.Current.String()},
		Reason:        reason,
	})...)

	logrus.WithFields(fields).Info("Wallet adjusted by admin")
	return adj, nil
}

// AddCredit grants amount of bonus credit to accountID
func (s *Service) AddCredit(ctx context.Context, actorID uint, accountID string, amount decimal.Decimal, reason string) (*Adjustment, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return s.adjustCredit(ctx, actorID, accountID, amount, reason, domain.ActionAddCredit)
}

// RemoveCredit withdraws amount of bonus credit from accountID
func (s *Service) RemoveCredit(ctx context.Context, actorID uint, accountID string, amount decimal.Decimal, reason string) (*Adjustment, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return s.adjustCredit(ctx, actorID, accountID, amount.Neg(), reason, domain.ActionRemoveCredit)
}

// AdjustAccountCredit applies a signed delta to the credit of accountID. A
// delta that would take credit below zero is ErrInsufficientCredit.
func (s *Service) AdjustAccountCredit(ctx context.Context, actorID uint, accountID string, delta decimal.Decimal, reason string) (*Adjustment, error) {
	if err := checkDelta(delta); err != nil {
		return nil, err
	}
	action := domain.ActionAddCredit
	if delta.IsNegative() {
		action = domain.ActionRemoveCredit
	}
	return s.adjustCredit(ctx, actorID, accountID, delta, reason, action)
}

func (s *Service) adjustCredit(ctx context.Context, actorID uint, accountID string, delta decimal.Decimal, reason string, action domain.AdminAction) (*Adjustment, error) {
	adj := &Adjustment{TargetID: accountID}
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		next := account.Credit.Add(delta)
		if next.IsNegative() {
			return fmt.Errorf("%w: account credit is %s", domain.ErrInsufficientCredit, account.Credit.String())
		}
		adj.Previous = account.Credit
		account.Credit = next
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		adj.Current = next
		return nil
	})
	metrics.IncAdminAdjustment(string(action), outcome(err))
	fields := logrus.Fields{
		"admin_id":   actorID,
		"account_id": accountID,
		"action":     action,
		"delta":      delta.String(),
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Credit adjustment rejected")
		return nil, err
	}

	adj.Warnings = s.recordAudit(&domain.AdminLog{
		AdminID:       actorID,
		Action:        action,
		TargetType:    domain.TargetTradingAccount,
		TargetID:      accountID,
		PreviousValue: domain.Snapshot{"credit": adj.Previous.String()},
		NewValue:      domain.Snapshot{"credit": adj.Current.String()},
		Reason:        reason,
	})

	logrus.WithFields(fields).Info("Credit adjusted by admin")
	return adj, nil
}

// AddAccountFunds credits amount straight to the balance of accountID,
// bypassing the wallet
func (s *Service) AddAccountFunds(ctx context.Context, actorID uint, accountID string, amount decimal.Decimal, reason string) (*Adjustment, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}

	adj := &Adjustment{TargetID: accountID}
	var owner uint
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		account, err := tx.LockAccount(ctx, accountID)
		if err != nil {
			return err
		}
		adj.Previous = account.Balance
		account.Balance = account.Balance.Add(amount)
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		adj.Current = account.Balance
		owner = account.UserID
		return nil
	})
	metrics.IncAdminAdjustment(string(domain.ActionAddAccountFunds), outcome(err))
	fields := logrus.Fields{
		"admin_id":   actorID,
		"account_id": accountID,
		"amount":     amount.String(),
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Account funding rejected")
		return nil, err
	}

	adj.Reference = s.ids.Reference(RefAdmin)
	adj.Warnings = append(adj.Warnings, s.appendTransaction(ctx, &domain.Transaction{
		UserID:           owner,
		Type:             domain.TxAdminCredit,
		Amount:           amount,
		PaymentMethod:    domain.PaymentAdmin,
		TradingAccountID: &accountID,
		Status:           domain.TxCompleted,
		Reference:        adj.Reference,
	})...)
	adj.Warnings = append(adj.Warnings, s.recordAudit(&domain.AdminLog{
		AdminID:       actorID,
		Action:        domain.ActionAddAccountFunds,
		TargetType:    domain.TargetTradingAccount,
		TargetID:      accountID,
		PreviousValue: domain.Snapshot{"balance": adj.Previous.String()},
		NewValue:      domain.Snapshot{"balance": adj.Current.String()},
		Reason:        reason,
	})...)

	logrus.WithFields(fields).Info("Trading account funded by admin")
	return adj, nil
}
