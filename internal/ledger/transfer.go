package ledger

import (
	"context"
	"fmt"

	"trading_ledger/internal/domain"
	"trading_ledger/internal/metrics"
	"trading_ledger/internal/store"
	"trading_ledger/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TransferRequest moves Amount between the wallet of UserID and AccountID
type TransferRequest struct {
	UserID              uint
	AccountID           string
	Amount              decimal.Decimal
	Direction           domain.TransferDirection
	PIN                 string
	SkipPINVerification bool // Trusted internal callers only
}

// TransferResult carries the balances after a committed transfer
type TransferResult struct {
	WalletBalance  decimal.Decimal `json:"wallet_balance"`
	AccountBalance decimal.Decimal `json:"account_balance"`
	Reference      string          `json:"reference"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// Transfer moves funds between a user's wallet and one of their trading
// accounts. The wallet and account are read, checked and written as one unit;
// the history record is appended after the unit commits.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	res, err := s.transfer(ctx, req)
	metrics.IncTransfer(string(req.Direction), outcome(err))
	return res, err
}

func (s *Service) transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := checkAmount(req.Amount); err != nil {
		return nil, err
	}
	if !req.Direction.Valid() {
		return nil, validationf("direction must be deposit or withdraw")
	}
	if !req.SkipPINVerification && !utils.IsValidPIN(req.PIN) {
		return nil, validationf("PIN must be exactly 4 digits")
	}

	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := checkTransferable(account, req.UserID); err != nil {
		return nil, err
	}
	if !req.SkipPINVerification {
		if err := s.checkPIN(ctx, account, req.PIN); err != nil {
			return nil, err
		}
	}

	fields := logrus.Fields{
		"user_id":    req.UserID,
		"account_id": req.AccountID,
		"direction":  req.Direction,
		"amount":     req.Amount.String(),
	}

	result := &TransferResult{}
	err = s.store.Atomic(ctx, func(tx store.Tx) error {
		wallet, err := tx.GetOrCreateWallet(ctx, req.UserID)
		if err != nil {
			return err
		}
		account, err := tx.LockAccount(ctx, req.AccountID)
		if err != nil {
			return err
		}
		// Ownership and status may have changed since the unlocked read.
		if err := checkTransferable(account, req.UserID); err != nil {
			return err
		}

		switch req.Direction {
		case domain.DirectionDeposit:
			if wallet.Balance.LessThan(req.Amount) {
				return fmt.Errorf("%w: wallet holds %s", domain.ErrInsufficientFunds, wallet.Balance.String())
			}
			wallet.Balance = wallet.Balance.Sub(req.Amount)
			account.Balance = account.Balance.Add(req.Amount)
		case domain.DirectionWithdraw:
			if account.Balance.LessThan(req.Amount) {
				return fmt.Errorf("%w: account holds %s", domain.ErrInsufficientFunds, account.Balance.String())
			}
			account.Balance = account.Balance.Sub(req.Amount)
			wallet.Balance = wallet.Balance.Add(req.Amount)
		}

		if err := tx.SaveWallet(ctx, wallet); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		result.WalletBalance = wallet.Balance
		result.AccountBalance = account.Balance
		return nil
	})
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Transfer rejected")
		return nil, err
	}

	result.Reference = s.ids.Reference(RefTransfer)
	result.Warnings = s.appendTransaction(ctx, &domain.Transaction{
		UserID:           req.UserID,
		Type:             req.Direction.TransactionType(),
		Amount:           req.Amount,
		PaymentMethod:    domain.PaymentInternal,
		TradingAccountID: &account.AccountID,
		Status:           domain.TxCompleted,
		Reference:        result.Reference,
	})

	fields["reference"] = result.Reference
	logrus.WithFields(fields).Info("Transfer completed")
	return result, nil
}

func checkTransferable(account *domain.TradingAccount, userID uint) error {
	if account.UserID != userID {
		return fmt.Errorf("trading account %s: %w", account.AccountID, domain.ErrNotFound)
	}
	if !account.IsActive() {
		return domain.ErrAccountInactive
	}
	return nil
}
