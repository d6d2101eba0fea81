package ledger

import (
	"context"

	"trading_ledger/internal/domain"
	"trading_ledger/internal/metrics"
	"trading_ledger/internal/utils"

	"github.com/sirupsen/logrus"
)

// checkPIN verifies pin against the account's stored hash and keeps the
// failure counter in step. The limiter failing open keeps Redis outages from
// locking every account.
func (s *Service) checkPIN(ctx context.Context, account *domain.TradingAccount, pin string) error {
	if s.pinLimiter != nil {
		locked, err := s.pinLimiter.Locked(ctx, account.AccountID)
		if err != nil {
			logrus.WithField("account_id", account.AccountID).WithError(err).Warn("PIN limiter unavailable")
		} else if locked {
			return domain.ErrPINLocked
		}
	}

	if !utils.VerifyPIN(account.PINHash, pin) {
		metrics.IncPINFailure()
		if s.pinLimiter != nil {
			if _, err := s.pinLimiter.RecordFailure(ctx, account.AccountID); err != nil {
				logrus.WithField("account_id", account.AccountID).WithError(err).Warn("Failed to record PIN failure")
			}
		}
		logrus.WithFields(logrus.Fields{
			"account_id": account.AccountID,
			"user_id":    account.UserID,
		}).Warn("Incorrect PIN")
		return domain.ErrWrongPIN
	}

	s.resetPINFailures(ctx, account.AccountID)
	return nil
}

func (s *Service) resetPINFailures(ctx context.Context, accountID string) {
	if s.pinLimiter == nil {
		return
	}
	if err := s.pinLimiter.Reset(ctx, accountID); err != nil {
		logrus.WithField("account_id", accountID).WithError(err).Warn("Failed to reset PIN failures")
	}
}
