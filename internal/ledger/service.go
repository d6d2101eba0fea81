// Package ledger is the money core of the trading platform: the user wallet,
// trading accounts, transfers between them, admin adjustments with their audit
// trail, and the derived equity summary of an account.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"trading_ledger/internal/domain"
	"trading_ledger/internal/metrics"
	"trading_ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxAccountIDAttempts = 10

// MoneyScale is the number of decimal places the money columns keep
const MoneyScale = 8

// Deps are the collaborators of a Service. Only Store is required.
type Deps struct {
	Store        store.Store
	Positions    PositionAggregator // nil: accounts have no open positions
	AccountTypes AccountTypeCatalog // nil: Store
	IDs          IDGenerator        // nil: RandomIDs
	Audit        AuditQueue         // nil: records are written to Store synchronously
	PINLimiter   PINAttemptLimiter  // nil: no lockout
}

// Service implements the ledger operations
type Service struct {
	store        store.Store
	positions    PositionAggregator
	accountTypes AccountTypeCatalog
	ids          IDGenerator
	audit        AuditQueue
	pinLimiter   PINAttemptLimiter
}

// NewService wires a Service
func NewService(d Deps) *Service {
	s := &Service{
		store:        d.Store,
		positions:    d.Positions,
		accountTypes: d.AccountTypes,
		ids:          d.IDs,
		audit:        d.Audit,
		pinLimiter:   d.PINLimiter,
	}
	if s.accountTypes == nil {
		s.accountTypes = d.Store
	}
	if s.ids == nil {
		s.ids = RandomIDs{}
	}
	if s.audit == nil {
		s.audit = &syncAudit{sink: d.Store}
	}
	return s
}

// syncAudit writes records inline. Used when no dispatcher is configured.
type syncAudit struct {
	sink interface {
		AppendAdminLog(ctx context.Context, log *domain.AdminLog) error
	}
}

func (a *syncAudit) Enqueue(log *domain.AdminLog) error {
	return a.sink.AppendAdminLog(context.Background(), log)
}

// recordAudit hands log to the audit queue. A failure becomes a warning.
func (s *Service) recordAudit(log *domain.AdminLog) []string {
	if err := s.audit.Enqueue(log); err != nil {
		logrus.WithFields(logrus.Fields{
			"action":    log.Action,
			"target_id": log.TargetID,
			"admin_id":  log.AdminID,
		}).WithError(err).Error("Failed to record admin audit log")
		return []string{fmt.Sprintf("audit record not written: %v", err)}
	}
	return nil
}

// appendTransaction writes a committed movement to the history. A failure
// becomes a warning; the movement itself stands.
func (s *Service) appendTransaction(ctx context.Context, tx *domain.Transaction) []string {
	if err := s.store.AppendTransaction(ctx, tx); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":   tx.UserID,
			"type":      tx.Type,
			"amount":    tx.Amount.String(),
			"reference": tx.Reference,
		}).WithError(err).Error("Failed to append transaction record")
		return []string{fmt.Sprintf("transaction record not written: %v", err)}
	}
	return nil
}

// IsRejection reports whether err is a business rejection rather than a fault
func IsRejection(err error) bool {
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrInsufficientFunds,
		domain.ErrInsufficientCredit,
		domain.ErrUnauthorized,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	return metrics.Outcome(err, IsRejection)
}

// checkAmount accepts a positive amount the money columns can store exactly
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return validationf("amount must be greater than zero")
	}
	return checkScale(amount)
}

// checkDelta accepts a non-zero signed change the money columns can store exactly
func checkDelta(delta decimal.Decimal) error {
	if delta.IsZero() {
		return validationf("delta must not be zero")
	}
	return checkScale(delta)
}

func checkScale(v decimal.Decimal) error {
	if !v.Equal(v.Truncate(MoneyScale)) {
		return validationf("amount has more than %d decimal places", MoneyScale)
	}
	return nil
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}
