package ledger

import (
	"context"

	"trading_ledger/internal/domain"
)

// PositionAggregator reports the open positions of a trading account. The
// trade engine owns positions; the ledger only reads them.
type PositionAggregator interface {
	OpenPositions(ctx context.Context, accountID string) ([]domain.Position, error)
}

// AccountTypeCatalog resolves account plans
type AccountTypeCatalog interface {
	GetAccountType(ctx context.Context, id uint) (*domain.AccountType, error)
	ListAccountTypes(ctx context.Context) ([]domain.AccountType, error)
}

// IDGenerator produces public account numbers and transaction references
type IDGenerator interface {
	AccountID() (string, error)
	Reference(prefix string) string
}

// AuditQueue accepts admin audit records after the change they describe has
// been committed. Implementations must not block.
type AuditQueue interface {
	Enqueue(log *domain.AdminLog) error
}

// PINAttemptLimiter tracks failed PIN entries per trading account
type PINAttemptLimiter interface {
	Locked(ctx context.Context, accountID string) (bool, error)
	RecordFailure(ctx context.Context, accountID string) (int, error)
	Reset(ctx context.Context, accountID string) error
}
