// Package positions reads open trades owned by the trade engine. The ledger
// never writes this table.
package positions

import (
	"context"
	"fmt"

	"trading_ledger/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatusOpen is the trade engine's marker for a live position
const StatusOpen = "OPEN"

type tradeRow struct {
	ID               string          `gorm:"column:id"`
	TradingAccountID string          `gorm:"column:trading_account_id"`
	Status           string          `gorm:"column:status"`
	MarginUsed       decimal.Decimal `gorm:"column:margin_used"`
	FloatingPnl      decimal.Decimal `gorm:"column:floating_pnl"`
}

func (tradeRow) TableName() string { return "trades" }

// Reader aggregates open positions from the trades table
type Reader struct {
	db *gorm.DB
}

// NewReader reads positions through db
func NewReader(db *gorm.DB) *Reader {
	return &Reader{db: db}
}

// OpenPositions lists the open trades of accountID
func (r *Reader) OpenPositions(ctx context.Context, accountID string) ([]domain.Position, error) {
	var rows []tradeRow
	err := r.db.WithContext(ctx).
		Select("id", "margin_used", "floating_pnl").
		Where("trading_account_id = ? AND status = ?", accountID, StatusOpen).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query open trades: %w", err)
	}

	positions := make([]domain.Position, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, domain.Position{
			TradeID:     row.ID,
			MarginUsed:  row.MarginUsed,
			FloatingPnl: row.FloatingPnl,
		})
	}
	return positions, nil
}
