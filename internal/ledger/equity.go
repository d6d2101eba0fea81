package ledger

import (
	"context"
	"fmt"

	"trading_ledger/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summarize derives the equity snapshot of accountID from its stored balance
// and credit and the open positions reported by the trade engine
func (s *Service) Summarize(ctx context.Context, accountID string) (*domain.AccountSummary, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var positions []domain.Position
	if s.positions != nil {
		positions, err = s.positions.OpenPositions(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("open positions of %s: %w", accountID, err)
		}
	}
	summary := ComputeSummary(account, positions)
	return &summary, nil
}

// ComputeSummary is the pure equity arithmetic:
//
//	equity      = balance + credit + floatingPnl
//	freeMargin  = equity - usedMargin
//	marginLevel = equity / usedMargin * 100, or 0 without used margin
func ComputeSummary(account *domain.TradingAccount, positions []domain.Position) domain.AccountSummary {
	usedMargin, floating := decimal.Zero, decimal.Zero
	for _, p := range positions {
		usedMargin = usedMargin.Add(p.MarginUsed)
		floating = floating.Add(p.FloatingPnl)
	}

	equity := account.Balance.Add(account.Credit).Add(floating)
	marginLevel := decimal.Zero
	if usedMargin.IsPositive() {
		marginLevel = equity.Div(usedMargin).Mul(hundred).Round(2)
	}

	return domain.AccountSummary{
		AccountID:      account.AccountID,
		UserID:         account.UserID,
		Balance:        account.Balance,
		Credit:         account.Credit,
		Equity:         equity,
		UsedMargin:     usedMargin,
		FreeMargin:     equity.Sub(usedMargin),
		MarginLevel:    marginLevel,
		FloatingPnl:    floating,
		Leverage:       account.Leverage,
		Status:         account.Status,
		OpenTradeCount: len(positions),
	}
}
