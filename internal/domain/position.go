package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Position is the margin view of one open trade, as reported by the trade engine
type Position struct {
	TradeID     string          `json:"trade_id"`
	MarginUsed  decimal.Decimal `json:"margin_used"`
	FloatingPnl decimal.Decimal `json:"floating_pnl"`
}

// AccountSummary is the equity snapshot of a trading account. It is derived on
// every request and never stored.
type AccountSummary struct {
	AccountID      string          `json:"account_id"`
	UserID         uint            `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	Credit         decimal.Decimal `json:"credit"`
	Equity         decimal.Decimal `json:"equity"`
	UsedMargin     decimal.Decimal `json:"used_margin"`
	FreeMargin     decimal.Decimal `json:"free_margin"`
	MarginLevel    decimal.Decimal `json:"margin_level"` // Percent, two decimals, zero without open positions
	FloatingPnl    decimal.Decimal `json:"floating_pnl"`
	Leverage       int             `json:"leverage"`
	Status         AccountStatus   `json:"status"`
	OpenTradeCount int             `json:"open_trades_count"`
}

// MarshalJSON writes margin_level with exactly two decimal places
func (s AccountSummary) MarshalJSON() ([]byte, error) {
	type plain AccountSummary
	return json.Marshal(struct {
		plain
		MarginLevel string `json:"margin_level"`
	}{plain(s), s.MarginLevel.StringFixed(2)})
}
