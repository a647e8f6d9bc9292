// internal/paper/position.go
package paper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/evm-copybot/internal/uniswap"
)

// Position is the single simulated holding. At most one exists at a time;
// the engine enforces that, not the caller.
type Position struct {
	Side         uniswap.Side    `json:"side"`
	BaseQuantity decimal.Decimal `json:"base_quantity"`
	QuoteValue   decimal.Decimal `json:"quote_value"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	OpenedAt     time.Time       `json:"opened_at"`
}

// ClosedTrade is the immutable record a position becomes when it closes.
type ClosedTrade struct {
	SequenceID      int             `json:"sequence_id"`
	Side            uniswap.Side    `json:"side"`
	BaseQuantity    decimal.Decimal `json:"base_quantity"`
	QuoteValue      decimal.Decimal `json:"quote_value"`
	EntryPrice      decimal.Decimal `json:"entry_price"`
	ExitPrice       decimal.Decimal `json:"exit_price"`
	OpenedAt        time.Time       `json:"opened_at"`
	ClosedAt        time.Time       `json:"closed_at"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl_quote"`
	RealizedPnLFrac decimal.Decimal `json:"realized_pnl_fraction"`
	DurationSeconds float64         `json:"duration_seconds"`
}

// Account holds the simulated balance and trade history. Mutated only by
// the Engine.
type Account struct {
	Balance        decimal.Decimal
	InitialBalance decimal.Decimal
	ClosedTrades   []ClosedTrade
	OpenPosition   *Position
}

// pnlFraction is the side-dependent return used for both mark-to-market
// and realized PnL: longs gain when price rises, shorts when it falls.
func pnlFraction(side uniswap.Side, entry, current decimal.Decimal) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	if side == uniswap.SideBuy {
		return current.Sub(entry).Div(entry)
	}
	return entry.Sub(current).Div(entry)
}
