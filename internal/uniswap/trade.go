// internal/uniswap/trade.go
package uniswap

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Side is the trade direction from the trader's perspective.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}

// MarshalJSON persists the side as its display string so saved account
// state stays readable.
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Side) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"BUY"`:
		*s = SideBuy
	case `"SELL"`:
		*s = SideSell
	default:
		return fmt.Errorf("unknown trade side %s", b)
	}
	return nil
}

// Trade is one decoded swap. Quantities and price are human-scaled; the
// origin address is empty when the parent transaction was unresolved.
type Trade struct {
	Side          Side
	BaseQuantity  decimal.Decimal
	QuoteQuantity decimal.Decimal
	Price         decimal.Decimal
	OriginAddress string
	PoolAddress   string
	TxHash        string
	BlockNumber   uint64
	Timestamp     uint64
}

func (t *Trade) String() string {
	origin := t.OriginAddress
	if origin == "" {
		origin = "unknown"
	}
	return fmt.Sprintf("%s %s @ %s (origin %s, block %d)",
		t.Side, t.BaseQuantity.StringFixed(4), t.Price.StringFixed(2), shortAddr(origin), t.BlockNumber)
}

func shortAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}
