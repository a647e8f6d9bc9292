// internal/wallet/filter.go
package wallet

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/evm-copybot/internal/uniswap"
)

// Verdict is the filter's decision for one trade: whether it triggers
// position entry and whether it is worth showing as activity.
type Verdict struct {
	IsSignal  bool
	IsVisible bool
}

// Filter decides which decoded trades are actionable. Thresholds are fixed
// at construction; only the TradingMode passed per call varies at runtime.
type Filter struct {
	watch               map[string]struct{}
	minTradeSize        decimal.Decimal
	demoShowThreshold   decimal.Decimal
	demoFollowThreshold decimal.Decimal
}

func NewFilter(watchSet []string, minTradeSize, demoShow, demoFollow decimal.Decimal) *Filter {
	watch := make(map[string]struct{}, len(watchSet))
	for _, addr := range watchSet {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			// An empty entry would otherwise match every trade whose
			// origin transaction was never resolved.
			continue
		}
		watch[addr] = struct{}{}
	}
	return &Filter{
		watch:               watch,
		minTradeSize:        minTradeSize,
		demoShowThreshold:   demoShow,
		demoFollowThreshold: demoFollow,
	}
}

// Evaluate applies the mode-dependent matching rules.
//
// SMART_WALLET: a signal is a watch-set trade at or above the minimum size;
// watched trades below size and everything else stay visible as background
// activity. A trade with unknown origin can never match the watch set.
//
// DEMO: the watch set is ignored; any BUY at or above the follow threshold
// is a signal, SELLs never are, and visibility has its own threshold.
func (f *Filter) Evaluate(trade *uniswap.Trade, mode TradingMode) Verdict {
	if mode == ModeDemo {
		return Verdict{
			IsSignal:  trade.Side == uniswap.SideBuy && trade.BaseQuantity.GreaterThanOrEqual(f.demoFollowThreshold),
			IsVisible: trade.BaseQuantity.GreaterThanOrEqual(f.demoShowThreshold),
		}
	}

	_, watched := f.watch[trade.OriginAddress]
	return Verdict{
		IsSignal:  watched && trade.BaseQuantity.GreaterThanOrEqual(f.minTradeSize),
		IsVisible: true,
	}
}

// Watches reports whether an address belongs to the watch set.
func (f *Filter) Watches(addr string) bool {
	_, ok := f.watch[strings.ToLower(addr)]
	return ok
}
