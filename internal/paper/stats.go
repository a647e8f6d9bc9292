// internal/paper/stats.go
package paper

import "github.com/shopspring/decimal"

// AccountStats is the control-surface summary of the account.
type AccountStats struct {
	Balance         decimal.Decimal
	InitialBalance  decimal.Decimal
	TotalTrades     int
	Wins            int
	WinRate         float64
	TotalPnLQuote   decimal.Decimal
	TotalPnLPercent float64
	RecentTrades    []ClosedTrade
}

// Stats summarizes the account for display. recentN limits how many closed
// trades are returned, newest first.
func (e *Engine) Stats(recentN int) AccountStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := AccountStats{
		Balance:        e.account.Balance,
		InitialBalance: e.account.InitialBalance,
		TotalTrades:    len(e.account.ClosedTrades),
		TotalPnLQuote:  e.account.Balance.Sub(e.account.InitialBalance),
	}

	for _, t := range e.account.ClosedTrades {
		if t.RealizedPnL.Sign() > 0 {
			stats.Wins++
		}
	}
	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalTrades) * 100
	}
	if !stats.InitialBalance.IsZero() {
		stats.TotalPnLPercent, _ = stats.TotalPnLQuote.Div(stats.InitialBalance).Mul(decimal.NewFromInt(100)).Float64()
	}

	n := recentN
	if n > stats.TotalTrades {
		n = stats.TotalTrades
	}
	stats.RecentTrades = make([]ClosedTrade, 0, n)
	for i := stats.TotalTrades - 1; i >= stats.TotalTrades-n; i-- {
		stats.RecentTrades = append(stats.RecentTrades, e.account.ClosedTrades[i])
	}

	return stats
}
