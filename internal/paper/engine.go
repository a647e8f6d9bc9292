// internal/paper/engine.go
package paper

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-copybot/internal/uniswap"
)

var (
	// ErrPositionOpen is returned by Open while a position is already held.
	ErrPositionOpen = errors.New("position already open")
	// ErrNoPosition is returned by MarkToMarket when the account is flat.
	ErrNoPosition = errors.New("no open position")
)

// Engine is the account state machine: FLAT (no position) or OPEN (exactly
// one). The ingestion loop is the only writer; the mutex exists because the
// control surface reads stats from the UI goroutine.
type Engine struct {
	mu      sync.RWMutex
	account Account
	store   Store
	logger  *zap.Logger
}

// NewEngine loads persisted account state from store. A missing or corrupt
// state file starts a fresh account at initialBalance; persistence failures
// are never fatal.
func NewEngine(initialBalance decimal.Decimal, store Store, logger *zap.Logger) *Engine {
	e := &Engine{
		store:  store,
		logger: logger.Named("paper"),
		account: Account{
			Balance:        initialBalance,
			InitialBalance: initialBalance,
		},
	}

	if store == nil {
		return e
	}

	state, err := store.Load()
	if err != nil {
		e.logger.Warn("Account state unavailable, starting fresh",
			zap.Error(err),
			zap.String("balance", initialBalance.String()))
		return e
	}

	e.account.Balance = state.Balance
	e.account.ClosedTrades = state.Trades
	if !state.InitialBalance.IsZero() {
		e.account.InitialBalance = state.InitialBalance
	}
	e.logger.Info("Account state restored",
		zap.String("balance", state.Balance.String()),
		zap.Int("closed_trades", len(state.Trades)))
	return e
}

// Open transitions FLAT to OPEN. A signal arriving while a position is
// already held is dropped: the engine returns ErrPositionOpen and the
// account is untouched.
func (e *Engine) Open(side uniswap.Side, baseQty, quoteQty, price decimal.Decimal, now time.Time) (*Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.account.OpenPosition != nil {
		return nil, ErrPositionOpen
	}

	e.account.OpenPosition = &Position{
		Side:         side,
		BaseQuantity: baseQty,
		QuoteValue:   quoteQty,
		EntryPrice:   price,
		OpenedAt:     now,
	}

	e.logger.Info("Position opened",
		zap.String("side", side.String()),
		zap.String("base_qty", baseQty.String()),
		zap.String("entry_price", price.String()),
		zap.String("quote_value", quoteQty.String()))

	pos := *e.account.OpenPosition
	return &pos, nil
}

// MarkToMarket returns the unrealized return fraction and quote value at
// currentPrice. Pure read; valid only while OPEN.
func (e *Engine) MarkToMarket(currentPrice decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pos := e.account.OpenPosition
	if pos == nil {
		return decimal.Zero, decimal.Zero, ErrNoPosition
	}

	frac := pnlFraction(pos.Side, pos.EntryPrice, currentPrice)
	return frac, frac.Mul(pos.QuoteValue), nil
}

// Close transitions OPEN to FLAT, realizes PnL into the balance, appends the
// ClosedTrade, and persists. Returns (nil, nil) when already FLAT.
func (e *Engine) Close(exitPrice decimal.Decimal, now time.Time) (*ClosedTrade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.account.OpenPosition
	if pos == nil {
		return nil, nil
	}

	frac := pnlFraction(pos.Side, pos.EntryPrice, exitPrice)
	pnl := frac.Mul(pos.QuoteValue)

	closed := ClosedTrade{
		SequenceID:      len(e.account.ClosedTrades) + 1,
		Side:            pos.Side,
		BaseQuantity:    pos.BaseQuantity,
		QuoteValue:      pos.QuoteValue,
		EntryPrice:      pos.EntryPrice,
		ExitPrice:       exitPrice,
		OpenedAt:        pos.OpenedAt,
		ClosedAt:        now,
		RealizedPnL:     pnl,
		RealizedPnLFrac: frac,
		DurationSeconds: now.Sub(pos.OpenedAt).Seconds(),
	}

	e.account.ClosedTrades = append(e.account.ClosedTrades, closed)
	e.account.Balance = e.account.Balance.Add(pnl)
	e.account.OpenPosition = nil

	e.logger.Info("Position closed",
		zap.String("side", closed.Side.String()),
		zap.String("exit_price", exitPrice.String()),
		zap.String("pnl", pnl.String()),
		zap.String("balance", e.account.Balance.String()),
		zap.Float64("duration_sec", closed.DurationSeconds))

	e.persistLocked()
	return &closed, nil
}

// CheckExpiry closes the position at lastPrice once it has been held for
// holdDuration. The only automatic exit; repeated calls after expiry close
// exactly once because the first call leaves the account FLAT.
func (e *Engine) CheckExpiry(now time.Time, holdDuration time.Duration, lastPrice decimal.Decimal) (*ClosedTrade, error) {
	e.mu.RLock()
	pos := e.account.OpenPosition
	expired := pos != nil && now.Sub(pos.OpenedAt) >= holdDuration
	e.mu.RUnlock()

	if !expired {
		return nil, nil
	}
	return e.Close(lastPrice, now)
}

// OpenPosition returns a copy of the current position, or nil when FLAT.
func (e *Engine) OpenPosition() *Position {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.account.OpenPosition == nil {
		return nil
	}
	pos := *e.account.OpenPosition
	return &pos
}

// ClosedTrades returns a copy of the full trade history in close order.
func (e *Engine) ClosedTrades() []ClosedTrade {
	e.mu.RLock()
	defer e.mu.RUnlock()

	trades := make([]ClosedTrade, len(e.account.ClosedTrades))
	copy(trades, e.account.ClosedTrades)
	return trades
}

// Save forces a persistence pass outside the usual close path, used as a
// last write during graceful shutdown.
func (e *Engine) Save() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persistLocked()
}

// persistLocked rewrites the full account record. A write failure leaves
// the in-memory account authoritative; the next close retries.
func (e *Engine) persistLocked() {
	if e.store == nil {
		return
	}

	state := &State{
		Balance:        e.account.Balance,
		InitialBalance: e.account.InitialBalance,
		Trades:         e.account.ClosedTrades,
	}
	if err := e.store.Save(state); err != nil {
		e.logger.Error("Failed to persist account state", zap.Error(err))
	}
}
