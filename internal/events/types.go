// internal/events/types.go
package events

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/evm-copybot/internal/paper"
	"github.com/rovshanmuradov/evm-copybot/internal/uniswap"
)

// EventType represents the type of event.
type EventType string

const (
	// Stream events
	SwapObserved   EventType = "swap.observed"
	SignalDetected EventType = "signal.detected"

	// Position lifecycle
	PositionOpened EventType = "position.opened"
	PositionClosed EventType = "position.closed"

	// Loop / control events
	CursorAdvanced EventType = "cursor.advanced"
	ModeChanged    EventType = "mode.changed"
	ProviderError  EventType = "provider.error"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// SwapObservedEvent is emitted for every visible decoded swap, signal or
// not; it is the background-activity feed.
type SwapObservedEvent struct {
	BaseEvent
	Trade   uniswap.Trade
	Watched bool
}

func (e SwapObservedEvent) String() string {
	tag := ""
	if e.Watched {
		tag = " [watched]"
	}
	return fmt.Sprintf("swap %s%s", e.Trade.String(), tag)
}

// SignalDetectedEvent is emitted when a trade passes the wallet filter as
// actionable, whether or not a position could be opened.
type SignalDetectedEvent struct {
	BaseEvent
	Trade   uniswap.Trade
	Mode    string
	Dropped bool // true when a position was already open
}

func (e SignalDetectedEvent) String() string {
	if e.Dropped {
		return fmt.Sprintf("signal (%s) dropped, position busy: %s", e.Mode, e.Trade.String())
	}
	return fmt.Sprintf("signal (%s): %s", e.Mode, e.Trade.String())
}

// PositionOpenedEvent is emitted after the engine opens a position.
type PositionOpenedEvent struct {
	BaseEvent
	Position paper.Position
	TxHash   string
}

func (e PositionOpenedEvent) String() string {
	return fmt.Sprintf("opened %s %s @ %s (%s quote)",
		e.Position.Side, e.Position.BaseQuantity.StringFixed(4),
		e.Position.EntryPrice.StringFixed(2), e.Position.QuoteValue.StringFixed(2))
}

// PositionClosedEvent is emitted after a close, automatic or not.
type PositionClosedEvent struct {
	BaseEvent
	Trade   paper.ClosedTrade
	Balance decimal.Decimal
	Reason  string // "expiry" or "shutdown"
}

func (e PositionClosedEvent) String() string {
	return fmt.Sprintf("closed %s #%d @ %s, pnl %s (%s%%), balance %s [%s]",
		e.Trade.Side, e.Trade.SequenceID, e.Trade.ExitPrice.StringFixed(2),
		e.Trade.RealizedPnL.StringFixed(2),
		e.Trade.RealizedPnLFrac.Mul(decimal.NewFromInt(100)).StringFixed(2),
		e.Balance.StringFixed(2), e.Reason)
}

// CursorAdvancedEvent reports loop progress once per batch.
type CursorAdvancedEvent struct {
	BaseEvent
	FromBlock uint64
	NextBlock uint64
	Height    uint64
	Phase     string // "replay" or "live"
	BatchLogs int
}

func (e CursorAdvancedEvent) String() string {
	return fmt.Sprintf("cursor %d -> %d (height %d, %s, %d logs)",
		e.FromBlock, e.NextBlock, e.Height, e.Phase, e.BatchLogs)
}

// ModeChangedEvent is emitted when the trading mode toggles.
type ModeChangedEvent struct {
	BaseEvent
	Mode string
}

func (e ModeChangedEvent) String() string {
	return "mode switched to " + e.Mode
}

// ProviderErrorEvent surfaces a recovered per-iteration provider failure.
type ProviderErrorEvent struct {
	BaseEvent
	Err error
}

func (e ProviderErrorEvent) String() string {
	return fmt.Sprintf("provider error (retrying): %v", e.Err)
}
