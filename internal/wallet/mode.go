// internal/wallet/mode.go
package wallet

import "sync/atomic"

// TradingMode selects which trades count as actionable signals.
type TradingMode int32

const (
	// ModeSmartWallet follows trades from the configured watch set only.
	ModeSmartWallet TradingMode = iota
	// ModeDemo follows any sufficiently large BUY, ignoring the watch set.
	ModeDemo
)

func (m TradingMode) String() string {
	if m == ModeDemo {
		return "DEMO"
	}
	return "SMART_WALLET"
}

// ModeSwitch is the thread-safe handoff between the UI and the ingestion
// loop. The UI toggles it from its own goroutine; the loop reads it once
// per processed trade, so a switch takes effect on the next trade and never
// touches an already-open position.
type ModeSwitch struct {
	v atomic.Int32
}

func NewModeSwitch(initial TradingMode) *ModeSwitch {
	s := &ModeSwitch{}
	s.v.Store(int32(initial))
	return s
}

func (s *ModeSwitch) Current() TradingMode {
	return TradingMode(s.v.Load())
}

// Toggle flips the mode and returns the new value.
func (s *ModeSwitch) Toggle() TradingMode {
	for {
		old := s.v.Load()
		next := int32(ModeSmartWallet)
		if TradingMode(old) == ModeSmartWallet {
			next = int32(ModeDemo)
		}
		if s.v.CompareAndSwap(old, next) {
			return TradingMode(next)
		}
	}
}
