// internal/bot/pacer.go
package bot

import "time"

// PacePhase is the loop's position relative to chain tip.
type PacePhase int

const (
	// PhaseReplay means the cursor is behind: query again as fast as the
	// provider allows.
	PhaseReplay PacePhase = iota
	// PhaseLive means the cursor is at (or within tolerance of) the tip:
	// sleep roughly one block period between queries.
	PhaseLive
)

func (p PacePhase) String() string {
	if p == PhaseLive {
		return "live"
	}
	return "replay"
}

// Pacer decides how long to sleep after each batch. Two states, named
// thresholds, no hidden wall-clock reads.
type Pacer struct {
	liveTolerance  uint64
	replayInterval time.Duration
	liveInterval   time.Duration
}

func NewPacer(liveTolerance uint64, replayInterval, liveInterval time.Duration) *Pacer {
	return &Pacer{
		liveTolerance:  liveTolerance,
		replayInterval: replayInterval,
		liveInterval:   liveInterval,
	}
}

// Assess classifies the cursor position after advancing to nextBlock with
// the chain at height, and returns the pause before the next query.
func (p *Pacer) Assess(nextBlock, height uint64) (PacePhase, time.Duration) {
	if nextBlock+p.liveTolerance >= height {
		return PhaseLive, p.liveInterval
	}
	return PhaseReplay, p.replayInterval
}
