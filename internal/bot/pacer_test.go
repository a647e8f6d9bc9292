package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPacer_Assess(t *testing.T) {
	p := NewPacer(2, 200*time.Millisecond, 12*time.Second)

	tests := []struct {
		name      string
		nextBlock uint64
		height    uint64
		phase     PacePhase
		pause     time.Duration
	}{
		{"far behind tip", 100, 1000, PhaseReplay, 200 * time.Millisecond},
		{"just outside tolerance", 997, 1000, PhaseReplay, 200 * time.Millisecond},
		{"within tolerance", 998, 1000, PhaseLive, 12 * time.Second},
		{"at tip", 1000, 1000, PhaseLive, 12 * time.Second},
		{"ahead of reported tip", 1001, 1000, PhaseLive, 12 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase, pause := p.Assess(tt.nextBlock, tt.height)
			assert.Equal(t, tt.phase, phase)
			assert.Equal(t, tt.pause, pause)
		})
	}
}

func TestPacePhase_String(t *testing.T) {
	assert.Equal(t, "replay", PhaseReplay.String())
	assert.Equal(t, "live", PhaseLive.String())
}
