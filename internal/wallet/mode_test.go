package wallet

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeSwitch_Toggle(t *testing.T) {
	s := NewModeSwitch(ModeSmartWallet)

	assert.Equal(t, ModeSmartWallet, s.Current())
	assert.Equal(t, ModeDemo, s.Toggle())
	assert.Equal(t, ModeDemo, s.Current())
	assert.Equal(t, ModeSmartWallet, s.Toggle())
}

func TestModeSwitch_ConcurrentToggles(t *testing.T) {
	s := NewModeSwitch(ModeSmartWallet)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Toggle()
		}()
	}
	wg.Wait()

	// An even number of toggles lands back on the initial mode.
	assert.Equal(t, ModeSmartWallet, s.Current())
}

func TestTradingMode_String(t *testing.T) {
	assert.Equal(t, "SMART_WALLET", ModeSmartWallet.String())
	assert.Equal(t, "DEMO", ModeDemo.String())
}
