// internal/bot/clock.go
package bot

import (
	"context"
	"time"
)

// Clock abstracts wall time and pacing sleeps so the loop is testable
// without real waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until the context is cancelled, whichever is first.
func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
