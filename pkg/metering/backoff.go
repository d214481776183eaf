package metering

import (
	"context"
	"time"
)

// MaxBackoff caps the wait between attempts.
const MaxBackoff = 5 * time.Second

// Backoff returns the wait after the n-th failed attempt (n >= 1):
// 1s, 2s, 4s, then 5s from there on.
func Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	if n > 4 {
		return MaxBackoff
	}
	d := time.Second << (n - 1)
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the default SleepFunc. It blocks only the calling goroutine.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
