package session

import (
	"context"
	"time"
)

// SleepStep is the polling increment used by interruptible waits
const SleepStep = 50 * time.Millisecond

// SleepFunc waits for d, checking for cancellation every step. It reports
// whether the full duration elapsed.
type SleepFunc func(ctx context.Context, d, step time.Duration) bool

// Sleep waits for d in SleepStep increments
func Sleep(ctx context.Context, d time.Duration) bool {
	return SleepEvery(ctx, d, SleepStep)
}

// SleepEvery waits for d in increments of step and returns false as soon as
// ctx is done. A non-positive d returns immediately.
func SleepEvery(ctx context.Context, d, step time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	if step <= 0 {
		step = SleepStep
	}

	deadline := time.Now().Add(d)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		left := time.Until(deadline)
		if left <= 0 {
			return true
		}
		if left > step {
			left = step
		}
		if timer == nil {
			timer = time.NewTimer(left)
		} else {
			timer.Reset(left)
		}
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return false
		}
	}
}
