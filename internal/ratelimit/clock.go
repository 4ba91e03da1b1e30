package ratelimit

import (
	"context"
	"time"
)

// Clock provides the current time and a cancellable suspend. Tests inject a
// controllable implementation; everything else uses the system clock.
type Clock interface {
	Now() time.Time
	// SleepUntil blocks until t or until ctx is done, whichever comes first.
	// It returns ctx.Err() when the wait was cancelled.
	SleepUntil(ctx context.Context, t time.Time) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
