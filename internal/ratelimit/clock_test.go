package ratelimit

import (
	"context"
	"sync"
	"time"
)

// fakeClock is a manual clock whose SleepUntil jumps the clock forward
// instead of blocking, so wait loops converge instantly in virtual time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) SleepUntil(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if t.After(c.now) {
		c.now = t
	}
	c.mu.Unlock()
	return nil
}

// gatedClock parks every sleeper until the test releases it, letting a test
// observe rule state while a waiter is suspended.
type gatedClock struct {
	fakeClock
	sleeps chan sleepCall
}

type sleepCall struct {
	until   time.Time
	release chan struct{}
}

func newGatedClock(start time.Time) *gatedClock {
	return &gatedClock{
		fakeClock: fakeClock{now: start},
		sleeps:    make(chan sleepCall),
	}
}

func (c *gatedClock) SleepUntil(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	call := sleepCall{until: t, release: make(chan struct{})}
	select {
	case c.sleeps <- call:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-call.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	if t.After(c.now) {
		c.now = t
	}
	c.mu.Unlock()
	return nil
}
