package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// retryYield bounds the busy-retry loop when a rule's ReadyAt has already
// passed by the time the waiter rechecks.
const retryYield = time.Millisecond

// Action is the callable gated by the coordinator. It runs at most once per
// Perform call, and only after every rule has granted capacity.
type Action[T any] func(ctx context.Context, arg T) error

// Outcome classifies how a Perform call ended.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeFailed    Outcome = "failed"    // the action returned an error
	OutcomeCancelled Outcome = "cancelled" // the wait was cancelled before commit
)

// Coordinator gates an action behind a set of sliding-window rules.
//
// Perform runs in three phases: every rule is waited on concurrently until
// it confirms capacity, then all rules are charged, then the action runs.
// No rule is charged until all of them have confirmed, so a call that never
// executes (cancelled while waiting) leaves every rule untouched.
//
// Admission is best-effort ordered: a newly arriving call may take a freed
// slot before an older waiter that has not rechecked yet, so sustained
// contention can starve individual waiters.
type Coordinator[T any] struct {
	action Action[T]
	rules  []*Rule
	settings
}

type settings struct {
	clock     Clock
	onWait    func(rule string, wait time.Duration)
	onOutcome func(o Outcome)
}

type Option func(*settings)

// WithClock overrides the clock used to suspend between admission retries.
func WithClock(c Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithWaitHook is invoked each time a rule reports no capacity, with the
// planned suspend duration. Useful for metrics; may be nil.
func WithWaitHook(fn func(rule string, wait time.Duration)) Option {
	return func(s *settings) { s.onWait = fn }
}

// WithOutcomeHook is invoked once per Perform call with its final outcome.
func WithOutcomeHook(fn func(o Outcome)) Option {
	return func(s *settings) { s.onOutcome = fn }
}

func NewCoordinator[T any](action Action[T], rules []*Rule, opts ...Option) (*Coordinator[T], error) {
	if action == nil {
		return nil, ErrNilAction
	}
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	for i, r := range rules {
		if r == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNilRule, i)
		}
	}
	c := &Coordinator[T]{
		action:   action,
		rules:    append([]*Rule(nil), rules...),
		settings: settings{clock: systemClock{}},
	}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c, nil
}

// Perform blocks until every rule has capacity, charges them all, then runs
// the action with arg and returns its error unchanged.
//
// Cancellation is honored while waiting: the call unwinds with ctx.Err() and
// no rule is charged. Once all rules have granted, commit and execution run
// to completion regardless of ctx, so granted capacity is never stranded.
// The accounting reflects "accepted for execution": an action error does not
// roll the commits back.
//
// Between a rule's grant and the joint commit another Perform call may take
// a slot on that rule, leaving it briefly one entry over its limit. The
// overshoot is bounded by the number of in-flight calls and clears on the
// next eviction; re-checking at commit time would instead leave sibling
// rules charged for an action that never ran.
func (c *Coordinator[T]) Perform(ctx context.Context, arg T) error {
	grants := make([]time.Time, len(c.rules))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, r := range c.rules {
		p.Go(func(ctx context.Context) error {
			at, err := c.awaitSlot(ctx, r)
			if err != nil {
				return err
			}
			grants[i] = at
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		c.outcome(OutcomeCancelled)
		return err
	}

	for i, r := range c.rules {
		r.Commit(grants[i])
	}

	if err := c.action(ctx, arg); err != nil {
		c.outcome(OutcomeFailed)
		return err
	}
	c.outcome(OutcomeDone)
	return nil
}

// awaitSlot retries TryAdmit on r until it grants, suspending until the
// rule's ReadyAt between attempts. It returns the grant instant. The rule's
// lock is never held while suspended.
func (c *Coordinator[T]) awaitSlot(ctx context.Context, r *Rule) (time.Time, error) {
	for {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
		adm := r.TryAdmit()
		if adm.OK {
			return adm.At, nil
		}
		until := adm.ReadyAt
		if !until.After(adm.At) {
			until = adm.At.Add(retryYield)
		}
		if c.onWait != nil {
			c.onWait(r.String(), until.Sub(adm.At))
		}
		if err := c.clock.SleepUntil(ctx, until); err != nil {
			return time.Time{}, err
		}
	}
}

func (c *Coordinator[T]) outcome(o Outcome) {
	if c.onOutcome != nil {
		c.onOutcome(o)
	}
}
