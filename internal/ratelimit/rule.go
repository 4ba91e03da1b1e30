package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Rule is one sliding-window counter: at most limit admissions within the
// trailing interval (now-window, now]. The interval is half-open, so an
// entry exactly window old no longer counts.
//
// Admission is split in two steps: TryAdmit confirms capacity without
// recording anything, Commit records the timestamp unconditionally. The
// split lets a caller coordinate several rules and only charge them once
// all of them have confirmed capacity.
type Rule struct {
	limit  int
	window time.Duration
	clock  Clock

	mu      sync.Mutex
	history []time.Time // chronological, oldest first
}

type RuleOption func(*Rule)

// WithRuleClock overrides the rule's time source.
func WithRuleClock(c Clock) RuleOption {
	return func(r *Rule) { r.clock = c }
}

func NewRule(limit int, window time.Duration, opts ...RuleOption) (*Rule, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidWindow, window)
	}
	r := &Rule{limit: limit, window: window, clock: systemClock{}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Admission is the result of one TryAdmit call.
type Admission struct {
	OK      bool
	At      time.Time // instant the decision was made; commit this on a grant
	ReadyAt time.Time // when !OK, earliest instant the oldest blocking entry expires
}

// TryAdmit evicts expired entries and reports whether capacity is available.
// Eviction and the capacity check run in one critical section, and the
// clock is read inside it so the decision matches the evicted state.
// A grant writes nothing; the caller commits separately.
func (r *Rule) TryAdmit() Admission {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.evict(now)

	if len(r.history) < r.limit {
		return Admission{OK: true, At: now}
	}
	return Admission{At: now, ReadyAt: r.history[0].Add(r.window)}
}

// Commit records ts unconditionally; capacity was already confirmed by the
// caller's TryAdmit. Under concurrent callers a rule can briefly hold one
// entry more than its limit, which the next eviction pass corrects.
func (r *Rule) Commit(ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, ts)
	// racing commits can land out of order; keep history chronological
	for i := len(r.history) - 1; i > 0 && r.history[i-1].After(r.history[i]); i-- {
		r.history[i-1], r.history[i] = r.history[i], r.history[i-1]
	}
}

// caller must hold mu
func (r *Rule) evict(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.history) && !r.history[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.history = r.history[i:]
	}
}

func (r *Rule) Limit() int            { return r.limit }
func (r *Rule) Window() time.Duration { return r.window }

// Len reports the current number of recorded admissions, without eviction.
func (r *Rule) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// History returns a copy of the recorded admission instants, oldest first.
func (r *Rule) History() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Time, len(r.history))
	copy(out, r.history)
	return out
}

// String identifies the rule in logs and metric labels, e.g. "3 per 5s".
func (r *Rule) String() string {
	return fmt.Sprintf("%d per %s", r.limit, r.window)
}
