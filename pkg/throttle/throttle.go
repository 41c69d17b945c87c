// Package throttle provides sliding-window attempt counters with exponential
// backoff for sensitive verification paths (logins, PINs, one-time codes).
//
// Each key gets an independent window. Failures accumulate inside the window;
// once the count passes the policy's soft threshold every further attempt must
// wait out a delay that doubles per failure, and past the hard threshold
// attempts are rejected outright until the window resets. A successful
// verification should call Reset to clear the key immediately.
package throttle

import (
	"sync"
	"time"
)

// Policy tunes a Limiter. Zero thresholds disable the corresponding behaviour.
type Policy struct {
	// Window is how long failures count against a key.
	Window time.Duration

	// SoftThreshold is the failure count after which backoff delays kick in.
	SoftThreshold int

	// HardThreshold is the failure count at which attempts are rejected
	// until the window expires.
	HardThreshold int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// MaxDelay caps the backoff so a key is never locked out longer than
	// this between attempts (the hard threshold still applies).
	MaxDelay time.Duration
}

// DefaultPolicy matches the verification limits used for one-time codes:
// backoff after 3 failures, outright rejection after 5, 60s window.
var DefaultPolicy = Policy{
	Window:        time.Minute,
	SoftThreshold: 3,
	HardThreshold: 5,
	BaseDelay:     10 * time.Second,
	MaxDelay:      5 * time.Minute,
}

// Decision is the outcome of a Check.
type Decision struct {
	// Allowed reports whether the attempt may proceed now.
	Allowed bool

	// RetryAfter is how long the caller must wait before the next attempt
	// is worth making. Zero when Allowed.
	RetryAfter time.Duration

	// Remaining is how many more failures the key can absorb before the
	// hard threshold rejects it.
	Remaining int
}

type entry struct {
	mu          sync.Mutex
	failures    int
	windowStart time.Time
	lastFailure time.Time
}

// Limiter tracks failure counts per key under a single Policy.
type Limiter struct {
	policy  Policy
	entries sync.Map // key string -> *entry

	now func() time.Time
}

// New returns a Limiter for the given policy.
func New(policy Policy) *Limiter {
	return &Limiter{policy: policy, now: time.Now}
}

// Check evaluates whether an attempt for key may proceed right now. It does
// not record anything; call Fail after a failed verification and Reset after
// a successful one.
func (l *Limiter) Check(key string) Decision {
	e := l.load(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()
	l.rollWindow(e, now)

	remaining := l.policy.HardThreshold - e.failures
	if remaining < 0 {
		remaining = 0
	}

	if l.policy.HardThreshold > 0 && e.failures >= l.policy.HardThreshold {
		return Decision{
			RetryAfter: e.windowStart.Add(l.policy.Window).Sub(now),
			Remaining:  0,
		}
	}

	if l.policy.SoftThreshold > 0 && e.failures >= l.policy.SoftThreshold {
		wait := e.lastFailure.Add(l.delay(e.failures)).Sub(now)
		if wait > 0 {
			return Decision{RetryAfter: wait, Remaining: remaining}
		}
	}

	return Decision{Allowed: true, Remaining: remaining}
}

// Fail records a failed attempt for key.
func (l *Limiter) Fail(key string) {
	e := l.load(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()
	l.rollWindow(e, now)

	if e.failures == 0 {
		e.windowStart = now
	}
	e.failures++
	e.lastFailure = now
}

// Reset clears all recorded failures for key. Call it after a successful
// verification so legitimate users are not penalised for earlier typos.
func (l *Limiter) Reset(key string) {
	l.entries.Delete(key)
}

// Remaining reports how many failures key can still absorb.
func (l *Limiter) Remaining(key string) int {
	return l.Check(key).Remaining
}

// Sweep drops entries whose window has fully expired. Intended to be called
// periodically from a housekeeping loop to keep the map from growing with
// one-off keys.
func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0
	l.entries.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		stale := e.failures == 0 || now.Sub(e.windowStart) >= l.policy.Window
		e.mu.Unlock()
		if stale {
			l.entries.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// delay computes the backoff after n failures: BaseDelay doubling per failure
// beyond the soft threshold, capped at MaxDelay.
func (l *Limiter) delay(n int) time.Duration {
	shift := n - l.policy.SoftThreshold + 1
	if shift < 0 {
		shift = 0
	}

	d := l.policy.BaseDelay
	for i := 0; i < shift; i++ {
		d *= 2
		if l.policy.MaxDelay > 0 && d >= l.policy.MaxDelay {
			return l.policy.MaxDelay
		}
	}
	return d
}

func (l *Limiter) rollWindow(e *entry, now time.Time) {
	if e.failures > 0 && now.Sub(e.windowStart) >= l.policy.Window {
		e.failures = 0
		e.windowStart = time.Time{}
		e.lastFailure = time.Time{}
	}
}

func (l *Limiter) load(key string) *entry {
	if v, ok := l.entries.Load(key); ok {
		return v.(*entry)
	}
	v, _ := l.entries.LoadOrStore(key, &entry{})
	return v.(*entry)
}
