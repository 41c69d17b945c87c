package domain

import "time"

// PinState tracks a user's transaction PIN and its lockout counters.
// Lifecycle: created on setup, failed attempts accumulate on mismatch,
// lockout engages when they cross the threshold, everything resets on a
// successful verify or a password-authenticated reset.
type PinState struct {
	UserID         string
	PinHash        string // argon2 encoded
	FailedAttempts int
	LockoutUntil   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LockedUntil reports whether the PIN is locked at the given instant and, if
// so, how long remains.
func (p *PinState) LockedUntil(now time.Time) (bool, time.Duration) {
	if p.LockoutUntil == nil || !now.Before(*p.LockoutUntil) {
		return false, 0
	}
	return true, p.LockoutUntil.Sub(now)
}

// Lockout thresholds. Verification (the money-movement gate) tolerates more
// attempts than update (a credential change) to bias safety toward the
// irreversible action.
const (
	PinVerifyMaxAttempts = 5
	PinVerifyLockout     = 15 * time.Minute

	PinUpdateMaxAttempts = 3
	PinUpdateLockout     = 5 * time.Minute
)
