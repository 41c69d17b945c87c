package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingsGoal is an escrow bucket carved out of the user's wallet balance.
// Invariant: 0 <= Current <= Target, and the sum of Current across a user's
// goals never exceeds their wallet balance.
type SavingsGoal struct {
	ID     string
	UserID string
	Name   string

	Current decimal.Decimal
	Target  decimal.Decimal

	// SavingStreak counts consecutive days with at least one deposit.
	SavingStreak  int
	LastDepositAt *time.Time

	// A cooling-period withdrawal parks its amount here until CooldownUntil
	// passes, at which point housekeeping releases it back to the wallet.
	PendingWithdrawal decimal.Decimal
	CooldownUntil     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CooldownActive reports whether a scheduled withdrawal is still parked.
func (g *SavingsGoal) CooldownActive(now time.Time) bool {
	return g.CooldownUntil != nil && now.Before(*g.CooldownUntil)
}

// Progress returns Current/Target as a percentage, 0 when Target is zero.
func (g *SavingsGoal) Progress() decimal.Decimal {
	if g.Target.IsZero() {
		return decimal.Zero
	}
	return g.Current.Div(g.Target).Mul(decimal.NewFromInt(100)).Truncate(2)
}

// WithdrawalCooldown is how long a cooling-period withdrawal is parked
// before it lands back in the wallet.
const WithdrawalCooldown = 24 * time.Hour
