package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLimiter(policy Policy) (*Limiter, *time.Time) {
	l := New(policy)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowsUntilSoftThreshold(t *testing.T) {
	l, _ := newTestLimiter(DefaultPolicy)

	for i := 0; i < 2; i++ {
		d := l.Check("user-1")
		require.True(t, d.Allowed)
		l.Fail("user-1")
	}

	d := l.Check("user-1")
	require.True(t, d.Allowed)
	require.Equal(t, 3, d.Remaining)
}

func TestBackoffDoublesAfterSoftThreshold(t *testing.T) {
	l, now := newTestLimiter(DefaultPolicy)

	for i := 0; i < 3; i++ {
		l.Fail("user-1")
	}

	// Three failures in: next attempt must wait 20s.
	d := l.Check("user-1")
	require.False(t, d.Allowed)
	require.Equal(t, 20*time.Second, d.RetryAfter)

	*now = now.Add(20 * time.Second)
	d = l.Check("user-1")
	require.True(t, d.Allowed)

	l.Fail("user-1")
	d = l.Check("user-1")
	require.False(t, d.Allowed)
	require.Equal(t, 40*time.Second, d.RetryAfter)
}

func TestHardThresholdRejectsUntilWindowReset(t *testing.T) {
	l, now := newTestLimiter(Policy{
		Window:        time.Minute,
		SoftThreshold: 3,
		HardThreshold: 5,
		BaseDelay:     10 * time.Second,
		MaxDelay:      5 * time.Minute,
	})

	start := *now
	for i := 0; i < 5; i++ {
		l.Fail("user-1")
	}

	d := l.Check("user-1")
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, start.Add(time.Minute).Sub(*now), d.RetryAfter)

	// Waiting out backoff alone doesn't help past the hard threshold.
	*now = now.Add(30 * time.Second)
	d = l.Check("user-1")
	require.False(t, d.Allowed)

	// Window expiry clears the slate.
	*now = start.Add(time.Minute)
	d = l.Check("user-1")
	require.True(t, d.Allowed)
	require.Equal(t, 5, d.Remaining)
}

func TestBackoffIsCapped(t *testing.T) {
	l, now := newTestLimiter(Policy{
		Window:        time.Hour,
		SoftThreshold: 1,
		HardThreshold: 100,
		BaseDelay:     10 * time.Second,
		MaxDelay:      5 * time.Minute,
	})

	for i := 0; i < 20; i++ {
		l.Fail("user-1")
		*now = now.Add(time.Second)
	}

	d := l.Check("user-1")
	require.False(t, d.Allowed)
	require.LessOrEqual(t, d.RetryAfter, 5*time.Minute)
}

func TestResetClearsKey(t *testing.T) {
	l, _ := newTestLimiter(DefaultPolicy)

	for i := 0; i < 5; i++ {
		l.Fail("user-1")
	}
	require.False(t, l.Check("user-1").Allowed)

	l.Reset("user-1")
	d := l.Check("user-1")
	require.True(t, d.Allowed)
	require.Equal(t, 5, d.Remaining)
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(DefaultPolicy)

	for i := 0; i < 5; i++ {
		l.Fail("user-1")
	}

	require.False(t, l.Check("user-1").Allowed)
	require.True(t, l.Check("user-2").Allowed)
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	l, now := newTestLimiter(DefaultPolicy)

	l.Fail("user-1")
	l.Fail("user-2")

	*now = now.Add(2 * time.Minute)
	require.Equal(t, 2, l.Sweep())

	_, ok := l.entries.Load("user-1")
	require.False(t, ok)
}
