package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/usdtvault/vault/internal/vault/domain"
)

func TestPinSetup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")

	t.Run("requires the password", func(t *testing.T) {
		err := env.pins.Setup(ctx, user.ID, "wrong password", "123456")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("rejects anything but six digits", func(t *testing.T) {
		for _, pin := range []string{"12345", "1234567", "12345a", ""} {
			err := env.pins.Setup(ctx, user.ID, "correct horse battery", pin)
			require.ErrorIs(t, err, ErrPinMalformed, "pin %q", pin)
		}
	})

	require.NoError(t, env.pins.Setup(ctx, user.ID, "correct horse battery", "123456"))
	require.NoError(t, env.pins.Verify(ctx, user.ID, "123456"))

	t.Run("cannot set up twice", func(t *testing.T) {
		err := env.pins.Setup(ctx, user.ID, "correct horse battery", "654321")
		require.ErrorIs(t, err, ErrPinAlreadySet)
	})

	t.Run("no pin means no verify", func(t *testing.T) {
		other := env.createUser(t, "bob", "correct horse battery")
		err := env.pins.Verify(ctx, other.ID, "123456")
		require.ErrorIs(t, err, ErrPinNotSet)
	})
}

func TestPinVerifyLockout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	require.NoError(t, env.pins.Setup(ctx, user.ID, "correct horse battery", "123456"))

	// Four misses count down the remaining attempts.
	for i := 1; i <= domain.PinVerifyMaxAttempts-1; i++ {
		err := env.pins.Verify(ctx, user.ID, "000000")
		var invalid *InvalidPinError
		require.ErrorAs(t, err, &invalid)
		require.Equal(t, domain.PinVerifyMaxAttempts-i, invalid.AttemptsRemaining)
	}

	remaining, err := env.pins.Attempts(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)

	// The fifth miss engages the lockout.
	err = env.pins.Verify(ctx, user.ID, "000000")
	var locked *PinLockedError
	require.ErrorAs(t, err, &locked)
	require.Greater(t, locked.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, locked.RetryAfter, domain.PinVerifyLockout)

	// Even the correct PIN is rejected while locked.
	err = env.pins.Verify(ctx, user.ID, "123456")
	require.ErrorIs(t, err, ErrPinLocked)
}

func TestPinUpdate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	require.NoError(t, env.pins.Setup(ctx, user.ID, "correct horse battery", "123456"))

	require.NoError(t, env.pins.Update(ctx, user.ID, "123456", "654321"))
	require.NoError(t, env.pins.Verify(ctx, user.ID, "654321"))

	err := env.pins.Verify(ctx, user.ID, "123456")
	require.ErrorIs(t, err, ErrInvalidPin)
}

func TestPinUpdateLocksSooner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	require.NoError(t, env.pins.Setup(ctx, user.ID, "correct horse battery", "123456"))

	for i := 1; i <= domain.PinUpdateMaxAttempts-1; i++ {
		err := env.pins.Update(ctx, user.ID, "000000", "654321")
		var invalid *InvalidPinError
		require.ErrorAs(t, err, &invalid)
		require.Equal(t, domain.PinUpdateMaxAttempts-i, invalid.AttemptsRemaining)
	}

	// The third miss locks, well before the verify threshold.
	err := env.pins.Update(ctx, user.ID, "000000", "654321")
	var locked *PinLockedError
	require.ErrorAs(t, err, &locked)
	require.LessOrEqual(t, locked.RetryAfter, domain.PinUpdateLockout)

	// The shared counter locks verification too.
	err = env.pins.Verify(ctx, user.ID, "123456")
	require.ErrorIs(t, err, ErrPinLocked)
}

func TestPinResetByPasswordClearsLockout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	require.NoError(t, env.pins.Setup(ctx, user.ID, "correct horse battery", "123456"))

	for i := 0; i < domain.PinVerifyMaxAttempts; i++ {
		_ = env.pins.Verify(ctx, user.ID, "000000")
	}
	err := env.pins.Verify(ctx, user.ID, "123456")
	require.ErrorIs(t, err, ErrPinLocked)

	t.Run("reset still needs the password", func(t *testing.T) {
		err := env.pins.ResetByPassword(ctx, user.ID, "wrong password", "999999")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	require.NoError(t, env.pins.ResetByPassword(ctx, user.ID, "correct horse battery", "999999"))
	require.NoError(t, env.pins.Verify(ctx, user.ID, "999999"))
}

func TestPinRemove(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	require.NoError(t, env.pins.Setup(ctx, user.ID, "correct horse battery", "123456"))

	t.Run("requires the password", func(t *testing.T) {
		err := env.pins.Remove(ctx, user.ID, "wrong password")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	require.NoError(t, env.pins.Remove(ctx, user.ID, "correct horse battery"))

	err := env.pins.Verify(ctx, user.ID, "123456")
	require.ErrorIs(t, err, ErrPinNotSet)

	t.Run("remove without a pin", func(t *testing.T) {
		err := env.pins.Remove(ctx, user.ID, "correct horse battery")
		require.ErrorIs(t, err, ErrPinNotSet)
	})
}
