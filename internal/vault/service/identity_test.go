package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/idx"
	"github.com/usdtvault/vault/pkg/jwtx"
)

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	pair, err := env.identity.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	t.Run("duplicate username rejected", func(t *testing.T) {
		_, err := env.identity.Register(ctx, "alice", "another password")
		require.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := env.identity.Register(ctx, "bob", "short")
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("short username rejected", func(t *testing.T) {
		_, err := env.identity.Register(ctx, "ab", "a long enough password")
		require.ErrorIs(t, err, ErrUsernameInvalid)
	})

	t.Run("login with correct password", func(t *testing.T) {
		pair, challenge, err := env.identity.Login(ctx, "alice", "correct horse battery")
		require.NoError(t, err)
		require.Nil(t, challenge)
		require.NotEmpty(t, pair.AccessToken)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		_, _, err := env.identity.Login(ctx, "alice", "wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginThrottledAfterRepeatedFailures(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	env.createUser(t, "alice", "correct horse battery")

	for i := 0; i < 3; i++ {
		_, _, err := env.identity.Login(ctx, "alice", "wrong password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, _, err := env.identity.Login(ctx, "alice", "wrong password")
	require.ErrorIs(t, err, ErrTooManyAttempts)

	var tooMany *TooManyAttemptsError
	require.ErrorAs(t, err, &tooMany)
	require.Greater(t, tooMany.RetryAfter, time.Duration(0))

	// The correct password is also blocked while the backoff holds.
	_, _, err = env.identity.Login(ctx, "alice", "correct horse battery")
	require.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestLoginUnknownUsernameCountsAgainstThrottle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := env.identity.Login(ctx, "nobody", "whatever password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, _, err := env.identity.Login(ctx, "nobody", "whatever password")
	require.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestLoginWithSecondFactor(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	secret := enrollTwoFactor(t, env, user, "correct horse battery")

	pair, challenge, err := env.identity.Login(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	require.Nil(t, pair)
	require.NotNil(t, challenge)
	require.True(t, challenge.ChallengeRequired)
	require.NotEmpty(t, challenge.ChallengeToken)
	require.Contains(t, challenge.Methods, "totp")

	t.Run("wrong code rejected", func(t *testing.T) {
		_, err := env.identity.CompleteChallenge(ctx, challenge.ChallengeToken, "00000000")
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("valid code issues tokens", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now().UTC())
		require.NoError(t, err)

		pair, err := env.identity.CompleteChallenge(ctx, challenge.ChallengeToken, code)
		require.NoError(t, err)

		claims, err := env.tokens.Validate(ctx, pair.AccessToken, jwtx.PurposeAccess)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)
	})

	t.Run("challenge is single use", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now().UTC())
		require.NoError(t, err)

		_, err = env.identity.CompleteChallenge(ctx, challenge.ChallengeToken, code)
		require.ErrorIs(t, err, ErrChallengeExpired)
	})
}

func TestCompleteChallengeAttemptCap(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")

	now := time.Now().UTC()
	session := domain.TwoFactorSession{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Attempts:  MaxChallengeAttempts,
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	require.NoError(t, env.store.TwoFactorSessions().CreateSession(ctx, session))

	_, err := env.identity.CompleteChallenge(ctx, session.ID, "123456")
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// The exhausted session is gone entirely.
	_, err = env.store.TwoFactorSessions().GetSession(ctx, session.ID)
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "old password 123")

	pair, err := env.tokens.IssuePair(ctx, user)
	require.NoError(t, err)

	t.Run("wrong old password rejected", func(t *testing.T) {
		err := env.identity.ChangePassword(ctx, user.ID, "not the password", "new password 456")
		require.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("weak new password rejected", func(t *testing.T) {
		err := env.identity.ChangePassword(ctx, user.ID, "old password 123", "tiny")
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	require.NoError(t, env.identity.ChangePassword(ctx, user.ID, "old password 123", "new password 456"))

	_, _, err = env.identity.Login(ctx, "alice", "old password 123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = env.identity.Login(ctx, "alice", "new password 456")
	require.NoError(t, err)

	// Refresh tokens minted before the change are dead.
	_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}
