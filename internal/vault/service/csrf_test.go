package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCsrfIssueAndVerify(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.csrf.Issue(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Anonymous tokens verify for anyone.
	require.NoError(t, env.csrf.VerifyCsrfToken(ctx, token, ""))
	require.NoError(t, env.csrf.VerifyCsrfToken(ctx, token, "some-user"))

	t.Run("unknown token rejected", func(t *testing.T) {
		err := env.csrf.VerifyCsrfToken(ctx, "never-issued", "some-user")
		require.ErrorIs(t, err, ErrCsrfInvalid)
	})
}

func TestCsrfBindingPinsTheSubject(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.csrf.Issue(ctx, "")
	require.NoError(t, err)

	require.NoError(t, env.csrf.Bind(ctx, token, "alice-id"))

	require.NoError(t, env.csrf.VerifyCsrfToken(ctx, token, "alice-id"))
	require.ErrorIs(t, env.csrf.VerifyCsrfToken(ctx, token, "mallory-id"), ErrCsrfInvalid)

	t.Run("binding an unknown token fails", func(t *testing.T) {
		require.ErrorIs(t, env.csrf.Bind(ctx, "never-issued", "alice-id"), ErrCsrfInvalid)
	})
}

func TestCsrfDrop(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.csrf.Issue(ctx, "alice-id")
	require.NoError(t, err)

	require.NoError(t, env.csrf.Drop(ctx, token))
	require.ErrorIs(t, env.csrf.VerifyCsrfToken(ctx, token, "alice-id"), ErrCsrfInvalid)
}
