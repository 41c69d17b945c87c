package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s *Store) domain.User {
	t.Helper()

	now := time.Now().UTC()
	u := domain.User{
		ID:            idx.New().String(),
		Username:      "alice-" + idx.New().String(),
		PasswordHash:  "argon2:dummy",
		Role:          domain.RoleUser,
		WalletBalance: decimal.RequireFromString("100"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Username, got.Username)
	require.True(t, got.WalletBalance.Equal(decimal.RequireFromString("100")))

	byName, err := s.Users().GetUserByUsername(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	require.NoError(t, s.Users().UpdateWalletBalance(ctx, u.ID, decimal.RequireFromString("42.12345678")))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "42.12345678", got.WalletBalance.String())

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := u
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
}

func TestRefreshTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)

	now := time.Now().UTC()
	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "hash-1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.False(t, got.Revoked)

	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "hash-1"))
	got, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.True(t, got.Revoked)

	expired := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "hash-2",
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, expired))
	require.NoError(t, s.RefreshTokens().DeleteExpiredRefreshTokens(ctx))
	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRevocationSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.RevokedTokens().RevokeToken(ctx, domain.RevokedToken{
		TokenHash: "fp-1",
		ExpiresAt: now.Add(time.Hour),
		RevokedAt: now,
	}))
	// Re-revoking is a no-op, not an error.
	require.NoError(t, s.RevokedTokens().RevokeToken(ctx, domain.RevokedToken{
		TokenHash: "fp-1",
		ExpiresAt: now.Add(time.Hour),
		RevokedAt: now,
	}))

	revoked, err := s.RevokedTokens().IsRevoked(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = s.RevokedTokens().IsRevoked(ctx, "fp-2")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestPinStateCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)

	now := time.Now().UTC()
	require.NoError(t, s.PinStates().UpsertPinState(ctx, domain.PinState{
		UserID:    u.ID,
		PinHash:   "argon2:pin",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	p, err := s.PinStates().RecordPinFailure(ctx, u.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, p.FailedAttempts)
	require.Nil(t, p.LockoutUntil)

	lock := now.Add(15 * time.Minute)
	p, err = s.PinStates().RecordPinFailure(ctx, u.ID, &lock)
	require.NoError(t, err)
	require.Equal(t, 2, p.FailedAttempts)
	require.NotNil(t, p.LockoutUntil)

	require.NoError(t, s.PinStates().ResetPinCounters(ctx, u.ID))
	p, err = s.PinStates().GetPinState(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, p.FailedAttempts)
	require.Nil(t, p.LockoutUntil)
}

func TestBackupCodeSingleUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)

	require.NoError(t, s.BackupCodes().CreateBackupCode(ctx, u.ID, "code-hash-1"))
	require.NoError(t, s.BackupCodes().CreateBackupCode(ctx, u.ID, "code-hash-2"))

	n, err := s.BackupCodes().CountUserBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	consumed, err := s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "code-hash-1")
	require.NoError(t, err)
	require.True(t, consumed)

	// Second redemption of the same code must fail.
	consumed, err = s.BackupCodes().ConsumeBackupCode(ctx, u.ID, "code-hash-1")
	require.NoError(t, err)
	require.False(t, consumed)
}

func TestCsrfTokenExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.CsrfTokens().CreateCsrfToken(ctx, domain.CsrfToken{
		TokenHash: "live",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, s.CsrfTokens().CreateCsrfToken(ctx, domain.CsrfToken{
		TokenHash: "stale",
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}))

	_, err := s.CsrfTokens().GetCsrfToken(ctx, "live")
	require.NoError(t, err)

	_, err = s.CsrfTokens().GetCsrfToken(ctx, "stale")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CsrfTokens().BindCsrfToken(ctx, "live", "user-1"))
	got, err := s.CsrfTokens().GetCsrfToken(ctx, "live")
	require.NoError(t, err)
	require.Equal(t, "user-1", got.SubjectID)
}

func TestGoalsAndDueWithdrawals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)

	now := time.Now().UTC()
	due := now.Add(-time.Minute)
	g := domain.SavingsGoal{
		ID:                idx.New().String(),
		UserID:            u.ID,
		Name:              "holiday",
		Current:           decimal.RequireFromString("30"),
		Target:            decimal.RequireFromString("50"),
		PendingWithdrawal: decimal.RequireFromString("10"),
		CooldownUntil:     &due,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, s.Goals().CreateGoal(ctx, g))

	goals, err := s.Goals().ListUserGoals(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	require.Equal(t, "30", goals[0].Current.String())

	dueGoals, err := s.Goals().ListDueWithdrawals(ctx, now)
	require.NoError(t, err)
	require.Len(t, dueGoals, 1)
	require.Equal(t, g.ID, dueGoals[0].ID)

	g.PendingWithdrawal = decimal.Zero
	g.CooldownUntil = nil
	require.NoError(t, s.Goals().UpdateGoal(ctx, g))

	dueGoals, err = s.Goals().ListDueWithdrawals(ctx, now)
	require.NoError(t, err)
	require.Empty(t, dueGoals)
}

func TestTransactionCorrelationKeyUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)

	now := time.Now().UTC()
	txn := domain.Transaction{
		ID:             idx.New().String(),
		UserID:         u.ID,
		Type:           domain.TransactionCredit,
		Amount:         decimal.RequireFromString("5"),
		CorrelationKey: "corr-1",
		Status:         domain.TransactionCompleted,
		CreatedAt:      now,
	}
	require.NoError(t, s.Transactions().CreateTransaction(ctx, txn))

	replay := txn
	replay.ID = idx.New().String()
	require.ErrorIs(t, s.Transactions().CreateTransaction(ctx, replay), store.ErrAlreadyExists)

	got, err := s.Transactions().GetByCorrelationKey(ctx, u.ID, "corr-1")
	require.NoError(t, err)
	require.Equal(t, txn.ID, got.ID)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateWalletBalance(ctx, u.ID, decimal.Zero); err != nil {
			return err
		}
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "100", got.WalletBalance.String())
}
