package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/usdtvault/vault/internal/vault/domain"
)

func TestAvailableBalanceExcludesEscrow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")

	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	goal, err := env.ledger.CreateGoal(ctx, user.ID, "holiday", "500")
	require.NoError(t, err)

	_, err = env.ledger.Deposit(ctx, user.ID, goal.ID, "40", "")
	require.NoError(t, err)

	// The wallet balance itself is untouched; only the free portion shrinks.
	stored, err := env.store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, stored.WalletBalance.Equal(decimal.NewFromInt(100)))

	available, err := env.ledger.AvailableBalance(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, available.Equal(decimal.NewFromInt(60)), "available %s", available)

	t.Run("cannot withdraw escrowed funds", func(t *testing.T) {
		_, err := env.ledger.WalletWithdraw(ctx, user.ID, "70",
			"0x1111111111111111111111111111111111111111", "")
		require.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("free portion withdraws fine", func(t *testing.T) {
		_, err := env.ledger.WalletWithdraw(ctx, user.ID, "60",
			"0x1111111111111111111111111111111111111111", "")
		require.NoError(t, err)

		available, err := env.ledger.AvailableBalance(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, available.IsZero())
	})
}

func TestDepositValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	goal, err := env.ledger.CreateGoal(ctx, user.ID, "holiday", "50")
	require.NoError(t, err)

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := env.ledger.Deposit(ctx, user.ID, goal.ID, "-5", "")
		require.ErrorIs(t, err, domain.ErrAmountNotPositive)

		_, err = env.ledger.Deposit(ctx, user.ID, goal.ID, "0", "")
		require.ErrorIs(t, err, domain.ErrAmountNotPositive)

		_, err = env.ledger.Deposit(ctx, user.ID, goal.ID, "banana", "")
		require.ErrorIs(t, err, domain.ErrAmountMalformed)
	})

	t.Run("rejects overshooting the target", func(t *testing.T) {
		_, err := env.ledger.Deposit(ctx, user.ID, goal.ID, "60", "")
		require.ErrorIs(t, err, ErrGoalTargetExceeded)
	})

	t.Run("rejects a stranger's goal", func(t *testing.T) {
		other := env.createUser(t, "bob", "correct horse battery")
		_, err := env.ledger.Deposit(ctx, other.ID, goal.ID, "10", "")
		require.ErrorIs(t, err, ErrNotGoalOwner)
	})

	t.Run("unknown goal", func(t *testing.T) {
		_, err := env.ledger.Deposit(ctx, user.ID, "no-such-goal", "10", "")
		require.ErrorIs(t, err, ErrGoalNotFound)
	})
}

func TestDepositIdempotentReplay(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	goal, err := env.ledger.CreateGoal(ctx, user.ID, "holiday", "500")
	require.NoError(t, err)

	first, err := env.ledger.Deposit(ctx, user.ID, goal.ID, "40", "retry-key-1")
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := env.ledger.Deposit(ctx, user.ID, goal.ID, "40", "retry-key-1")
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Transaction.ID, second.Transaction.ID)

	// Nothing moved twice.
	stored, err := env.store.Goals().GetGoalByID(ctx, goal.ID)
	require.NoError(t, err)
	require.True(t, stored.Current.Equal(decimal.NewFromInt(40)))

	available, err := env.ledger.AvailableBalance(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, available.Equal(decimal.NewFromInt(60)))
}

func TestWithdrawImmediate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	goal, err := env.ledger.CreateGoal(ctx, user.ID, "holiday", "500")
	require.NoError(t, err)
	_, err = env.ledger.Deposit(ctx, user.ID, goal.ID, "40", "")
	require.NoError(t, err)

	t.Run("cannot take more than the goal holds", func(t *testing.T) {
		_, err := env.ledger.Withdraw(ctx, user.ID, goal.ID, "50", false, "")
		require.ErrorIs(t, err, ErrInsufficientGoal)
	})

	result, err := env.ledger.Withdraw(ctx, user.ID, goal.ID, "15", false, "")
	require.NoError(t, err)
	require.Equal(t, domain.TransactionCompleted, result.Transaction.Status)

	stored, err := env.store.Goals().GetGoalByID(ctx, goal.ID)
	require.NoError(t, err)
	require.True(t, stored.Current.Equal(decimal.NewFromInt(25)))
	require.Nil(t, stored.CooldownUntil)
	require.Zero(t, stored.SavingStreak, "withdrawing breaks the saving streak")

	available, err := env.ledger.AvailableBalance(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, available.Equal(decimal.NewFromInt(75)))
}

func TestWithdrawWithCooldown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	goal, err := env.ledger.CreateGoal(ctx, user.ID, "holiday", "500")
	require.NoError(t, err)
	_, err = env.ledger.Deposit(ctx, user.ID, goal.ID, "40", "")
	require.NoError(t, err)

	result, err := env.ledger.Withdraw(ctx, user.ID, goal.ID, "25", true, "")
	require.NoError(t, err)
	require.Equal(t, domain.TransactionPending, result.Transaction.Status)

	stored, err := env.store.Goals().GetGoalByID(ctx, goal.ID)
	require.NoError(t, err)
	require.True(t, stored.Current.Equal(decimal.NewFromInt(15)))
	require.True(t, stored.PendingWithdrawal.Equal(decimal.NewFromInt(25)))
	require.NotNil(t, stored.CooldownUntil)

	// The parked amount stays escrowed until released.
	available, err := env.ledger.AvailableBalance(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, available.Equal(decimal.NewFromInt(60)))

	t.Run("goal is frozen while cooling", func(t *testing.T) {
		_, err := env.ledger.Withdraw(ctx, user.ID, goal.ID, "5", false, "")
		require.ErrorIs(t, err, ErrCooldownActive)
	})

	t.Run("cancel returns the parked amount", func(t *testing.T) {
		require.NoError(t, env.ledger.CancelScheduledWithdrawal(ctx, user.ID, goal.ID))

		stored, err := env.store.Goals().GetGoalByID(ctx, goal.ID)
		require.NoError(t, err)
		require.True(t, stored.Current.Equal(decimal.NewFromInt(40)))
		require.True(t, stored.PendingWithdrawal.IsZero())
		require.Nil(t, stored.CooldownUntil)

		err = env.ledger.CancelScheduledWithdrawal(ctx, user.ID, goal.ID)
		require.ErrorIs(t, err, ErrNoScheduledWithdraw)
	})
}

func TestReleaseDueWithdrawals(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	goal, err := env.ledger.CreateGoal(ctx, user.ID, "holiday", "500")
	require.NoError(t, err)
	_, err = env.ledger.Deposit(ctx, user.ID, goal.ID, "40", "")
	require.NoError(t, err)

	_, err = env.ledger.Withdraw(ctx, user.ID, goal.ID, "25", true, "")
	require.NoError(t, err)

	// Nothing due yet.
	released, err := env.ledger.ReleaseDueWithdrawals(ctx)
	require.NoError(t, err)
	require.Zero(t, released)

	// Rewind the cooldown as if a day had passed.
	stored, err := env.store.Goals().GetGoalByID(ctx, goal.ID)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Minute)
	stored.CooldownUntil = &past
	require.NoError(t, env.store.Goals().UpdateGoal(ctx, stored))

	released, err = env.ledger.ReleaseDueWithdrawals(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, released)

	stored, err = env.store.Goals().GetGoalByID(ctx, goal.ID)
	require.NoError(t, err)
	require.True(t, stored.PendingWithdrawal.IsZero())
	require.Nil(t, stored.CooldownUntil)

	// Released funds are spendable again: 100 wallet minus 15 still in the goal.
	available, err := env.ledger.AvailableBalance(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, available.Equal(decimal.NewFromInt(85)))

	// The pending ledger row completed.
	txns, err := env.ledger.ListTransactions(ctx, user.ID, 0)
	require.NoError(t, err)
	for _, txn := range txns {
		require.NotEqual(t, domain.TransactionPending, txn.Status)
	}

	// A second sweep finds nothing.
	released, err = env.ledger.ReleaseDueWithdrawals(ctx)
	require.NoError(t, err)
	require.Zero(t, released)
}

func TestWalletWithdrawValidatesAddress(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	for _, addr := range []string{"", "0x123", "1111111111111111111111111111111111111111",
		"0xZZ11111111111111111111111111111111111111"} {
		_, err := env.ledger.WalletWithdraw(ctx, user.ID, "10", addr, "")
		require.ErrorIs(t, err, domain.ErrAddressMalformed, "address %q", addr)
	}
}

func TestDeleteGoalRequiresEmpty(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	goal, err := env.ledger.CreateGoal(ctx, user.ID, "holiday", "500")
	require.NoError(t, err)
	_, err = env.ledger.Deposit(ctx, user.ID, goal.ID, "40", "")
	require.NoError(t, err)

	err = env.ledger.DeleteGoal(ctx, user.ID, goal.ID)
	require.ErrorIs(t, err, ErrInsufficientGoal)

	_, err = env.ledger.Withdraw(ctx, user.ID, goal.ID, "40", false, "")
	require.NoError(t, err)

	require.NoError(t, env.ledger.DeleteGoal(ctx, user.ID, goal.ID))

	goals, err := env.ledger.ListGoals(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, goals)
}

func TestConcurrentDepositsRespectAvailableBalance(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "correct horse battery")
	_, err := env.ledger.WalletDeposit(ctx, user.ID, "100", "")
	require.NoError(t, err)

	goal, err := env.ledger.CreateGoal(ctx, user.ID, "holiday", "1000")
	require.NoError(t, err)

	const workers = 10
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.ledger.Deposit(ctx, user.ID, goal.ID, "20", "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, errors.Is(err, ErrInsufficientBalance), "unexpected error %v", err)
		}
	}
	require.Equal(t, 5, succeeded)

	stored, err := env.store.Goals().GetGoalByID(ctx, goal.ID)
	require.NoError(t, err)
	require.True(t, stored.Current.Equal(decimal.NewFromInt(100)))

	available, err := env.ledger.AvailableBalance(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, available.IsZero())
}

func TestDepositStreak(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	lastWeek := now.AddDate(0, 0, -7)

	t.Run("first deposit starts at one", func(t *testing.T) {
		g := domain.SavingsGoal{}
		require.Equal(t, 1, nextStreak(g, now))
	})

	t.Run("same day keeps the streak", func(t *testing.T) {
		earlier := now.Add(-2 * time.Hour)
		g := domain.SavingsGoal{SavingStreak: 3, LastDepositAt: &earlier}
		require.Equal(t, 3, nextStreak(g, now))
	})

	t.Run("next day extends it", func(t *testing.T) {
		g := domain.SavingsGoal{SavingStreak: 3, LastDepositAt: &yesterday}
		require.Equal(t, 4, nextStreak(g, now))
	})

	t.Run("a gap restarts", func(t *testing.T) {
		g := domain.SavingsGoal{SavingStreak: 9, LastDepositAt: &lastWeek}
		require.Equal(t, 1, nextStreak(g, now))
	})
}
