package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/usdtvault/vault/internal/vault/audit"
	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/idx"
	"github.com/usdtvault/vault/pkg/slogx"
)

// LedgerResult is what a money-moving operation returns. Replayed is true
// when an idempotency key matched an earlier call and nothing was re-applied.
type LedgerResult struct {
	Transaction domain.Transaction
	Replayed    bool
}

// LedgerService applies deposits and withdrawals against the escrow
// invariant: the sum of goal balances (including amounts parked in a
// cooling-period withdrawal) never exceeds the wallet balance. All mutating
// calls for one user are serialised through a per-user mutex on top of the
// store transaction, so the available balance a call computes is still true
// when it commits.
type LedgerService struct {
	Store store.Store
	Audit audit.Recorder

	locks sync.Map // userID -> *sync.Mutex
}

func (s *LedgerService) lockUser(userID string) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AvailableBalance is the wallet balance minus everything escrowed in goals,
// recomputed fresh on every call.
func (s *LedgerService) AvailableBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	goals, err := s.Store.Goals().ListUserGoals(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	return availableFrom(user.WalletBalance, goals), nil
}

func availableFrom(wallet decimal.Decimal, goals []domain.SavingsGoal) decimal.Decimal {
	escrowed := decimal.Zero
	for _, g := range goals {
		escrowed = escrowed.Add(g.Current).Add(g.PendingWithdrawal)
	}
	return wallet.Sub(escrowed)
}

// CreateGoal adds a new savings goal with a zero balance.
func (s *LedgerService) CreateGoal(ctx context.Context, userID, name, targetStr string) (domain.SavingsGoal, error) {
	target, err := domain.ParseAmount(targetStr)
	if err != nil {
		return domain.SavingsGoal{}, err
	}

	now := time.Now().UTC()
	goal := domain.SavingsGoal{
		ID:                idx.New().String(),
		UserID:            userID,
		Name:              name,
		Current:           decimal.Zero,
		Target:            target,
		PendingWithdrawal: decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Store.Goals().CreateGoal(ctx, goal); err != nil {
		return domain.SavingsGoal{}, err
	}
	return goal, nil
}

// ListGoals returns the user's goals.
func (s *LedgerService) ListGoals(ctx context.Context, userID string) ([]domain.SavingsGoal, error) {
	return s.Store.Goals().ListUserGoals(ctx, userID)
}

// DeleteGoal removes an empty goal. A goal still holding funds (or with a
// withdrawal parked) must be emptied first.
func (s *LedgerService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	unlock := s.lockUser(userID)
	defer unlock()

	goal, err := s.getOwnedGoal(ctx, s.Store, userID, goalID)
	if err != nil {
		return err
	}

	if !goal.Current.IsZero() || !goal.PendingWithdrawal.IsZero() {
		return ErrInsufficientGoal
	}

	return s.Store.Goals().DeleteGoal(ctx, goalID)
}

// Deposit moves amount from the free wallet balance into a goal. Fails when
// the available balance can't cover it or the goal would exceed its target.
func (s *LedgerService) Deposit(ctx context.Context, userID, goalID, amountStr, correlationKey string) (LedgerResult, error) {
	amount, err := domain.ParseAmount(amountStr)
	if err != nil {
		return LedgerResult{}, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	now := time.Now().UTC()
	var result LedgerResult

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		goal, err := s.getOwnedGoal(ctx, tx, userID, goalID)
		if err != nil {
			return err
		}

		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		goals, err := tx.Goals().ListUserGoals(ctx, userID)
		if err != nil {
			return err
		}

		if availableFrom(user.WalletBalance, goals).LessThan(amount) {
			return ErrInsufficientBalance
		}
		if goal.Current.Add(amount).GreaterThan(goal.Target) {
			return ErrGoalTargetExceeded
		}

		txn := domain.Transaction{
			ID:             idx.New().String(),
			UserID:         userID,
			GoalID:         goalID,
			Type:           domain.TransactionCredit,
			Amount:         amount,
			CorrelationKey: orNewKey(correlationKey),
			Status:         domain.TransactionCompleted,
			CreatedAt:      now,
		}
		replayed, err := s.recordOrReplay(ctx, tx, &txn, &result)
		if err != nil || replayed {
			return err
		}

		goal.Current = goal.Current.Add(amount)
		goal.SavingStreak = nextStreak(goal, now)
		goal.LastDepositAt = &now
		if err := tx.Goals().UpdateGoal(ctx, goal); err != nil {
			return err
		}

		result = LedgerResult{Transaction: txn}
		return nil
	})
	if err != nil {
		return LedgerResult{}, err
	}

	if !result.Replayed {
		s.Audit.Record(ctx, audit.KindDeposit, userID, "goal_id", goalID, "amount", amount.String())
	}
	return result, nil
}

// Withdraw moves amount out of a goal back to the free wallet balance.
// With useCooldown the amount is parked instead and released by the
// housekeeping sweep once the cooling period passes.
func (s *LedgerService) Withdraw(ctx context.Context, userID, goalID, amountStr string, useCooldown bool, correlationKey string) (LedgerResult, error) {
	amount, err := domain.ParseAmount(amountStr)
	if err != nil {
		return LedgerResult{}, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	now := time.Now().UTC()
	var result LedgerResult

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		goal, err := s.getOwnedGoal(ctx, tx, userID, goalID)
		if err != nil {
			return err
		}

		if goal.CooldownActive(now) {
			return ErrCooldownActive
		}
		if goal.Current.LessThan(amount) {
			return ErrInsufficientGoal
		}

		status := domain.TransactionCompleted
		if useCooldown {
			status = domain.TransactionPending
		}

		txn := domain.Transaction{
			ID:             idx.New().String(),
			UserID:         userID,
			GoalID:         goalID,
			Type:           domain.TransactionDebit,
			Amount:         amount,
			CorrelationKey: orNewKey(correlationKey),
			Status:         status,
			CreatedAt:      now,
		}
		replayed, err := s.recordOrReplay(ctx, tx, &txn, &result)
		if err != nil || replayed {
			return err
		}

		goal.Current = goal.Current.Sub(amount)
		goal.SavingStreak = 0
		if useCooldown {
			goal.PendingWithdrawal = goal.PendingWithdrawal.Add(amount)
			until := now.Add(domain.WithdrawalCooldown)
			goal.CooldownUntil = &until
		}
		if err := tx.Goals().UpdateGoal(ctx, goal); err != nil {
			return err
		}

		result = LedgerResult{Transaction: txn}
		return nil
	})
	if err != nil {
		return LedgerResult{}, err
	}

	if !result.Replayed {
		kind := audit.KindWithdrawal
		if useCooldown {
			kind = audit.KindWithdrawScheduled
		}
		s.Audit.Record(ctx, kind, userID, "goal_id", goalID, "amount", amount.String())
	}
	return result, nil
}

// CancelScheduledWithdrawal returns a parked amount to the goal before its
// cooldown expires.
func (s *LedgerService) CancelScheduledWithdrawal(ctx context.Context, userID, goalID string) error {
	unlock := s.lockUser(userID)
	defer unlock()

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		goal, err := s.getOwnedGoal(ctx, tx, userID, goalID)
		if err != nil {
			return err
		}

		if goal.PendingWithdrawal.IsZero() {
			return ErrNoScheduledWithdraw
		}

		goal.Current = goal.Current.Add(goal.PendingWithdrawal)
		goal.PendingWithdrawal = decimal.Zero
		goal.CooldownUntil = nil
		return tx.Goals().UpdateGoal(ctx, goal)
	})
}

// ReleaseDueWithdrawals finishes every scheduled withdrawal whose cooldown
// has passed: the parked amount stops being escrowed and the pending ledger
// row completes. Called from the housekeeping loop.
func (s *LedgerService) ReleaseDueWithdrawals(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	due, err := s.Store.Goals().ListDueWithdrawals(ctx, now)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, goal := range due {
		goal := goal
		unlock := s.lockUser(goal.UserID)

		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			g, err := tx.Goals().GetGoalByID(ctx, goal.ID)
			if err != nil {
				return err
			}
			if g.PendingWithdrawal.IsZero() || g.CooldownActive(now) {
				return nil // raced with a cancel
			}

			amount := g.PendingWithdrawal
			g.PendingWithdrawal = decimal.Zero
			g.CooldownUntil = nil
			if err := tx.Goals().UpdateGoal(ctx, g); err != nil {
				return err
			}

			if txn, err := pendingDebitFor(ctx, tx, g.UserID, g.ID, amount); err == nil {
				if err := tx.Transactions().UpdateTransactionStatus(ctx, txn.ID, domain.TransactionCompleted); err != nil {
					return err
				}
			}

			s.Audit.Record(ctx, audit.KindWithdrawReleased, g.UserID, "goal_id", g.ID, "amount", amount.String())
			released++
			return nil
		})
		unlock()
		if err != nil {
			log.Error("failed to release scheduled withdrawal", "goal_id", goal.ID, "err", err)
		}
	}

	return released, nil
}

// WalletDeposit credits the free wallet balance (an external top-up).
func (s *LedgerService) WalletDeposit(ctx context.Context, userID, amountStr, correlationKey string) (LedgerResult, error) {
	amount, err := domain.ParseAmount(amountStr)
	if err != nil {
		return LedgerResult{}, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	now := time.Now().UTC()
	var result LedgerResult

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		txn := domain.Transaction{
			ID:             idx.New().String(),
			UserID:         userID,
			Type:           domain.TransactionCredit,
			Amount:         amount,
			CorrelationKey: orNewKey(correlationKey),
			Status:         domain.TransactionCompleted,
			CreatedAt:      now,
		}
		replayed, err := s.recordOrReplay(ctx, tx, &txn, &result)
		if err != nil || replayed {
			return err
		}

		if err := tx.Users().UpdateWalletBalance(ctx, userID, user.WalletBalance.Add(amount)); err != nil {
			return err
		}

		result = LedgerResult{Transaction: txn}
		return nil
	})
	if err != nil {
		return LedgerResult{}, err
	}

	if !result.Replayed {
		s.Audit.Record(ctx, audit.KindDeposit, userID, "amount", amount.String())
	}
	return result, nil
}

// WalletWithdraw debits the free wallet balance toward an external address.
// Escrowed goal funds are not touchable here; only the available balance is.
func (s *LedgerService) WalletWithdraw(ctx context.Context, userID, amountStr, address, correlationKey string) (LedgerResult, error) {
	amount, err := domain.ParseAmount(amountStr)
	if err != nil {
		return LedgerResult{}, err
	}
	if err := domain.ValidateAddress(address); err != nil {
		return LedgerResult{}, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	now := time.Now().UTC()
	var result LedgerResult

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		goals, err := tx.Goals().ListUserGoals(ctx, userID)
		if err != nil {
			return err
		}

		if availableFrom(user.WalletBalance, goals).LessThan(amount) {
			return ErrInsufficientBalance
		}

		txn := domain.Transaction{
			ID:             idx.New().String(),
			UserID:         userID,
			Type:           domain.TransactionDebit,
			Amount:         amount,
			CorrelationKey: orNewKey(correlationKey),
			Status:         domain.TransactionCompleted,
			Address:        address,
			CreatedAt:      now,
		}
		replayed, err := s.recordOrReplay(ctx, tx, &txn, &result)
		if err != nil || replayed {
			return err
		}

		if err := tx.Users().UpdateWalletBalance(ctx, userID, user.WalletBalance.Sub(amount)); err != nil {
			return err
		}

		result = LedgerResult{Transaction: txn}
		return nil
	})
	if err != nil {
		return LedgerResult{}, err
	}

	if !result.Replayed {
		s.Audit.Record(ctx, audit.KindWalletWithdrawal, userID, "amount", amount.String(), "address", address)
	}
	return result, nil
}

// ListTransactions returns the user's ledger newest-first.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	return s.Store.Transactions().ListUserTransactions(ctx, userID, limit)
}

// recordOrReplay inserts the ledger row before any balance mutates. When the
// correlation key already exists the original row is loaded into result and
// the caller must apply nothing further. A key reused with a different
// payload is a conflict, never a silent replay.
func (s *LedgerService) recordOrReplay(ctx context.Context, tx store.Tx, txn *domain.Transaction, result *LedgerResult) (replayed bool, err error) {
	err = tx.Transactions().CreateTransaction(ctx, *txn)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrAlreadyExists) {
		return false, err
	}

	original, err := tx.Transactions().GetByCorrelationKey(ctx, txn.UserID, txn.CorrelationKey)
	if err != nil {
		return false, err
	}

	if !original.Amount.Equal(txn.Amount) || original.Type != txn.Type ||
		original.GoalID != txn.GoalID || original.Address != txn.Address {
		return false, ErrCorrelationKeyReplay
	}

	*result = LedgerResult{Transaction: original, Replayed: true}
	return true, nil
}

func (s *LedgerService) getOwnedGoal(ctx context.Context, st store.Store, userID, goalID string) (domain.SavingsGoal, error) {
	goal, err := st.Goals().GetGoalByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SavingsGoal{}, ErrGoalNotFound
		}
		return domain.SavingsGoal{}, err
	}
	if goal.UserID != userID {
		return domain.SavingsGoal{}, ErrNotGoalOwner
	}
	return goal, nil
}

// pendingDebitFor finds the pending debit row a scheduled withdrawal left
// behind, so the release can complete it.
func pendingDebitFor(ctx context.Context, tx store.Tx, userID, goalID string, amount decimal.Decimal) (domain.Transaction, error) {
	txns, err := tx.Transactions().ListUserTransactions(ctx, userID, 200)
	if err != nil {
		return domain.Transaction{}, err
	}
	for _, t := range txns {
		if t.GoalID == goalID && t.Status == domain.TransactionPending &&
			t.Type == domain.TransactionDebit && t.Amount.Equal(amount) {
			return t, nil
		}
	}
	return domain.Transaction{}, store.ErrNotFound
}

// orNewKey backfills a correlation key for callers that didn't supply one,
// so every ledger row satisfies the unique constraint.
func orNewKey(key string) string {
	if key != "" {
		return key
	}
	return idx.New().String()
}

// nextStreak advances the consecutive-day deposit counter: same day keeps
// the streak, the next day extends it, any gap restarts at one.
func nextStreak(g domain.SavingsGoal, now time.Time) int {
	if g.LastDepositAt == nil {
		return 1
	}

	last := g.LastDepositAt.UTC()
	switch daysBetween(last, now) {
	case 0:
		if g.SavingStreak == 0 {
			return 1
		}
		return g.SavingStreak
	case 1:
		return g.SavingStreak + 1
	default:
		return 1
	}
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	aDay := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bDay := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bDay.Sub(aDay).Hours() / 24)
}
