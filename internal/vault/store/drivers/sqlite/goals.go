package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
)

type goalsRepo struct {
	db dbtx
}

const goalColumns = `id, user_id, name, current_amount, target_amount, saving_streak, last_deposit_at, pending_withdrawal, cooldown_until, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (domain.SavingsGoal, error) {
	var (
		g           domain.SavingsGoal
		current     string
		target      string
		pending     string
		lastDeposit sql.NullTime
		cooldown    sql.NullTime
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &current, &target, &g.SavingStreak,
		&lastDeposit, &pending, &cooldown, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return domain.SavingsGoal{}, mapNotFound(err)
	}

	if g.Current, err = mapAmount(current); err != nil {
		return domain.SavingsGoal{}, err
	}
	if g.Target, err = mapAmount(target); err != nil {
		return domain.SavingsGoal{}, err
	}
	if g.PendingWithdrawal, err = mapAmount(pending); err != nil {
		return domain.SavingsGoal{}, err
	}
	g.LastDepositAt = mapNullTimePtr(lastDeposit)
	g.CooldownUntil = mapNullTimePtr(cooldown)
	return g, nil
}

func (r *goalsRepo) CreateGoal(ctx context.Context, g domain.SavingsGoal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, name, current_amount, target_amount, saving_streak, last_deposit_at, pending_withdrawal, cooldown_until, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Current.String(), g.Target.String(), g.SavingStreak,
		mapOptionalTime(g.LastDepositAt), g.PendingWithdrawal.String(),
		mapOptionalTime(g.CooldownUntil), g.CreatedAt, g.UpdatedAt)
	return err
}

func (r *goalsRepo) GetGoalByID(ctx context.Context, id string) (domain.SavingsGoal, error) {
	return scanGoal(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
}

func (r *goalsRepo) ListUserGoals(ctx context.Context, userID string) ([]domain.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *goalsRepo) UpdateGoal(ctx context.Context, g domain.SavingsGoal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET
		   name = ?, current_amount = ?, target_amount = ?, saving_streak = ?,
		   last_deposit_at = ?, pending_withdrawal = ?, cooldown_until = ?, updated_at = ?
		 WHERE id = ?`,
		g.Name, g.Current.String(), g.Target.String(), g.SavingStreak,
		mapOptionalTime(g.LastDepositAt), g.PendingWithdrawal.String(),
		mapOptionalTime(g.CooldownUntil), time.Now().UTC(), g.ID)
	return requireRow(res, err)
}

func (r *goalsRepo) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	return requireRow(res, err)
}

func (r *goalsRepo) ListDueWithdrawals(ctx context.Context, now time.Time) ([]domain.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE cooldown_until IS NOT NULL AND cooldown_until <= ? AND pending_withdrawal != '0'`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
