package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
)

type pinStatesRepo struct {
	db dbtx
}

func (r *pinStatesRepo) GetPinState(ctx context.Context, userID string) (domain.PinState, error) {
	var (
		p       domain.PinState
		lockout sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, pin_hash, failed_attempts, lockout_until, created_at, updated_at
		 FROM pin_states WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.PinHash, &p.FailedAttempts, &lockout, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.PinState{}, mapNotFound(err)
	}
	p.LockoutUntil = mapNullTimePtr(lockout)
	return p, nil
}

func (r *pinStatesRepo) UpsertPinState(ctx context.Context, p domain.PinState) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pin_states (user_id, pin_hash, failed_attempts, lockout_until, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   pin_hash = excluded.pin_hash,
		   failed_attempts = excluded.failed_attempts,
		   lockout_until = excluded.lockout_until,
		   updated_at = excluded.updated_at`,
		p.UserID, p.PinHash, p.FailedAttempts, mapOptionalTime(p.LockoutUntil), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *pinStatesRepo) RecordPinFailure(ctx context.Context, userID string, lockUntil *time.Time) (domain.PinState, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pin_states SET
		   failed_attempts = failed_attempts + 1,
		   lockout_until = COALESCE(?, lockout_until),
		   updated_at = ?
		 WHERE user_id = ?`,
		mapOptionalTime(lockUntil), time.Now().UTC(), userID)
	if err := requireRow(res, err); err != nil {
		return domain.PinState{}, err
	}
	return r.GetPinState(ctx, userID)
}

func (r *pinStatesRepo) ResetPinCounters(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pin_states SET failed_attempts = 0, lockout_until = NULL, updated_at = ? WHERE user_id = ?`,
		time.Now().UTC(), userID)
	return requireRow(res, err)
}

func (r *pinStatesRepo) DeletePinState(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pin_states WHERE user_id = ?`, userID)
	return requireRow(res, err)
}
