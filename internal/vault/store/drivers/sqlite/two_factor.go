package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
)

type twoFactorRepo struct {
	db dbtx
}

func (r *twoFactorRepo) GetTwoFactorState(ctx context.Context, userID string) (domain.TwoFactorState, error) {
	var (
		s       domain.TwoFactorState
		enabled sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, secret_encrypted, enabled, created_at, updated_at
		 FROM two_factor WHERE user_id = ?`, userID).
		Scan(&s.UserID, &s.SecretEncrypted, &enabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.TwoFactorState{}, mapNotFound(err)
	}
	s.Enabled = mapNullTimePtr(enabled)
	return s, nil
}

func (r *twoFactorRepo) UpsertPendingSecret(ctx context.Context, userID string, secretEncrypted []byte) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO two_factor (user_id, secret_encrypted, enabled, created_at, updated_at)
		 VALUES (?, ?, NULL, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   secret_encrypted = excluded.secret_encrypted,
		   enabled = NULL,
		   updated_at = excluded.updated_at`,
		userID, secretEncrypted, now, now)
	return err
}

func (r *twoFactorRepo) EnableTwoFactor(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE two_factor SET enabled = ?, updated_at = ? WHERE user_id = ?`,
		now, now, userID)
	return requireRow(res, err)
}

func (r *twoFactorRepo) DeleteTwoFactorState(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM two_factor WHERE user_id = ?`, userID)
	return requireRow(res, err)
}
