package sqlite

import (
	"context"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
)

type twoFactorSessionsRepo struct {
	db dbtx
}

func (r *twoFactorSessionsRepo) CreateSession(ctx context.Context, s domain.TwoFactorSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO two_factor_sessions (id, user_id, attempts, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Attempts, s.CreatedAt, s.ExpiresAt)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *twoFactorSessionsRepo) GetSession(ctx context.Context, id string) (domain.TwoFactorSession, error) {
	var s domain.TwoFactorSession
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, attempts, created_at, expires_at
		 FROM two_factor_sessions WHERE id = ? AND expires_at > ?`,
		id, time.Now().UTC()).
		Scan(&s.ID, &s.UserID, &s.Attempts, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return domain.TwoFactorSession{}, mapNotFound(err)
	}
	return s, nil
}

func (r *twoFactorSessionsRepo) IncrementAttempts(ctx context.Context, id string) (domain.TwoFactorSession, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE two_factor_sessions SET attempts = attempts + 1 WHERE id = ?`, id)
	if err := requireRow(res, err); err != nil {
		return domain.TwoFactorSession{}, err
	}
	return r.GetSession(ctx, id)
}

func (r *twoFactorSessionsRepo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM two_factor_sessions WHERE id = ?`, id)
	return err
}

func (r *twoFactorSessionsRepo) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM two_factor_sessions WHERE expires_at < ?`, time.Now().UTC())
	return err
}
