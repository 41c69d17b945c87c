package sqlite

import (
	"context"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
)

type revokedTokensRepo struct {
	db dbtx
}

func (r *revokedTokensRepo) RevokeToken(ctx context.Context, t domain.RevokedToken) error {
	// INSERT OR IGNORE: revoking the same token twice is a no-op.
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (token_hash, expires_at, revoked_at) VALUES (?, ?, ?)`,
		t.TokenHash, t.ExpiresAt, t.RevokedAt)
	return err
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, hash string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM revoked_tokens WHERE token_hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *revokedTokensRepo) DeleteExpiredRevocations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
