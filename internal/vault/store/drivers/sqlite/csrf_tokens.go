package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
)

type csrfTokensRepo struct {
	db dbtx
}

func (r *csrfTokensRepo) CreateCsrfToken(ctx context.Context, t domain.CsrfToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO csrf_tokens (token_hash, subject_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		t.TokenHash, mapStringNull(t.SubjectID), t.CreatedAt, t.ExpiresAt)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *csrfTokensRepo) GetCsrfToken(ctx context.Context, hash string) (domain.CsrfToken, error) {
	var (
		t       domain.CsrfToken
		subject sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token_hash, subject_id, created_at, expires_at
		 FROM csrf_tokens WHERE token_hash = ? AND expires_at > ?`,
		hash, time.Now().UTC()).
		Scan(&t.TokenHash, &subject, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		return domain.CsrfToken{}, mapNotFound(err)
	}
	t.SubjectID = mapNullString(subject)
	return t, nil
}

func (r *csrfTokensRepo) BindCsrfToken(ctx context.Context, hash, subjectID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE csrf_tokens SET subject_id = ? WHERE token_hash = ?`,
		subjectID, hash)
	return requireRow(res, err)
}

func (r *csrfTokensRepo) DeleteCsrfToken(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM csrf_tokens WHERE token_hash = ?`, hash)
	return err
}

func (r *csrfTokensRepo) DeleteExpiredCsrfTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM csrf_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
