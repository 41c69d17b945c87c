package sqlite

import (
	"context"
	"time"

	"github.com/usdtvault/vault/internal/vault/store"
)

type backupCodesRepo struct {
	db dbtx
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, userID string, codeHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_codes (user_id, code_hash, created_at) VALUES (?, ?, ?)`,
		userID, codeHash, time.Now().UTC())
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// ConsumeBackupCode matches and deletes in a single statement so a code can
// never be redeemed twice, even under concurrent verification attempts.
func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID string, codeHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE user_id = ? AND code_hash = ?`,
		userID, codeHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = ?`, userID)
	return err
}

func (r *backupCodesRepo) CountUserBackupCodes(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM backup_codes WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}
