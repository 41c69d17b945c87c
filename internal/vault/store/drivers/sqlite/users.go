package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, password_hash, role, wallet_balance, wallet_address, private_key_encrypted, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u       domain.User
		balance string
		address sql.NullString
		keyBlob []byte
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &balance, &address, &keyBlob, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.WalletBalance, err = mapAmount(balance)
	if err != nil {
		return domain.User{}, err
	}
	u.WalletAddress = mapNullString(address)
	u.PrivateKeyEncrypted = keyBlob
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, wallet_balance, wallet_address, private_key_encrypted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.WalletBalance.String(),
		mapStringNull(u.WalletAddress), u.PrivateKeyEncrypted, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	return requireRow(res, err)
}

func (r *usersRepo) UpdateWalletBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET wallet_balance = ?, updated_at = ? WHERE id = ?`,
		balance.String(), time.Now().UTC(), userID)
	return requireRow(res, err)
}

func (r *usersRepo) UpdateLinkedWallet(ctx context.Context, userID, address string, keyEncrypted []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET wallet_address = ?, private_key_encrypted = ?, updated_at = ? WHERE id = ?`,
		mapStringNull(address), keyEncrypted, time.Now().UTC(), userID)
	return requireRow(res, err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return requireRow(res, err)
}

// requireRow converts a zero-row update/delete into ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
