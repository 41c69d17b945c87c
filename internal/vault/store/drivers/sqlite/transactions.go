package sqlite

import (
	"context"
	"database/sql"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
)

type transactionsRepo struct {
	db dbtx
}

const transactionColumns = `id, user_id, goal_id, type, amount, correlation_key, status, address, created_at`

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		t       domain.Transaction
		goalID  sql.NullString
		amount  string
		address sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &goalID, &t.Type, &amount, &t.CorrelationKey,
		&t.Status, &address, &t.CreatedAt)
	if err != nil {
		return domain.Transaction{}, mapNotFound(err)
	}

	if t.Amount, err = mapAmount(amount); err != nil {
		return domain.Transaction{}, err
	}
	t.GoalID = mapNullString(goalID)
	t.Address = mapNullString(address)
	return t, nil
}

func (r *transactionsRepo) CreateTransaction(ctx context.Context, t domain.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, goal_id, type, amount, correlation_key, status, address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, mapStringNull(t.GoalID), t.Type, t.Amount.String(),
		t.CorrelationKey, t.Status, mapStringNull(t.Address), t.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *transactionsRepo) GetByCorrelationKey(ctx context.Context, userID, key string) (domain.Transaction, error) {
	return scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND correlation_key = ?`,
		userID, key))
}

func (r *transactionsRepo) UpdateTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = ? WHERE id = ?`, status, id)
	return requireRow(res, err)
}

func (r *transactionsRepo) ListUserTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
