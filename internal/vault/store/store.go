package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/usdtvault/vault/internal/vault/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to actively stop callers from accidentally nesting
// transactions.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	RevokedTokens() RevokedTokens
	PinStates() PinStates
	TwoFactor() TwoFactor
	TwoFactorSessions() TwoFactorSessions
	BackupCodes() BackupCodes
	CsrfTokens() CsrfTokens
	Goals() Goals
	Transactions() Transactions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise. This is the recommended way to handle
	// multi-step operations that must be atomic (e.g., a goal deposit that
	// touches the goal, the wallet, and the transactions table).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateWalletBalance overwrites the stored wallet balance. Call only
	// inside a transaction that also records the movement.
	UpdateWalletBalance(ctx context.Context, userID string, balance decimal.Decimal) error

	// UpdateLinkedWallet stores the read-only chain address and encrypted
	// key blob for the user's linked wallet.
	UpdateLinkedWallet(ctx context.Context, userID, address string, keyEncrypted []byte) error

	// DeleteUser cascades to tokens, goals, and transactions (per schema).
	DeleteUser(ctx context.Context, userID string) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token row by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllUserRefreshTokens bulk revocation for a user (e.g., password reset).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type RevokedTokens interface {
	// RevokeToken adds a token fingerprint to the revocation set.
	RevokeToken(ctx context.Context, t domain.RevokedToken) error

	// IsRevoked reports whether a fingerprint is in the set.
	IsRevoked(ctx context.Context, hash string) (bool, error)

	// DeleteExpiredRevocations drops entries whose underlying token has
	// expired anyway. Pure storage reclamation, not a correctness need.
	DeleteExpiredRevocations(ctx context.Context) error
}

type PinStates interface {
	// GetPinState returns the PIN record for a user, ErrNotFound when no
	// PIN has been set up.
	GetPinState(ctx context.Context, userID string) (domain.PinState, error)

	// UpsertPinState creates or replaces the PIN record.
	UpsertPinState(ctx context.Context, p domain.PinState) error

	// RecordPinFailure increments failed_attempts and, when lockUntil is
	// non-nil, engages the lockout. Returns the updated state.
	RecordPinFailure(ctx context.Context, userID string, lockUntil *time.Time) (domain.PinState, error)

	// ResetPinCounters clears failed_attempts and lockout_until.
	ResetPinCounters(ctx context.Context, userID string) error

	// DeletePinState removes the PIN entirely (back to no-PIN state).
	DeletePinState(ctx context.Context, userID string) error
}

type TwoFactor interface {
	// GetTwoFactorState returns the enrolment for a user, ErrNotFound when
	// 2FA was never set up.
	GetTwoFactorState(ctx context.Context, userID string) (domain.TwoFactorState, error)

	// UpsertPendingSecret stores a fresh encrypted secret with enabled=NULL,
	// replacing any previous unconfirmed enrolment.
	UpsertPendingSecret(ctx context.Context, userID string, secretEncrypted []byte) error

	// EnableTwoFactor marks the enrolment confirmed.
	EnableTwoFactor(ctx context.Context, userID string) error

	// DeleteTwoFactorState clears the enrolment (disable).
	DeleteTwoFactorState(ctx context.Context, userID string) error
}

type TwoFactorSessions interface {
	// CreateSession creates a pending login challenge.
	CreateSession(ctx context.Context, s domain.TwoFactorSession) error

	// GetSession retrieves a challenge by its token (only if not expired).
	GetSession(ctx context.Context, id string) (domain.TwoFactorSession, error)

	// IncrementAttempts bumps the failed attempt counter and returns the
	// updated session.
	IncrementAttempts(ctx context.Context, id string) (domain.TwoFactorSession, error)

	// DeleteSession removes a challenge (on success or abandonment).
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}

type BackupCodes interface {
	// CreateBackupCode stores a backup code fingerprint for a user.
	CreateBackupCode(ctx context.Context, userID string, codeHash string) error

	// ConsumeBackupCode deletes the code if present, reporting whether it
	// existed. Deletion and match are one statement so a code can never be
	// redeemed twice.
	ConsumeBackupCode(ctx context.Context, userID string, codeHash string) (bool, error)

	// DeleteAllBackupCodes removes all backup codes for a user.
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountUserBackupCodes returns the number of codes a user has left.
	CountUserBackupCodes(ctx context.Context, userID string) (int, error)
}

type CsrfTokens interface {
	// CreateCsrfToken stores a freshly issued token fingerprint.
	CreateCsrfToken(ctx context.Context, t domain.CsrfToken) error

	// GetCsrfToken fetches a live (unexpired) record by fingerprint.
	GetCsrfToken(ctx context.Context, hash string) (domain.CsrfToken, error)

	// BindCsrfToken attaches a subject to a previously anonymous token.
	BindCsrfToken(ctx context.Context, hash, subjectID string) error

	// DeleteCsrfToken removes a single record.
	DeleteCsrfToken(ctx context.Context, hash string) error

	// DeleteExpiredCsrfTokens is housekeeping.
	DeleteExpiredCsrfTokens(ctx context.Context) error
}

type Goals interface {
	// CreateGoal inserts a new savings goal.
	CreateGoal(ctx context.Context, g domain.SavingsGoal) error

	// GetGoalByID returns a goal by id.
	GetGoalByID(ctx context.Context, id string) (domain.SavingsGoal, error)

	// ListUserGoals returns all goals for a user ordered by creation date.
	ListUserGoals(ctx context.Context, userID string) ([]domain.SavingsGoal, error)

	// UpdateGoal overwrites the mutable fields (current, streak, pending
	// withdrawal, cooldown). Call inside a transaction alongside the wallet
	// and transactions updates.
	UpdateGoal(ctx context.Context, g domain.SavingsGoal) error

	// DeleteGoal removes a goal.
	DeleteGoal(ctx context.Context, id string) error

	// ListDueWithdrawals returns goals whose cooldown has passed with a
	// pending withdrawal still parked, for the housekeeping sweep.
	ListDueWithdrawals(ctx context.Context, now time.Time) ([]domain.SavingsGoal, error)
}

type Transactions interface {
	// CreateTransaction inserts a ledger row. Returns ErrAlreadyExists when
	// the correlation key is already present for the user.
	CreateTransaction(ctx context.Context, t domain.Transaction) error

	// GetByCorrelationKey fetches the original row for an idempotent replay.
	GetByCorrelationKey(ctx context.Context, userID, key string) (domain.Transaction, error)

	// UpdateTransactionStatus moves a row between pending/completed/failed.
	UpdateTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus) error

	// ListUserTransactions returns a user's ledger newest-first, limited.
	ListUserTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)
}
