package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is an immutable ledger record. CorrelationKey is the
// idempotency key: replays sharing it observe the original row instead of
// re-applying the amount.
type Transaction struct {
	ID             string
	UserID         string
	GoalID         string // empty for wallet-level movements
	Type           TransactionType
	Amount         decimal.Decimal
	CorrelationKey string
	Status         TransactionStatus
	Address        string // external chain address for wallet withdrawals
	CreatedAt      time.Time
}
