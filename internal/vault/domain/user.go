package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID                  string
	Username            string
	PasswordHash        string // argon2 encoded
	Role                string
	WalletBalance       decimal.Decimal
	WalletAddress       string // linked read-only chain address, may be empty
	PrivateKeyEncrypted []byte // AES-256-GCM encrypted key blob, nil if no linked wallet
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Roles a user can hold. There is no role hierarchy; admin is only used for
// operational endpoints.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
