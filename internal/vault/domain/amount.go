package domain

import (
	"errors"
	"regexp"

	"github.com/shopspring/decimal"
)

// AmountPrecision is the number of fractional digits every stored amount is
// truncated to. Using a fixed precision keeps repeated deposits/withdrawals
// from drifting.
const AmountPrecision = 8

var (
	ErrAmountNotPositive = errors.New("domain: amount must be positive")
	ErrAmountMalformed   = errors.New("domain: amount is not a valid decimal")
	ErrAddressMalformed  = errors.New("domain: address must be 0x followed by 40 hex characters")
)

// NormalizeAmount truncates d to the ledger precision.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(AmountPrecision)
}

// ParseAmount parses a caller-supplied amount string, requiring a positive
// value, and truncates it to the ledger precision.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrAmountMalformed
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	return NormalizeAmount(d), nil
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateAddress checks an external chain address for wallet withdrawals.
func ValidateAddress(addr string) error {
	if !addressPattern.MatchString(addr) {
		return ErrAddressMalformed
	}
	return nil
}
