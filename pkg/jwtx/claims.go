package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. Every token this service signs carries exactly one, and
// endpoints only accept the purpose they were built for. A step-up token can
// never stand in for an access token, or vice versa.
const (
	PurposeAccess  = "access"
	PurposeRefresh = "refresh"
	PurposeStepUp  = "step-up"
)

// Default token TTLs. Short access tokens limit the blast radius of a leaked
// credential; the refresh token carries the session.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultStepUpTokenTTL  = 5 * time.Minute
)

// Claims are the claim set for all three token purposes.
type Claims struct {
	jwt.RegisteredClaims

	// Purpose discriminates access, refresh, and step-up tokens.
	Purpose string `json:"purpose"`

	// Role of the subject, only meaningful on access tokens.
	Role string `json:"role,omitempty"`
}

// NewClaims builds minimally-correct claims for the given purpose.
func NewClaims(subject, purpose, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Purpose: purpose,
		Role:    role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidatePurpose ensures the token was minted for the expected purpose.
func (c *Claims) ValidatePurpose(expected string) error {
	if c.Purpose != expected {
		return ErrWrongPurpose
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
