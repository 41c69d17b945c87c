package domain

import "time"

// TokenPair is what a successful login or refresh returns: a short-lived
// access token plus the longer-lived refresh token (both signed JWTs).
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // seconds until the access token expires
}

// RefreshToken models the stored refresh token record. A refresh token is
// only usable while a matching row exists with a future expiry, regardless
// of the signature still being valid.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RevokedToken is an entry in the revocation set. Rows are reclaimable once
// ExpiresAt passes since expiry is checked independently of revocation.
type RevokedToken struct {
	TokenHash string
	ExpiresAt time.Time
	RevokedAt time.Time
}

// TwoFactorChallenge is returned from login when the account has a second
// factor enabled: the caller must complete it before tokens are issued.
type TwoFactorChallenge struct {
	ChallengeRequired bool     `json:"challenge_required"` // always true
	ChallengeToken    string   `json:"challenge_token"`    // ULID reference token
	Methods           []string `json:"methods"`            // e.g. ["totp", "backup_codes"]
}

// TwoFactorSession is a pending login challenge awaiting a one-time code.
type TwoFactorSession struct {
	ID        string // ULID (the challenge_token)
	UserID    string
	Attempts  int // failed code attempts, capped to prevent brute force
	CreatedAt time.Time
	ExpiresAt time.Time
}
