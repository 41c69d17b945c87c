package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrWrongPurpose = errors.New("jwtx: wrong token purpose")
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// EdDSAVerifier validates JWTs signed using EdDSA (Ed25519).
type EdDSAVerifier struct {
	kid    string
	pub    ed25519.PublicKey
	issuer string
}

// NewVerifierEdDSA creates a verifier for a single Ed25519 public key.
func NewVerifierEdDSA(kid string, pub ed25519.PublicKey, issuer string) *EdDSAVerifier {
	return &EdDSAVerifier{kid: kid, pub: pub, issuer: issuer}
}

// VerifierForSigner wires a verifier directly from the signer's public half.
func VerifierForSigner(s *EdDSASigner, issuer string) *EdDSAVerifier {
	return NewVerifierEdDSA(s.KID(), s.PublicKey(), issuer)
}

// Verify validates the JWT string and returns its parsed Claims.
// Purpose checks are the caller's job. Verify only establishes that the
// token is ours, signed, and inside its validity window.
func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid != v.kid {
			return nil, fmt.Errorf("jwtx: unknown kid %q", kid)
		}
		return v.pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrInvalidSig, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
