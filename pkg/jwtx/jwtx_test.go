package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/usdtvault/vault/pkg/cryptox"
)

const testIssuer = "vault-test"

func newTestSigner(t *testing.T) *EdDSASigner {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := NewSignerEdDSA("vault-key-001", pemKey)
	require.NoError(t, err)
	return signer
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	verifier := VerifierForSigner(signer, testIssuer)

	claims := NewClaims("user-123", PurposeAccess, "user", testIssuer, time.Minute, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", parsed.Subject)
	require.Equal(t, PurposeAccess, parsed.Purpose)
	require.Equal(t, "user", parsed.Role)
	require.NoError(t, parsed.ValidatePurpose(PurposeAccess))
	require.ErrorIs(t, parsed.ValidatePurpose(PurposeRefresh), ErrWrongPurpose)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	signer := newTestSigner(t)
	verifier := VerifierForSigner(signer, testIssuer)

	claims := NewClaims("user-123", PurposeAccess, "user", testIssuer, time.Minute, time.Now().Add(-time.Hour))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	signer := newTestSigner(t)

	otherPEM, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	other, err := NewSignerEdDSA("vault-key-001", otherPEM)
	require.NoError(t, err)

	verifier := VerifierForSigner(signer, testIssuer)

	claims := NewClaims("user-123", PurposeAccess, "user", testIssuer, time.Minute, time.Now())
	forged, err := other.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(forged)
	require.Error(t, err)
}

func TestVerifyRejectsIssuerMismatch(t *testing.T) {
	signer := newTestSigner(t)
	verifier := VerifierForSigner(signer, "expected-issuer")

	claims := NewClaims("user-123", PurposeAccess, "user", "some-other-issuer", time.Minute, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	signer := newTestSigner(t)
	verifier := VerifierForSigner(signer, testIssuer)

	_, err := verifier.Verify("not.a.jwt")
	require.Error(t, err)
}
