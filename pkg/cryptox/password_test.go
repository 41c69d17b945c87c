package cryptox

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifySecret(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	hash, err := HashSecret("correct horse battery staple")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$v=19$")

	require.NoError(t, VerifySecret("correct horse battery staple", hash))
	require.ErrorIs(t, VerifySecret("wrong password", hash), ErrMismatch)
}

func TestHashSecretProducesUniqueSalts(t *testing.T) {
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	a, err := HashSecret("123456")
	require.NoError(t, err)
	b, err := HashSecret("123456")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NoError(t, VerifySecret("123456", a))
	require.NoError(t, VerifySecret("123456", b))
}

func TestVerifySecretRejectsMalformedHashes(t *testing.T) {
	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
	} {
		require.Error(t, VerifySecret("secret", bad))
	}
}
