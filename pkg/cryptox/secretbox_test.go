package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptSecret(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("VAULT_MASTER_KEY", "test-master-key")

	plaintext := []byte("JBSWY3DPEHPK3PXP")

	encrypted, err := EncryptSecret(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, encrypted)

	decrypted, err := DecryptSecret(encrypted)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestEncryptSecretUsesRandomNonce(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("VAULT_MASTER_KEY", "test-master-key")

	a, err := EncryptSecret([]byte("same input"))
	require.NoError(t, err)
	b, err := EncryptSecret([]byte("same input"))
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestDecryptSecretRejectsTamperedCiphertext(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Setenv("VAULT_MASTER_KEY", "test-master-key")

	encrypted, err := EncryptSecret([]byte("secret"))
	require.NoError(t, err)

	encrypted[len(encrypted)-1] ^= 0xFF
	_, err = DecryptSecret(encrypted)
	require.Error(t, err)

	_, err = DecryptSecret([]byte("short"))
	require.Error(t, err)
}

func TestParseGeneratedEd25519Key(t *testing.T) {
	pemKey, err := GenerateEd25519Key()
	require.NoError(t, err)

	key, err := ParseEd25519Key(pemKey)
	require.NoError(t, err)
	require.Len(t, key, 64)

	_, err = ParseEd25519Key([]byte("not pem"))
	require.Error(t, err)
}
