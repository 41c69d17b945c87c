package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	masterKeyOnce sync.Once
	masterKey     []byte
	masterKeyPath string
)

// SetMasterKeyPath configures where to load the master encryption key from.
// Must be called before any encryption/decryption operations. If not set, the
// key is read from the VAULT_MASTER_KEY environment variable.
func SetMasterKeyPath(path string) {
	masterKeyPath = path
}

// loadMasterKey loads and derives a 32-byte AES-256 key from either:
// 1. File specified by masterKeyPath (if set)
// 2. VAULT_MASTER_KEY environment variable
// 3. Generates a temporary key for development (NOT for production)
func loadMasterKey() ([]byte, error) {
	var keyMaterial []byte

	if masterKeyPath != "" {
		data, err := os.ReadFile(masterKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		keyMaterial = data
	} else if envKey := os.Getenv("VAULT_MASTER_KEY"); envKey != "" {
		keyMaterial = []byte(envKey)
	} else {
		// Development fallback - encrypted values won't survive restart.
		keyMaterial = make([]byte, 32)
		if _, err := rand.Read(keyMaterial); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
	}

	hash := sha256.Sum256(keyMaterial)
	return hash[:], nil
}

func getMasterKey() ([]byte, error) {
	var err error
	masterKeyOnce.Do(func() {
		masterKey, err = loadMasterKey()
	})
	if err != nil {
		return nil, err
	}
	return masterKey, nil
}

// EncryptSecret encrypts a sensitive blob (TOTP secret, linked key material)
// using AES-256-GCM under the master key.
// Output format: [12-byte nonce][ciphertext][16-byte auth tag].
func EncryptSecret(plaintext []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptSecret decrypts data produced by EncryptSecret.
func DecryptSecret(encrypted []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(encrypted) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := encrypted[:nonceSize], encrypted[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// ResetMasterKeyForTesting resets the master key singleton.
// This should ONLY be used in tests.
func ResetMasterKeyForTesting() {
	masterKeyOnce = sync.Once{}
	masterKey = nil
}
