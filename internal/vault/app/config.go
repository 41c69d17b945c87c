package app

import (
	"os"
	"strconv"
	"time"

	"github.com/usdtvault/vault/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for every token the service mints

	KeyID          string // Key id stamped into token headers
	SigningKeyFile string // Optional: PEM Ed25519 private key; generated ephemerally when unset
	MasterKeyPath  string // Optional: path to the master encryption key file (TOTP secrets at rest)

	DatabaseFile string // Path to the SQLite database file (default: ./vault.db)
	PepperFile   string // Path to the password hashing pepper file (default: ./pepper)

	AccessTTL    time.Duration // Access token lifetime
	RefreshTTL   time.Duration // Refresh token lifetime
	StepUpTTL    time.Duration // Step-up token lifetime
	ChallengeTTL time.Duration // Pending 2FA login challenge lifetime
	CsrfTTL      time.Duration // Anti-forgery token lifetime

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:         getEnvOrDefault("VAULT_ISSUER", "usdt-vault"),
		KeyID:          getEnvOrDefault("VAULT_KEY_ID", "vault-key-001"),
		SigningKeyFile: os.Getenv("VAULT_SIGNING_KEY_FILE"), // Optional: ephemeral key when unset
		MasterKeyPath:  os.Getenv("VAULT_MASTER_KEY_PATH"),  // Optional

		DatabaseFile: getEnvOrDefault("VAULT_DATABASE_FILE", "vault.db"),
		PepperFile:   getEnvOrDefault("VAULT_PEPPER_FILE", "pepper"),

		AccessTTL:    getEnvDurationOrDefault("VAULT_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:   getEnvDurationOrDefault("VAULT_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		StepUpTTL:    getEnvDurationOrDefault("VAULT_STEPUP_TTL", jwtx.DefaultStepUpTokenTTL),
		ChallengeTTL: getEnvDurationOrDefault("VAULT_CHALLENGE_TTL", 5*time.Minute),
		CsrfTTL:      getEnvDurationOrDefault("VAULT_CSRF_TTL", 12*time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("VAULT_PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("VAULT_SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("VAULT_HOUSEKEEPING_INTERVAL", time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Accept a bare integer as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
