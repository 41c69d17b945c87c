package vault_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

/*
 * Common constants and helper functions for vault service end-to-end tests.
 * This includes container setup, account helpers, and assertions.
 */

const (
	testImageName = "usdt-vault-test:latest"

	testPassword = "Sup3rSecret!"
	testPin      = "482913"
)

var usernameCounter atomic.Int64

// uniqueUsername returns a fresh username so tests don't trip each other's
// per-username login throttle.
func uniqueUsername(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), usernameCounter.Add(1))
}

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Vault Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Vault Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image if it doesn't exist.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/vault/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupVaultContainer starts the vault service in a container and returns the
// base URL. Rate limits are raised so rapid test requests don't 429.
func setupVaultContainer(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, map[string]string{
		// Tests make many rapid requests which would otherwise hit the
		// strict production limits
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	})
}

// setupVaultContainerWithDefaultRateLimits starts the vault service with the
// production rate limits. Only the rate limiting tests should use this.
func setupVaultContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	t.Helper()
	return startContainer(t, nil)
}

func startContainer(t *testing.T, extraEnv map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"VAULT_DATABASE_FILE": "/vault.db",
		"VAULT_PEPPER_FILE":   "/pepper",
		"VAULT_ISSUER":        "usdt-vault",
		"VAULT_KEY_ID":        "vault-key-e2e",
		"ENV":                 "test",
		"LOG_LEVEL":           "info",
		"LOG_FORMAT":          "json",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// registerUser creates a fresh account and returns its session plus the
// username it registered under.
func registerUser(t *testing.T, client *vaultsdk.Client, prefix string) (*vaultsdk.Session, string) {
	t.Helper()

	username := uniqueUsername(prefix)
	session, err := client.Register(t.Context(), username, testPassword)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.NotEmpty(t, session.AccessToken(), "Access token should not be empty")
	require.NotEmpty(t, session.RefreshToken(), "Refresh token should not be empty")

	return session, username
}

// totpCode computes the current TOTP code for an enrolled secret.
func totpCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	return code
}

// enrollAndConfirmTwoFactor turns 2FA on for the session and returns the
// secret and the one-time backup codes.
func enrollAndConfirmTwoFactor(t *testing.T, session *vaultsdk.Session) (string, []string) {
	t.Helper()

	enrollment, err := session.EnrollTwoFactor(t.Context(), testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.ProvisioningURI, "otpauth://totp/")

	codes, err := session.ConfirmTwoFactor(t.Context(), totpCode(t, enrollment.Secret))
	require.NoError(t, err)
	require.NotEmpty(t, codes.Codes)

	return enrollment.Secret, codes.Codes
}

// assertAPIError checks that err is an *vaultsdk.APIError with the given
// status and code.
func assertAPIError(t *testing.T, err error, statusCode int, code string) *vaultsdk.APIError {
	t.Helper()

	require.Error(t, err)
	apiErr, ok := err.(*vaultsdk.APIError)
	require.True(t, ok, "expected *vaultsdk.APIError, got %T: %v", err, err)
	require.Equal(t, statusCode, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *vaultsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
