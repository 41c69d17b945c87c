package vault_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupVaultContainer(t)
	defer cleanup()

	client := vaultsdk.NewClient(baseURL)

	livez, err := client.Livez(t.Context())
	assertHealthy(t, livez, err)
	require.NotEmpty(t, livez.Version)
	require.NotEmpty(t, livez.Uptime)

	readyz, err := client.Readyz(t.Context())
	assertHealthy(t, readyz, err)
	require.NotNil(t, readyz.Checks)
	require.Equal(t, "ok", readyz.Checks.Database)
	require.Equal(t, "ok", readyz.Checks.Signer)
}
