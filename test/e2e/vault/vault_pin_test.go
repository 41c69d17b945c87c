package vault_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

func TestPinSetupAndVerify(t *testing.T) {
	baseURL, cleanup := setupVaultContainer(t)
	defer cleanup()

	client := vaultsdk.NewClient(baseURL)
	session, _ := registerUser(t, client, "pin")

	// Setup requires the account password
	err := session.SetupPin(t.Context(), "wrong-password", testPin)
	assertAPIError(t, err, http.StatusUnauthorized, "invalid_password")

	// And a well-formed PIN
	err = session.SetupPin(t.Context(), testPassword, "12ab56")
	assertAPIError(t, err, http.StatusBadRequest, "pin_malformed")

	require.NoError(t, session.SetupPin(t.Context(), testPassword, testPin))

	// No second PIN
	err = session.SetupPin(t.Context(), testPassword, "111111")
	assertAPIError(t, err, http.StatusConflict, "pin_already_set")

	stepUp, err := session.VerifyPin(t.Context(), testPin)
	require.NoError(t, err)
	require.NotEmpty(t, stepUp.StepUpToken)
	require.Greater(t, stepUp.ExpiresIn, int64(0))
}

func TestPinWrongAttemptsCountDown(t *testing.T) {
	baseURL, cleanup := setupVaultContainer(t)
	defer cleanup()

	client := vaultsdk.NewClient(baseURL)
	session, _ := registerUser(t, client, "pinmiss")

	require.NoError(t, session.SetupPin(t.Context(), testPassword, testPin))

	_, err := session.VerifyPin(t.Context(), "000000")
	apiErr := assertAPIError(t, err, http.StatusBadRequest, "invalid_pin")
	require.NotNil(t, apiErr.AttemptsRemaining)
	first := *apiErr.AttemptsRemaining

	_, err = session.VerifyPin(t.Context(), "000000")
	apiErr = assertAPIError(t, err, http.StatusBadRequest, "invalid_pin")
	require.NotNil(t, apiErr.AttemptsRemaining)
	require.Equal(t, first-1, *apiErr.AttemptsRemaining)

	// A correct entry clears the counter
	_, err = session.VerifyPin(t.Context(), testPin)
	require.NoError(t, err)

	_, err = session.VerifyPin(t.Context(), "000000")
	apiErr = assertAPIError(t, err, http.StatusBadRequest, "invalid_pin")
	require.Equal(t, first, *apiErr.AttemptsRemaining)
}

func TestPinUpdateAndRemove(t *testing.T) {
	baseURL, cleanup := setupVaultContainer(t)
	defer cleanup()

	client := vaultsdk.NewClient(baseURL)
	session, _ := registerUser(t, client, "pinlife")

	require.NoError(t, session.SetupPin(t.Context(), testPassword, testPin))

	const newPin = "731946"
	require.NoError(t, session.UpdatePin(t.Context(), testPin, newPin))

	// The old PIN is gone
	_, err := session.VerifyPin(t.Context(), testPin)
	assertAPIError(t, err, http.StatusBadRequest, "invalid_pin")
	_, err = session.VerifyPin(t.Context(), newPin)
	require.NoError(t, err)

	require.NoError(t, session.RemovePin(t.Context(), testPassword))

	_, err = session.VerifyPin(t.Context(), newPin)
	assertAPIError(t, err, http.StatusBadRequest, "pin_not_set")
}

func TestPinResetByPassword(t *testing.T) {
	baseURL, cleanup := setupVaultContainer(t)
	defer cleanup()

	client := vaultsdk.NewClient(baseURL)
	session, _ := registerUser(t, client, "pinreset")

	require.NoError(t, session.SetupPin(t.Context(), testPassword, testPin))

	const newPin = "555123"
	require.NoError(t, session.ResetPin(t.Context(), testPassword, newPin))

	_, err := session.VerifyPin(t.Context(), newPin)
	require.NoError(t, err)
}
