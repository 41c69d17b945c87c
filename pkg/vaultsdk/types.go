package vaultsdk

// ============================================================================
// Auth Types
// ============================================================================

// RegisterRequest creates a new account.
type RegisterRequest struct {
	// Username is the login name (at least 3 characters).
	Username string `json:"username"`

	// Password is the account password (at least 8 characters).
	Password string `json:"password"`
}

// LoginRequest authenticates with username and password.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned whenever the server mints a session: register,
// login, two-factor completion, and refresh.
type TokenResponse struct {
	// AccessToken is the JWT used to authenticate API requests.
	AccessToken string `json:"access_token"`

	// RefreshToken exchanges for new access tokens. It is not rotated on use.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// TwoFactorLoginRequest completes a pending login challenge.
type TwoFactorLoginRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"` // TOTP or backup code
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest revokes the session. The access token comes from the
// Authorization header; the refresh token rides in the body.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// CsrfResponse carries a freshly issued anti-forgery token. The same value is
// also set as the vault_csrf cookie; mutating requests echo it in the
// X-CSRF-Token header.
type CsrfResponse struct {
	CsrfToken string `json:"csrf_token"`
}

// ============================================================================
// PIN Types
// ============================================================================

// PinSetupRequest creates a transaction PIN. Requires the account password.
type PinSetupRequest struct {
	Password string `json:"password"`
	Pin      string `json:"pin"` // exactly 6 digits
}

// PinVerifyRequest checks the PIN and, on success, returns a step-up token.
type PinVerifyRequest struct {
	Pin string `json:"pin"`
}

// PinUpdateRequest changes the PIN using the old one.
type PinUpdateRequest struct {
	OldPin string `json:"old_pin"`
	NewPin string `json:"new_pin"`
}

// PinRemoveRequest clears the PIN. Requires the account password.
type PinRemoveRequest struct {
	Password string `json:"password"`
}

// PinResetRequest replaces a forgotten PIN using the account password.
type PinResetRequest struct {
	Password string `json:"password"`
	NewPin   string `json:"new_pin"`
}

// StepUpResponse is a short-lived token proving a recent PIN or 2FA
// verification. Money-movement endpoints that demand step-up take it in the
// X-Step-Up-Token header.
type StepUpResponse struct {
	StepUpToken string `json:"step_up_token"`

	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// UsedBackupCode is true when a backup code answered a 2FA step-up.
	UsedBackupCode bool `json:"used_backup_code,omitempty"`
}

// ============================================================================
// Two-Factor Types
// ============================================================================

// TwoFactorEnrollRequest starts TOTP enrolment. Requires the password.
type TwoFactorEnrollRequest struct {
	Password string `json:"password"`
}

// TwoFactorEnrollResponse carries the provisioning material for the
// authenticator app. 2FA stays off until a code confirms the device.
type TwoFactorEnrollResponse struct {
	Secret          string `json:"secret" example:"JBSWY3DPEHPK3PXP"`
	ProvisioningURI string `json:"provisioning_uri" example:"otpauth://totp/vault:alice?secret=JBSWY3DPEHPK3PXP&issuer=vault"`
	Issuer          string `json:"issuer"`
	Account         string `json:"account"`
}

// TwoFactorCodeRequest submits a one-time code (confirm, verify, regenerate).
type TwoFactorCodeRequest struct {
	Code string `json:"code"`
}

// TwoFactorDisableRequest turns 2FA off. Both credentials are required.
type TwoFactorDisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

// BackupCodesResponse carries plaintext backup codes. They are shown exactly
// once; the server stores only fingerprints.
type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

// PasswordChangeRequest swaps the account password and revokes all sessions.
type PasswordChangeRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ============================================================================
// Goal Types
// ============================================================================

// CreateGoalRequest adds a savings goal.
type CreateGoalRequest struct {
	Name string `json:"name"`

	// Target is a decimal string, e.g. "500" or "499.99".
	Target string `json:"target"`
}

// GoalInfo is one savings goal as the API reports it. Amounts are decimal
// strings; the server never rounds through floats.
type GoalInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Current string `json:"current"`
	Target  string `json:"target"`

	// Progress is Current/Target as a percentage with 2 decimal places.
	Progress string `json:"progress"`

	// SavingStreak counts consecutive days with at least one deposit.
	SavingStreak int `json:"saving_streak"`

	// PendingWithdrawal and CooldownUntil describe a scheduled withdrawal
	// still in its cooling period, when one exists.
	PendingWithdrawal string `json:"pending_withdrawal,omitempty"`
	CooldownUntil     string `json:"cooldown_until,omitempty"` // RFC3339

	CreatedAt string `json:"created_at"` // RFC3339
}

// ListGoalsResponse contains the caller's goals.
type ListGoalsResponse struct {
	Goals []GoalInfo `json:"goals"`
}

// AmountRequest moves money: goal deposits and withdrawals, wallet top-ups.
type AmountRequest struct {
	// Amount is a positive decimal string, at most 8 fractional digits.
	Amount string `json:"amount"`

	// UseCooldown schedules a goal withdrawal instead of applying it now.
	UseCooldown bool `json:"use_cooldown,omitempty"`

	// CorrelationKey makes the operation idempotent; retries with the same
	// key return the original result. The Idempotency-Key header wins when
	// both are set.
	CorrelationKey string `json:"correlation_key,omitempty"`
}

// WalletWithdrawRequest sends funds to an external address. Requires step-up.
type WalletWithdrawRequest struct {
	Amount         string `json:"amount"`
	Address        string `json:"address"` // 0x + 40 hex characters
	CorrelationKey string `json:"correlation_key,omitempty"`
}

// LinkWalletRequest stores a read-only external wallet address.
type LinkWalletRequest struct {
	Address string `json:"address"`
}

// TransactionInfo is one ledger row.
type TransactionInfo struct {
	ID             string `json:"id"`
	GoalID         string `json:"goal_id,omitempty"`
	Type           string `json:"type"`   // credit | debit
	Status         string `json:"status"` // completed | pending | failed
	Amount         string `json:"amount"`
	CorrelationKey string `json:"correlation_key"`
	Address        string `json:"address,omitempty"`
	CreatedAt      string `json:"created_at"` // RFC3339
}

// TransactionResponse is returned from every money-moving endpoint.
type TransactionResponse struct {
	Transaction TransactionInfo `json:"transaction"`

	// Replayed is true when the correlation key matched an earlier call and
	// nothing was re-applied.
	Replayed bool `json:"replayed"`
}

// ListTransactionsResponse is the ledger, newest first.
type ListTransactionsResponse struct {
	Transactions []TransactionInfo `json:"transactions"`
}

// WalletResponse reports the wallet balances.
type WalletResponse struct {
	// Balance is the full wallet balance including escrowed goal funds.
	Balance string `json:"balance"`

	// Available is the spendable portion: Balance minus everything held in
	// goals or parked in cooling-period withdrawals.
	Available string `json:"available"`

	// Address is the linked read-only external address, when set.
	Address string `json:"address,omitempty"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is shared by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the readiness of critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
