package domain

import "time"

// TwoFactorState holds a user's TOTP enrolment. The secret is encrypted at
// rest; Enabled is nil while setup is pending confirmation.
type TwoFactorState struct {
	UserID          string
	SecretEncrypted []byte
	Enabled         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsEnabled reports whether the second factor is confirmed and active.
func (s *TwoFactorState) IsEnabled() bool {
	return s.Enabled != nil
}

// TwoFactorEnrollment is returned from beginSetup so the user can provision
// their authenticator app.
type TwoFactorEnrollment struct {
	Secret          string `json:"secret"`           // base32 encoded
	ProvisioningURI string `json:"provisioning_uri"` // otpauth:// URL for QR code generation
	Issuer          string `json:"issuer"`
	Account         string `json:"account"`
}

// BackupCodeCount is how many single-use recovery codes are minted when the
// second factor is confirmed.
const BackupCodeCount = 10
