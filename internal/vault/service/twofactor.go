package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/usdtvault/vault/internal/vault/audit"
	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/cryptox"
	"github.com/usdtvault/vault/pkg/throttle"
)

// totpSkew allows codes from ±2 time steps to absorb clock drift between the
// server and the authenticator device.
const totpSkew = 2

// TwoFactorService owns TOTP enrolment, verification, and backup codes.
// Secrets are encrypted at rest; backup codes are stored as fingerprints and
// consumed atomically so each works exactly once.
type TwoFactorService struct {
	Store    store.Store
	Identity *IdentityService
	Audit    audit.Recorder
	Throttle *throttle.Limiter
	Issuer   string
}

// Enabled reports whether the user has a confirmed second factor.
func (s *TwoFactorService) Enabled(ctx context.Context, userID string) (bool, error) {
	state, err := s.Store.TwoFactor().GetTwoFactorState(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return state.IsEnabled(), nil
}

// BeginSetup generates a TOTP secret for the user after password
// re-verification. This does NOT enable 2FA yet; the user must confirm a
// code first.
func (s *TwoFactorService) BeginSetup(ctx context.Context, userID, username, password string) (domain.TwoFactorEnrollment, error) {
	if err := s.Identity.VerifyPassword(ctx, userID, password); err != nil {
		return domain.TwoFactorEnrollment{}, err
	}

	state, err := s.Store.TwoFactor().GetTwoFactorState(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.TwoFactorEnrollment{}, err
	}
	if err == nil && state.IsEnabled() {
		return domain.TwoFactorEnrollment{}, ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.TwoFactorEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	encrypted, err := cryptox.EncryptSecret([]byte(key.Secret()))
	if err != nil {
		return domain.TwoFactorEnrollment{}, err
	}

	if err := s.Store.TwoFactor().UpsertPendingSecret(ctx, userID, encrypted); err != nil {
		return domain.TwoFactorEnrollment{}, err
	}

	return domain.TwoFactorEnrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		Issuer:          s.Issuer,
		Account:         username,
	}, nil
}

// ConfirmSetup verifies a code against the pending secret, enables 2FA, and
// returns the plaintext backup codes exactly once.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, userID, code string) ([]string, error) {
	state, err := s.Store.TwoFactor().GetTwoFactorState(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTwoFactorNotPending
		}
		return nil, err
	}
	if state.IsEnabled() {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, err := cryptox.DecryptSecret(state.SecretEncrypted)
	if err != nil {
		return nil, err
	}

	if !validateTOTP(code, string(secret)) {
		return nil, ErrInvalidCode
	}

	backupCodes := make([]string, domain.BackupCodeCount)
	for i := range backupCodes {
		backupCodes[i], err = newBackupCode()
		if err != nil {
			return nil, err
		}
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, c := range backupCodes {
			if err := tx.BackupCodes().CreateBackupCode(ctx, userID, fingerprintBackupCode(c)); err != nil {
				return fmt.Errorf("failed to store backup code: %w", err)
			}
		}
		return tx.TwoFactor().EnableTwoFactor(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, audit.KindTwoFactorEnabled, userID)
	return backupCodes, nil
}

// Verify checks a one-time code: TOTP first, then the backup-code set. A
// matched backup code is consumed in the same statement that matched it.
// Attempts are throttled per user independently of the PIN lockout.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string) (usedBackupCode bool, err error) {
	if d := s.Throttle.Check("2fa:" + userID); !d.Allowed {
		return false, &TooManyAttemptsError{RetryAfter: d.RetryAfter}
	}

	state, err := s.Store.TwoFactor().GetTwoFactorState(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrTwoFactorNotEnabled
		}
		return false, err
	}
	if !state.IsEnabled() {
		return false, ErrTwoFactorNotEnabled
	}

	secret, err := cryptox.DecryptSecret(state.SecretEncrypted)
	if err != nil {
		return false, err
	}

	if validateTOTP(code, string(secret)) {
		s.Throttle.Reset("2fa:" + userID)
		return false, nil
	}

	consumed, err := s.Store.BackupCodes().ConsumeBackupCode(ctx, userID, fingerprintBackupCode(code))
	if err != nil {
		return false, err
	}
	if consumed {
		s.Throttle.Reset("2fa:" + userID)
		s.Audit.Record(ctx, audit.KindBackupCodeUsed, userID)
		return true, nil
	}

	s.Throttle.Fail("2fa:" + userID)
	return false, ErrInvalidCode
}

// Disable turns 2FA off. It takes both the account password and one last
// valid code so neither credential alone is enough.
func (s *TwoFactorService) Disable(ctx context.Context, userID, password, code string) error {
	if err := s.Identity.VerifyPassword(ctx, userID, password); err != nil {
		return err
	}

	if _, err := s.Verify(ctx, userID, code); err != nil {
		return err
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return err
		}
		return tx.TwoFactor().DeleteTwoFactorState(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.KindTwoFactorDisabled, userID)
	return nil
}

// RegenerateBackupCodes replaces the remaining codes after one successful
// verification, returning the new plaintext set exactly once.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	if _, err := s.Verify(ctx, userID, code); err != nil {
		return nil, err
	}

	backupCodes := make([]string, domain.BackupCodeCount)
	var err error
	for i := range backupCodes {
		backupCodes[i], err = newBackupCode()
		if err != nil {
			return nil, err
		}
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return err
		}
		for _, c := range backupCodes {
			if err := tx.BackupCodes().CreateBackupCode(ctx, userID, fingerprintBackupCode(c)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return backupCodes, nil
}

// BackupCodesRemaining reports how many unused codes the user still has.
func (s *TwoFactorService) BackupCodesRemaining(ctx context.Context, userID string) (int, error) {
	return s.Store.BackupCodes().CountUserBackupCodes(ctx, userID)
}

func validateTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// newBackupCode returns a 16-hex-character code. Hex keeps the codes
// case-insensitive for entry, unlike base64.
func newBackupCode() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// fingerprintBackupCode normalises case before hashing so codes match
// however the user types them.
func fingerprintBackupCode(code string) string {
	return cryptox.FingerprintToken(strings.ToLower(strings.TrimSpace(code)))
}
