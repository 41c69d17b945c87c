package vaultsdk

import (
	"context"
	"net/http"
)

// SetupPin creates the transaction PIN.
func (s *Session) SetupPin(ctx context.Context, password, pin string) error {
	return s.postJSON(ctx, http.MethodPost, "/v1/security/pin", PinSetupRequest{
		Password: password,
		Pin:      pin,
	}, nil, http.StatusNoContent, nil)
}

// VerifyPin checks the PIN and returns a step-up token for money movement.
func (s *Session) VerifyPin(ctx context.Context, pin string) (*StepUpResponse, error) {
	var out StepUpResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/security/pin/verify", PinVerifyRequest{
		Pin: pin,
	}, &out, http.StatusOK, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePin changes the PIN using the old one.
func (s *Session) UpdatePin(ctx context.Context, oldPin, newPin string) error {
	return s.postJSON(ctx, http.MethodPut, "/v1/security/pin", PinUpdateRequest{
		OldPin: oldPin,
		NewPin: newPin,
	}, nil, http.StatusNoContent, nil)
}

// RemovePin clears the PIN using the account password.
func (s *Session) RemovePin(ctx context.Context, password string) error {
	return s.postJSON(ctx, http.MethodDelete, "/v1/security/pin", PinRemoveRequest{
		Password: password,
	}, nil, http.StatusNoContent, nil)
}

// ResetPin replaces a forgotten PIN using the account password.
func (s *Session) ResetPin(ctx context.Context, password, newPin string) error {
	return s.postJSON(ctx, http.MethodPost, "/v1/security/pin/reset", PinResetRequest{
		Password: password,
		NewPin:   newPin,
	}, nil, http.StatusNoContent, nil)
}

// EnrollTwoFactor starts TOTP enrolment and returns the provisioning
// material. Confirm with a code to actually enable it.
func (s *Session) EnrollTwoFactor(ctx context.Context, password string) (*TwoFactorEnrollResponse, error) {
	var out TwoFactorEnrollResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/security/2fa/enroll", TwoFactorEnrollRequest{
		Password: password,
	}, &out, http.StatusOK, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmTwoFactor verifies a code against the pending enrolment, enables
// 2FA, and returns the backup codes. They are shown exactly once.
func (s *Session) ConfirmTwoFactor(ctx context.Context, code string) (*BackupCodesResponse, error) {
	var out BackupCodesResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/security/2fa/confirm", TwoFactorCodeRequest{
		Code: code,
	}, &out, http.StatusOK, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTwoFactor checks a one-time code and returns a step-up token.
func (s *Session) VerifyTwoFactor(ctx context.Context, code string) (*StepUpResponse, error) {
	var out StepUpResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/security/2fa/verify", TwoFactorCodeRequest{
		Code: code,
	}, &out, http.StatusOK, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DisableTwoFactor turns 2FA off. Takes both the password and a valid code.
func (s *Session) DisableTwoFactor(ctx context.Context, password, code string) error {
	return s.postJSON(ctx, http.MethodDelete, "/v1/security/2fa", TwoFactorDisableRequest{
		Password: password,
		Code:     code,
	}, nil, http.StatusNoContent, nil)
}

// RegenerateBackupCodes replaces the remaining backup codes after one
// successful code verification.
func (s *Session) RegenerateBackupCodes(ctx context.Context, code string) (*BackupCodesResponse, error) {
	var out BackupCodesResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/security/2fa/backup-codes", TwoFactorCodeRequest{
		Code: code,
	}, &out, http.StatusOK, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
