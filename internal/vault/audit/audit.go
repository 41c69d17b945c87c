// Package audit reports security-relevant events to the event log. The
// current sink is structured logging; the contextual logger already carries
// the request id, so every event lands with its correlation id attached.
package audit

import (
	"context"

	"github.com/usdtvault/vault/pkg/slogx"
)

// Kind identifies what happened.
type Kind string

const (
	KindRegister           Kind = "register"
	KindLoginSuccess       Kind = "login_success"
	KindLoginFailure       Kind = "login_failure"
	KindChallengeIssued    Kind = "2fa_challenge_issued"
	KindTokenRefreshed     Kind = "token_refreshed"
	KindTokenRevoked       Kind = "token_revoked"
	KindStepUpIssued       Kind = "step_up_issued"
	KindPinVerified        Kind = "pin_verified"
	KindPinFailure         Kind = "pin_failure"
	KindPinLockout         Kind = "pin_lockout"
	KindPinChanged         Kind = "pin_changed"
	KindPinRemoved         Kind = "pin_removed"
	KindTwoFactorEnabled   Kind = "2fa_enabled"
	KindTwoFactorDisabled  Kind = "2fa_disabled"
	KindBackupCodeUsed     Kind = "backup_code_used"
	KindDeposit            Kind = "deposit"
	KindWithdrawal         Kind = "withdrawal"
	KindWithdrawScheduled  Kind = "withdrawal_scheduled"
	KindWithdrawReleased   Kind = "withdrawal_released"
	KindWalletWithdrawal   Kind = "wallet_withdrawal"
	KindRateLimitTriggered Kind = "rate_limit_triggered"
)

// Recorder is the write side of the security event log.
type Recorder interface {
	Record(ctx context.Context, kind Kind, subjectID string, attrs ...any)
}

// SlogRecorder writes audit events through the contextual logger. Callers
// outside a request (housekeeping sweeps) should seed their context with
// slogx.WithContext first.
type SlogRecorder struct{}

func NewSlogRecorder() *SlogRecorder {
	return &SlogRecorder{}
}

func (r *SlogRecorder) Record(ctx context.Context, kind Kind, subjectID string, attrs ...any) {
	log := slogx.FromContext(ctx)

	args := make([]any, 0, len(attrs)+4)
	args = append(args, "audit", true, "kind", string(kind))
	if subjectID != "" {
		args = append(args, "subject_id", subjectID)
	}
	args = append(args, attrs...)

	log.Info("security event", args...)
}

// Nop discards every event. Handy in tests.
type Nop struct{}

func (Nop) Record(context.Context, Kind, string, ...any) {}
