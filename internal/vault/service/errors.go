package service

import "errors"

// Sentinel errors shared across services. The HTTP layer maps these onto the
// wire error codes, so their text doubles as the machine-readable code.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrUsernameInvalid    = errors.New("invalid_username")

	ErrTokenExpired   = errors.New("token_expired")
	ErrTokenInvalid   = errors.New("token_invalid")
	ErrTokenRevoked   = errors.New("token_revoked")
	ErrWrongPurpose   = errors.New("wrong_purpose")
	ErrInvalidRefresh = errors.New("invalid_refresh_token")

	ErrTooManyAttempts = errors.New("too_many_attempts")
	ErrStepUpRequired  = errors.New("step_up_required")

	ErrPinNotSet       = errors.New("pin_not_set")
	ErrPinAlreadySet   = errors.New("pin_already_set")
	ErrInvalidPin      = errors.New("invalid_pin")
	ErrPinLocked       = errors.New("pin_locked")
	ErrPinMalformed    = errors.New("pin_malformed")
	ErrInvalidPassword = errors.New("invalid_password")

	ErrTwoFactorNotEnabled     = errors.New("2fa_not_enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("2fa_already_enabled")
	ErrTwoFactorNotPending     = errors.New("2fa_not_pending")
	ErrInvalidCode             = errors.New("invalid_code")
	ErrChallengeExpired        = errors.New("challenge_expired")

	ErrCsrfInvalid = errors.New("csrf_invalid")

	ErrGoalNotFound         = errors.New("goal_not_found")
	ErrNotGoalOwner         = errors.New("not_goal_owner")
	ErrInsufficientBalance  = errors.New("insufficient_available_balance")
	ErrInsufficientGoal     = errors.New("insufficient_goal_balance")
	ErrGoalTargetExceeded   = errors.New("goal_target_exceeded")
	ErrCooldownActive       = errors.New("cooldown_active")
	ErrNoScheduledWithdraw  = errors.New("no_scheduled_withdrawal")
	ErrCorrelationKeyReplay = errors.New("correlation_key_conflict")
)
