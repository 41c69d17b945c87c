package http

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

// writeServiceError maps a service-layer error onto the wire. Sentinel texts
// double as machine-readable codes, so most of this table is status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var tooMany *service.TooManyAttemptsError
	if errors.As(err, &tooMany) {
		apiErr := vaultsdk.NewAPIError(http.StatusTooManyRequests,
			service.ErrTooManyAttempts.Error(), "too many failed attempts, slow down")
		apiErr.RetryAfter = retryAfterSeconds(tooMany.RetryAfter)
		apiErr.WriteError(w)
		return
	}

	var pinLocked *service.PinLockedError
	if errors.As(err, &pinLocked) {
		apiErr := vaultsdk.NewAPIError(http.StatusTooManyRequests,
			service.ErrPinLocked.Error(), "PIN is locked after too many failed attempts")
		apiErr.RetryAfter = retryAfterSeconds(pinLocked.RetryAfter)
		apiErr.WriteError(w)
		return
	}

	var invalidPin *service.InvalidPinError
	if errors.As(err, &invalidPin) {
		apiErr := vaultsdk.NewAPIError(http.StatusBadRequest,
			service.ErrInvalidPin.Error(), "incorrect PIN")
		remaining := invalidPin.AttemptsRemaining
		apiErr.AttemptsRemaining = &remaining
		apiErr.WriteError(w)
		return
	}

	status, known := statusFor(err)
	if !known {
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	vaultsdk.NewAPIError(status, wireCode(err), "").WriteError(w)
}

// wireCode is the sentinel text except for domain validation errors, whose
// messages are prose rather than codes.
func wireCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrAmountNotPositive),
		errors.Is(err, domain.ErrAmountMalformed):
		return "invalid_amount"
	case errors.Is(err, domain.ErrAddressMalformed):
		return "invalid_address"
	}
	return err.Error()
}

func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrWrongPurpose),
		errors.Is(err, service.ErrInvalidRefresh),
		errors.Is(err, service.ErrChallengeExpired),
		errors.Is(err, service.ErrStepUpRequired):
		return http.StatusUnauthorized, true

	case errors.Is(err, service.ErrCsrfInvalid):
		return http.StatusForbidden, true

	case errors.Is(err, service.ErrGoalNotFound),
		errors.Is(err, service.ErrNotGoalOwner):
		// Someone else's goal looks identical to a missing one.
		return http.StatusNotFound, true

	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrPinAlreadySet),
		errors.Is(err, service.ErrTwoFactorAlreadyEnabled),
		errors.Is(err, service.ErrCooldownActive),
		errors.Is(err, service.ErrCorrelationKeyReplay):
		return http.StatusConflict, true

	case errors.Is(err, service.ErrUsernameInvalid),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPinMalformed),
		errors.Is(err, service.ErrPinNotSet),
		errors.Is(err, service.ErrTwoFactorNotEnabled),
		errors.Is(err, service.ErrTwoFactorNotPending),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrInvalidPin),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInsufficientGoal),
		errors.Is(err, service.ErrGoalTargetExceeded),
		errors.Is(err, service.ErrNoScheduledWithdraw),
		errors.Is(err, domain.ErrAmountNotPositive),
		errors.Is(err, domain.ErrAmountMalformed),
		errors.Is(err, domain.ErrAddressMalformed):
		return http.StatusBadRequest, true
	}

	return 0, false
}

// retryAfterSeconds rounds up so a client that waits exactly this long is
// never rejected again.
func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
