package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/usdtvault/vault/internal/vault/audit"
	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/cryptox"
)

var pinPattern = regexp.MustCompile(`^\d{6}$`)

// PinLockedError carries the remaining lockout alongside the sentinel.
type PinLockedError struct {
	RetryAfter time.Duration
}

func (e *PinLockedError) Error() string { return ErrPinLocked.Error() }

func (e *PinLockedError) Is(target error) bool { return target == ErrPinLocked }

// InvalidPinError reports how many attempts remain before lockout.
type InvalidPinError struct {
	AttemptsRemaining int
}

func (e *InvalidPinError) Error() string { return ErrInvalidPin.Error() }

func (e *InvalidPinError) Is(target error) bool { return target == ErrInvalidPin }

// PinService is the PIN step-up gate in front of money movement. Verify and
// Update share one failure counter but lock at different thresholds: the
// update path locks sooner because a changed PIN is harder to undo than a
// blocked withdrawal.
type PinService struct {
	Store    store.Store
	Identity *IdentityService
	Audit    audit.Recorder
}

// Setup creates a PIN after re-verifying the account password.
func (s *PinService) Setup(ctx context.Context, userID, password, newPin string) error {
	if !pinPattern.MatchString(newPin) {
		return ErrPinMalformed
	}

	if err := s.Identity.VerifyPassword(ctx, userID, password); err != nil {
		return err
	}

	if _, err := s.Store.PinStates().GetPinState(ctx, userID); err == nil {
		return ErrPinAlreadySet
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := cryptox.HashSecret(newPin)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.Store.PinStates().UpsertPinState(ctx, domain.PinState{
		UserID:    userID,
		PinHash:   hash,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Verify checks the PIN for a money-movement gate. A locked PIN rejects even
// the correct value until the lockout passes.
func (s *PinService) Verify(ctx context.Context, userID, pin string) error {
	err := s.check(ctx, userID, pin, domain.PinVerifyMaxAttempts, domain.PinVerifyLockout)
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.KindPinVerified, userID)
	return nil
}

// Update changes the PIN after verifying the old one. The old-PIN check uses
// the stricter update thresholds.
func (s *PinService) Update(ctx context.Context, userID, oldPin, newPin string) error {
	if !pinPattern.MatchString(newPin) {
		return ErrPinMalformed
	}

	if err := s.check(ctx, userID, oldPin, domain.PinUpdateMaxAttempts, domain.PinUpdateLockout); err != nil {
		return err
	}

	hash, err := cryptox.HashSecret(newPin)
	if err != nil {
		return err
	}

	state, err := s.Store.PinStates().GetPinState(ctx, userID)
	if err != nil {
		return err
	}

	state.PinHash = hash
	state.FailedAttempts = 0
	state.LockoutUntil = nil
	state.UpdatedAt = time.Now().UTC()
	if err := s.Store.PinStates().UpsertPinState(ctx, state); err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.KindPinChanged, userID)
	return nil
}

// Remove clears the PIN entirely after password re-verification.
func (s *PinService) Remove(ctx context.Context, userID, password string) error {
	if err := s.Identity.VerifyPassword(ctx, userID, password); err != nil {
		return err
	}

	if err := s.Store.PinStates().DeletePinState(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPinNotSet
		}
		return err
	}

	s.Audit.Record(ctx, audit.KindPinRemoved, userID)
	return nil
}

// ResetByPassword replaces a forgotten (possibly locked) PIN using the
// account password, clearing all counters.
func (s *PinService) ResetByPassword(ctx context.Context, userID, password, newPin string) error {
	if !pinPattern.MatchString(newPin) {
		return ErrPinMalformed
	}

	if err := s.Identity.VerifyPassword(ctx, userID, password); err != nil {
		return err
	}

	state, err := s.Store.PinStates().GetPinState(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPinNotSet
		}
		return err
	}

	hash, err := cryptox.HashSecret(newPin)
	if err != nil {
		return err
	}

	state.PinHash = hash
	state.FailedAttempts = 0
	state.LockoutUntil = nil
	state.UpdatedAt = time.Now().UTC()
	if err := s.Store.PinStates().UpsertPinState(ctx, state); err != nil {
		return err
	}

	s.Audit.Record(ctx, audit.KindPinChanged, userID)
	return nil
}

// Attempts reports how many verification attempts remain before lockout.
func (s *PinService) Attempts(ctx context.Context, userID string) (int, error) {
	state, err := s.Store.PinStates().GetPinState(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrPinNotSet
		}
		return 0, err
	}

	remaining := domain.PinVerifyMaxAttempts - state.FailedAttempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// check is the shared lockout state machine behind Verify and Update.
func (s *PinService) check(ctx context.Context, userID, pin string, maxAttempts int, lockout time.Duration) error {
	now := time.Now().UTC()

	state, err := s.Store.PinStates().GetPinState(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPinNotSet
		}
		return err
	}

	if locked, remaining := state.LockedUntil(now); locked {
		return &PinLockedError{RetryAfter: remaining}
	}

	if err := cryptox.VerifySecret(pin, state.PinHash); err != nil {
		var lockUntil *time.Time
		if state.FailedAttempts+1 >= maxAttempts {
			until := now.Add(lockout)
			lockUntil = &until
		}

		updated, recErr := s.Store.PinStates().RecordPinFailure(ctx, userID, lockUntil)
		if recErr != nil {
			return recErr
		}

		if locked, remaining := updated.LockedUntil(now); locked {
			s.Audit.Record(ctx, audit.KindPinLockout, userID, "failed_attempts", updated.FailedAttempts)
			return &PinLockedError{RetryAfter: remaining}
		}

		s.Audit.Record(ctx, audit.KindPinFailure, userID, "failed_attempts", updated.FailedAttempts)
		return &InvalidPinError{AttemptsRemaining: maxAttempts - updated.FailedAttempts}
	}

	return s.Store.PinStates().ResetPinCounters(ctx, userID)
}
