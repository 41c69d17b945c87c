package service

import (
	"context"
	"errors"
	"time"

	"github.com/usdtvault/vault/internal/vault/audit"
	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/cryptox"
	"github.com/usdtvault/vault/pkg/idx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/throttle"
)

const (
	// MaxChallengeAttempts is the maximum number of failed code attempts
	// allowed per pending login challenge.
	MaxChallengeAttempts = 5

	minUsernameLength = 3
	minPasswordLength = 8
)

var ErrWeakPassword = errors.New("weak_password")

// TooManyAttemptsError carries the backoff delay alongside the sentinel.
type TooManyAttemptsError struct {
	RetryAfter time.Duration
}

func (e *TooManyAttemptsError) Error() string { return ErrTooManyAttempts.Error() }

func (e *TooManyAttemptsError) Is(target error) bool { return target == ErrTooManyAttempts }

// IdentityService owns registration, login, and the pending-2FA login
// challenge. Login attempts are throttled per username with exponential
// backoff before the password is even checked.
type IdentityService struct {
	Store     store.Store
	Tokens    *TokenService
	TwoFactor *TwoFactorService
	Audit     audit.Recorder
	Throttle  *throttle.Limiter

	ChallengeTTL time.Duration
}

// Register creates a new account and signs it straight in.
func (s *IdentityService) Register(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	if len(username) < minUsernameLength {
		return nil, ErrUsernameInvalid
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := cryptox.HashSecret(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.Audit.Record(ctx, audit.KindRegister, user.ID)
	return s.Tokens.IssuePair(ctx, user)
}

// Login verifies the password. When the account has a second factor enabled
// it returns a challenge instead of tokens; the caller completes it with
// CompleteChallenge.
func (s *IdentityService) Login(ctx context.Context, username, password string) (*domain.TokenPair, *domain.TwoFactorChallenge, error) {
	log := slogx.FromContext(ctx)

	if d := s.Throttle.Check("login:" + username); !d.Allowed {
		return nil, nil, &TooManyAttemptsError{RetryAfter: d.RetryAfter}
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Count the miss so usernames can't be enumerated cheaply.
			s.Throttle.Fail("login:" + username)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := cryptox.VerifySecret(password, user.PasswordHash); err != nil {
		s.Throttle.Fail("login:" + username)
		s.Audit.Record(ctx, audit.KindLoginFailure, user.ID)
		log.Info("login failed", "username", username)
		return nil, nil, ErrInvalidCredentials
	}

	s.Throttle.Reset("login:" + username)

	enabled, err := s.TwoFactor.Enabled(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if enabled {
		challenge, err := s.beginChallenge(ctx, user.ID)
		if err != nil {
			return nil, nil, err
		}
		return nil, challenge, nil
	}

	s.Audit.Record(ctx, audit.KindLoginSuccess, user.ID)

	pair, err := s.Tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return pair, nil, nil
}

func (s *IdentityService) beginChallenge(ctx context.Context, userID string) (*domain.TwoFactorChallenge, error) {
	now := time.Now().UTC()
	session := domain.TwoFactorSession{
		ID:        idx.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ChallengeTTL),
	}
	if err := s.Store.TwoFactorSessions().CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, audit.KindChallengeIssued, userID)
	return &domain.TwoFactorChallenge{
		ChallengeRequired: true,
		ChallengeToken:    session.ID,
		Methods:           []string{"totp", "backup_codes"},
	}, nil
}

// CompleteChallenge finishes a pending 2FA login with a one-time code and
// issues the token pair. The session dies after MaxChallengeAttempts misses.
func (s *IdentityService) CompleteChallenge(ctx context.Context, challengeToken, code string) (*domain.TokenPair, error) {
	session, err := s.Store.TwoFactorSessions().GetSession(ctx, challengeToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChallengeExpired
		}
		return nil, err
	}

	if session.Attempts >= MaxChallengeAttempts {
		_ = s.Store.TwoFactorSessions().DeleteSession(ctx, session.ID)
		return nil, ErrTooManyAttempts
	}

	if _, err := s.TwoFactor.Verify(ctx, session.UserID, code); err != nil {
		if _, incErr := s.Store.TwoFactorSessions().IncrementAttempts(ctx, session.ID); incErr != nil {
			return nil, incErr
		}
		return nil, err
	}

	if err := s.Store.TwoFactorSessions().DeleteSession(ctx, session.ID); err != nil {
		return nil, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, audit.KindLoginSuccess, user.ID)
	return s.Tokens.IssuePair(ctx, user)
}

// ChangePassword re-verifies the old password, swaps the hash, and kills
// every live refresh token so stolen sessions die with the old credential.
func (s *IdentityService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	if err := s.VerifyPassword(ctx, userID, oldPassword); err != nil {
		return err
	}

	hash, err := cryptox.HashSecret(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	return s.Tokens.RevokeAllForUser(ctx, userID)
}

// VerifyPassword re-checks a user's password. Sensitive credential changes
// (PIN setup, 2FA enrolment) gate on this.
func (s *IdentityService) VerifyPassword(ctx context.Context, userID, password string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidPassword
		}
		return err
	}

	if err := cryptox.VerifySecret(password, user.PasswordHash); err != nil {
		return ErrInvalidPassword
	}
	return nil
}
