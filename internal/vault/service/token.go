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
	"github.com/usdtvault/vault/pkg/jwtx"
	"github.com/usdtvault/vault/pkg/slogx"
)

// TokenService mints and validates the three token purposes. Access and
// step-up tokens are stateless JWTs checked against the revocation set;
// refresh tokens are JWTs additionally tracked server-side so they can be
// killed independently of signature validity.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Store    store.Store
	Audit    audit.Recorder
	Issuer   string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	StepUpTTL  time.Duration
}

// IssuePair mints an access/refresh pair for an authenticated user and
// records the refresh token server-side.
func (s *TokenService) IssuePair(ctx context.Context, user domain.User) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	accessToken, err := s.Signer.Sign(jwtx.NewClaims(user.ID, jwtx.PurposeAccess, user.Role, s.Issuer, s.AccessTTL, now))
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.Signer.Sign(jwtx.NewClaims(user.ID, jwtx.PurposeRefresh, "", s.Issuer, s.RefreshTTL, now))
	if err != nil {
		return nil, err
	}

	record := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refreshToken),
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

// IssueStepUp mints a short-lived step-up token after a successful PIN or
// 2FA verification. It is never accepted where an access token is required.
func (s *TokenService) IssueStepUp(ctx context.Context, userID string) (string, time.Duration, error) {
	now := time.Now().UTC()

	token, err := s.Signer.Sign(jwtx.NewClaims(userID, jwtx.PurposeStepUp, "", s.Issuer, s.StepUpTTL, now))
	if err != nil {
		return "", 0, err
	}

	s.Audit.Record(ctx, audit.KindStepUpIssued, userID)
	return token, s.StepUpTTL, nil
}

// Validate checks a raw token end to end: revocation set first, then
// signature, expiry, and finally the expected purpose.
func (s *TokenService) Validate(ctx context.Context, raw, purpose string) (jwtx.Claims, error) {
	revoked, err := s.Store.RevokedTokens().IsRevoked(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		return jwtx.Claims{}, err
	}
	if revoked {
		return jwtx.Claims{}, ErrTokenRevoked
	}

	claims, err := s.Verifier.Verify(raw)
	if err != nil {
		switch {
		case errors.Is(err, jwtx.ErrExpired):
			return jwtx.Claims{}, ErrTokenExpired
		default:
			return jwtx.Claims{}, ErrTokenInvalid
		}
	}

	if err := claims.ValidatePurpose(purpose); err != nil {
		return jwtx.Claims{}, ErrWrongPurpose
	}

	return claims, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// refresh token itself is not rotated; its validity window is untouched.
// The token must decode to purpose=refresh AND appear in the server-side
// table with a matching subject and a future stored expiry.
func (s *TokenService) Refresh(ctx context.Context, rawRefresh string) (*domain.TokenPair, error) {
	now := time.Now().UTC()
	log := slogx.FromContext(ctx)

	claims, err := s.Validate(ctx, rawRefresh, jwtx.PurposeRefresh)
	if err != nil {
		return nil, err
	}

	record, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(rawRefresh))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	if record.Revoked || record.UserID != claims.Subject || now.After(record.ExpiresAt) {
		log.Warn("refresh token rejected", "revoked", record.Revoked)
		return nil, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	accessToken, err := s.Signer.Sign(jwtx.NewClaims(user.ID, jwtx.PurposeAccess, user.Role, s.Issuer, s.AccessTTL, now))
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, audit.KindTokenRefreshed, user.ID)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

// Revoke adds a token to the revocation set. The entry carries the token's
// own expiry so housekeeping can reclaim it once it would have died anyway.
// Refresh tokens are additionally flipped in their server-side table.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	now := time.Now().UTC()
	fingerprint := cryptox.FingerprintToken(raw)

	// Best effort claim parse to learn the natural expiry. A token we can't
	// read gets the widest TTL we ever issue.
	expiresAt := now.Add(s.RefreshTTL)
	subject := ""
	if claims, err := s.Verifier.Verify(raw); err == nil {
		subject = claims.Subject
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RevokedTokens().RevokeToken(ctx, domain.RevokedToken{
			TokenHash: fingerprint,
			ExpiresAt: expiresAt,
			RevokedAt: now,
		}); err != nil {
			return err
		}

		err := tx.RefreshTokens().RevokeRefreshToken(ctx, fingerprint)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		s.Audit.Record(ctx, audit.KindTokenRevoked, subject)
		return nil
	})
}

// RevokeAllForUser kills every live refresh token a user holds. Used after a
// password change.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
}
