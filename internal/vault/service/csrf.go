package service

import (
	"context"
	"errors"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/cryptox"
)

// CsrfService issues and verifies the server-side half of the double-submit
// pair. Only the fingerprint is stored; the raw value lives in the caller's
// cookie.
type CsrfService struct {
	Store store.Store
	TTL   time.Duration
}

// Issue mints a new anti-forgery token. subjectID may be empty for callers
// that are not logged in yet; the token is then bound at login.
func (s *CsrfService) Issue(ctx context.Context, subjectID string) (string, error) {
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	err = s.Store.CsrfTokens().CreateCsrfToken(ctx, domain.CsrfToken{
		TokenHash: cryptox.FingerprintToken(raw),
		SubjectID: subjectID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	})
	if err != nil {
		return "", err
	}

	return raw, nil
}

// VerifyCsrfToken checks a presented token against the server-side record.
// A token bound to a subject only verifies for that subject. Implements
// httpx.CsrfVerifier.
func (s *CsrfService) VerifyCsrfToken(ctx context.Context, token, subjectID string) error {
	record, err := s.Store.CsrfTokens().GetCsrfToken(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCsrfInvalid
		}
		return err
	}

	if record.SubjectID != "" && record.SubjectID != subjectID {
		return ErrCsrfInvalid
	}

	return nil
}

// Bind attaches an authenticated subject to a previously anonymous token so
// it can no longer be replayed across accounts.
func (s *CsrfService) Bind(ctx context.Context, token, subjectID string) error {
	err := s.Store.CsrfTokens().BindCsrfToken(ctx, cryptox.FingerprintToken(token), subjectID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrCsrfInvalid
	}
	return err
}

// Drop removes a token server-side (logout).
func (s *CsrfService) Drop(ctx context.Context, token string) error {
	return s.Store.CsrfTokens().DeleteCsrfToken(ctx, cryptox.FingerprintToken(token))
}
