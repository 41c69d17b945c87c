package vaultsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Session is an authenticated connection to the vault service. It holds the
// token pair, refreshes the access token when it nears expiry, and manages
// the CSRF double-submit pair for mutating requests.
type Session struct {
	client *Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	csrfToken    string
}

func newSession(c *Client, tokens TokenResponse) *Session {
	return &Session{
		client:       c,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		// 30 second buffer so we refresh before the server-side cutoff.
		expiresAt: time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - 30*time.Second),
	}
}

// AccessToken returns the current access token (for storage or debugging).
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken returns the refresh token.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// getValidToken returns the access token, refreshing it first when expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Now().Before(s.expiresAt) || s.refreshToken == "" {
		return s.accessToken, nil
	}

	var tokens TokenResponse
	err := s.client.postJSON(ctx, "/v1/auth/refresh", RefreshRequest{
		RefreshToken: s.refreshToken,
	}, &tokens, http.StatusOK)
	if err != nil {
		return "", fmt.Errorf("failed to refresh access token: %w", err)
	}

	s.accessToken = tokens.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - 30*time.Second)
	return s.accessToken, nil
}

// ensureCsrfToken lazily fetches an anti-forgery token for this session.
func (s *Session) ensureCsrfToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.csrfToken != "" {
		token := s.csrfToken
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	token, err := s.client.FetchCsrfToken(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.csrfToken = token
	s.mu.Unlock()
	return token, nil
}

// doAuthRequest performs an authenticated request. Mutating methods carry the
// CSRF cookie/header pair alongside the bearer token.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if method != http.MethodGet && method != http.MethodHead {
		csrf, err := s.ensureCsrfToken(ctx)
		if err != nil {
			return nil, err
		}
		req.AddCookie(&http.Cookie{Name: "vault_csrf", Value: csrf})
		req.Header.Set("X-CSRF-Token", csrf)
	}

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// postJSON sends an authenticated JSON request, decoding into target when it
// is non-nil.
func (s *Session) postJSON(ctx context.Context, method, path string, body, target any, expectedStatus int, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"

	resp, err := s.doAuthRequest(ctx, method, path, reader, headers)
	if err != nil {
		return err
	}

	if expectedStatus == http.StatusNoContent {
		return checkStatusNoContent(resp)
	}
	return decodeJSON(resp, target, expectedStatus)
}

// getJSON sends an authenticated GET and decodes the response.
func (s *Session) getJSON(ctx context.Context, path string, target any) error {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, http.StatusOK)
}

// Logout revokes both tokens and drops the session state.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.refreshToken
	s.mu.Unlock()

	err := s.postJSON(ctx, http.MethodPost, "/v1/auth/logout", LogoutRequest{
		RefreshToken: refresh,
	}, nil, http.StatusNoContent, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.csrfToken = ""
	s.mu.Unlock()
	return nil
}

// ChangePassword swaps the account password. Every refresh token dies with
// the old credential, including this session's.
func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return s.postJSON(ctx, http.MethodPost, "/v1/security/password", PasswordChangeRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, nil, http.StatusNoContent, nil)
}
