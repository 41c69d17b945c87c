package vaultsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the vault service. It handles the unauthenticated surface
// (register, login, refresh, health) and creates authenticated Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a vault service client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// Register creates a new account and returns an authenticated session.
func (c *Client) Register(ctx context.Context, username, password string) (*Session, error) {
	var tokens TokenResponse
	err := c.postJSON(ctx, "/v1/auth/register", RegisterRequest{
		Username: username,
		Password: password,
	}, &tokens, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// Login authenticates with a password. When the account has a second factor
// enabled the returned error is a *TwoFactorRequiredError carrying the
// challenge token; complete it with CompleteTwoFactor.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var tokens TokenResponse
	err := c.postJSON(ctx, "/v1/auth/login", LoginRequest{
		Username: username,
		Password: password,
	}, &tokens, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// CompleteTwoFactor finishes a pending login challenge with a TOTP or backup
// code.
func (c *Client) CompleteTwoFactor(ctx context.Context, challengeToken, code string) (*Session, error) {
	var tokens TokenResponse
	err := c.postJSON(ctx, "/v1/auth/2fa", TwoFactorLoginRequest{
		ChallengeToken: challengeToken,
		Code:           code,
	}, &tokens, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// Refresh exchanges a refresh token for a fresh access token and returns a
// session built from the pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var tokens TokenResponse
	err := c.postJSON(ctx, "/v1/auth/refresh", RefreshRequest{
		RefreshToken: refreshToken,
	}, &tokens, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// FetchCsrfToken issues an anti-forgery token. The raw value doubles as the
// vault_csrf cookie and the X-CSRF-Token header on mutating requests.
func (c *Client) FetchCsrfToken(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/csrf", nil, nil)
	if err != nil {
		return "", err
	}

	var out CsrfResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return "", err
	}
	return out.CsrfToken, nil
}

// Livez checks service liveness.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// Readyz checks service readiness including its dependencies.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// postJSON sends an unauthenticated JSON request and decodes the response.
func (c *Client) postJSON(ctx context.Context, path string, body, target any, expectedStatus int) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(payload),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}

	return decodeJSON(resp, target, expectedStatus)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a JSON response, turning non-2xx responses into typed
// errors.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkStatusNoContent returns a typed error unless the response is 204.
func checkStatusNoContent(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, bodyBytes)
	}
	return nil
}
