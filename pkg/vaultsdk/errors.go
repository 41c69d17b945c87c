package vaultsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/usdtvault/vault/pkg/httpx"
)

// Machine-readable error codes shared between the server and this SDK. The
// service-layer sentinels carry the same strings, so handlers can map an
// error to its wire code without a lookup table.
const (
	ErrorCodeInvalidRequest  = "invalid_request"
	ErrorCodeInvalidToken    = "invalid_token"
	ErrorCodeServerError     = "server_error"
	ErrorCodeTooManyAttempts = "too_many_attempts"
	ErrorCodeTwoFactor       = "two_factor_required"
)

// APIError is the error payload every endpoint writes:
// {"error": code, "error_description": text}. It serves double duty as the
// server-side writer and the client-side typed error.
type APIError struct {
	// StatusCode is the HTTP status code for this error.
	StatusCode int `json:"-"`

	// Code is the machine-readable error code.
	Code string `json:"error"`

	// Description is a human-readable description of the error.
	Description string `json:"error_description,omitempty"`

	// RetryAfter is set on throttled responses (seconds).
	RetryAfter int `json:"retry_after,omitempty"`

	// AttemptsRemaining is set on failed PIN verifications.
	AttemptsRemaining *int `json:"attempts_remaining,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this error to an HTTP response writer, adding a
// Retry-After header when the error carries a backoff.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

var (
	// ErrInvalidRequest is returned when the request body is malformed or
	// missing required fields.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidToken is returned when the access token is missing, invalid,
	// expired or revoked.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid, expired or revoked",
	}

	// ErrServerError is returned for unexpected internal failures.
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewAPIError creates an APIError with a custom status, code, and description.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// TwoFactorRequiredError is returned from login when the account has a second
// factor enabled. It is sent as 409 Conflict: the credentials were right but
// the session needs another step.
type TwoFactorRequiredError struct {
	// ChallengeToken identifies the pending login; submit it with the code.
	ChallengeToken string `json:"challenge_token"`

	// Methods lists the ways the challenge can be answered.
	Methods []string `json:"methods"`
}

func (e *TwoFactorRequiredError) Error() string {
	return fmt.Sprintf("two-factor verification required: methods=%v", e.Methods)
}

// WriteError writes the challenge as a 409 with the standard error envelope.
func (e *TwoFactorRequiredError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":             ErrorCodeTwoFactor,
		"error_description": "two-factor verification is required to complete this login",
		"challenge_token":   e.ChallengeToken,
		"methods":           e.Methods,
	})
}

// parseErrorResponse turns a non-2xx response into a typed error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusConflict {
		var challenge struct {
			Error          string   `json:"error"`
			ChallengeToken string   `json:"challenge_token"`
			Methods        []string `json:"methods"`
		}
		if err := json.Unmarshal(body, &challenge); err == nil &&
			challenge.Error == ErrorCodeTwoFactor && challenge.ChallengeToken != "" {
			return &TwoFactorRequiredError{
				ChallengeToken: challenge.ChallengeToken,
				Methods:        challenge.Methods,
			}
		}
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
