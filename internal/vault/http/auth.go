package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/jwtx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

// AuthHandler handles registration, login, and the session lifecycle.
type AuthHandler struct {
	IdentityService *service.IdentityService
	TokenService    *service.TokenService
	CsrfService     *service.CsrfService
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register a new account
//	@Description	Creates an account and returns a token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.RegisterRequest	true	"Credentials"
//	@Success		201		{object}	vaultsdk.TokenResponse		"Access and refresh tokens"
//	@Failure		400		{object}	vaultsdk.APIError			"Invalid username or weak password"
//	@Failure		409		{object}	vaultsdk.APIError			"Username already taken"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req vaultsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.IdentityService.Register(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		log.Info("registration rejected", "err", err)
		writeServiceError(w, err)
		return
	}

	h.bindCsrf(r, pair)

	httpx.WriteJSON(w, http.StatusCreated, tokenResponse(pair))
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in
//	@Description	Verifies the password and returns a token pair, or a 409 challenge when 2FA is enabled.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	vaultsdk.TokenResponse	"Access and refresh tokens"
//	@Failure		401		{object}	vaultsdk.APIError		"Invalid credentials"
//	@Failure		409		{object}	vaultsdk.TwoFactorRequiredError	"Two-factor challenge"
//	@Failure		429		{object}	vaultsdk.APIError		"Too many attempts"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req vaultsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, challenge, err := h.IdentityService.Login(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if challenge != nil {
		challengeErr := &vaultsdk.TwoFactorRequiredError{
			ChallengeToken: challenge.ChallengeToken,
			Methods:        challenge.Methods,
		}
		challengeErr.WriteError(w)
		return
	}

	log.Info("login succeeded", "username", req.Username)
	h.bindCsrf(r, pair)

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleTwoFactorLogin handles POST /v1/auth/2fa
//
//	@Summary		Complete a two-factor login
//	@Description	Finishes a pending login challenge with a TOTP or backup code.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.TwoFactorLoginRequest	true	"Challenge token and code"
//	@Success		200		{object}	vaultsdk.TokenResponse			"Access and refresh tokens"
//	@Failure		400		{object}	vaultsdk.APIError				"Invalid code"
//	@Failure		401		{object}	vaultsdk.APIError				"Challenge expired"
//	@Failure		429		{object}	vaultsdk.APIError				"Too many attempts"
//	@Router			/v1/auth/2fa [post].
func (h *AuthHandler) HandleTwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req vaultsdk.TwoFactorLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.ChallengeToken == "" || req.Code == "" {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.IdentityService.CompleteChallenge(ctx, req.ChallengeToken, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.bindCsrf(r, pair)

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Refresh the access token
//	@Description	Exchanges a refresh token for a new access token. The refresh token is not rotated.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	vaultsdk.TokenResponse	"New access token"
//	@Failure		401		{object}	vaultsdk.APIError		"Invalid, expired, or revoked refresh token"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req vaultsdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the presented access token and, when supplied, the refresh token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Success		204	"Logged out"
//	@Failure		401	{object}	vaultsdk.APIError	"Invalid or missing access token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// Body is optional; a missing refresh token just narrows the revocation.
	var req vaultsdk.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = vaultsdk.LogoutRequest{}
	}

	if raw := bearerToken(r); raw != "" {
		if err := h.TokenService.Revoke(ctx, raw); err != nil {
			log.Error("failed to revoke access token", "err", err)
			vaultsdk.ErrServerError.WriteError(w)
			return
		}
	}

	if req.RefreshToken != "" {
		if err := h.TokenService.Revoke(ctx, req.RefreshToken); err != nil {
			log.Error("failed to revoke refresh token", "err", err)
			vaultsdk.ErrServerError.WriteError(w)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// bindCsrf pins an anonymous CSRF token to the freshly authenticated subject
// so it can't be replayed across accounts. Best effort: a login without a
// CSRF cookie is fine, the client fetches one later.
func (h *AuthHandler) bindCsrf(r *http.Request, pair *domain.TokenPair) {
	cookie, err := r.Cookie(httpx.CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return
	}

	claims, err := h.TokenService.Validate(r.Context(), pair.AccessToken, jwtx.PurposeAccess)
	if err != nil {
		return
	}
	_ = h.CsrfService.Bind(r.Context(), cookie.Value, claims.Subject)
}

func tokenResponse(pair *domain.TokenPair) vaultsdk.TokenResponse {
	return vaultsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
