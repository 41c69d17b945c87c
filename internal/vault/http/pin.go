package http

import (
	"encoding/json"
	"net/http"

	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

// PinHandler manages the transaction PIN and its step-up tokens.
type PinHandler struct {
	PinService   *service.PinService
	TokenService *service.TokenService
}

// HandleSetup handles POST /v1/security/pin
//
//	@Summary		Set up a transaction PIN
//	@Description	Creates a 6-digit PIN after re-verifying the account password.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.PinSetupRequest	true	"Password and new PIN"
//	@Success		204		"PIN created"
//	@Failure		400		{object}	vaultsdk.APIError	"Malformed PIN"
//	@Failure		401		{object}	vaultsdk.APIError	"Wrong password"
//	@Failure		409		{object}	vaultsdk.APIError	"PIN already set"
//	@Router			/v1/security/pin [post].
func (h *PinHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.PinSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.PinService.Setup(ctx, userID, req.Password, req.Pin); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleVerify handles POST /v1/security/pin/verify
//
//	@Summary		Verify the PIN
//	@Description	Checks the PIN and returns a short-lived step-up token for money movement.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.PinVerifyRequest	true	"PIN"
//	@Success		200		{object}	vaultsdk.StepUpResponse		"Step-up token"
//	@Failure		400		{object}	vaultsdk.APIError			"Incorrect PIN, with attempts_remaining"
//	@Failure		429		{object}	vaultsdk.APIError			"PIN locked, with retry_after"
//	@Router			/v1/security/pin/verify [post].
func (h *PinHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.PinVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.PinService.Verify(ctx, userID, req.Pin); err != nil {
		writeServiceError(w, err)
		return
	}

	token, ttl, err := h.TokenService.IssueStepUp(ctx, userID)
	if err != nil {
		log.Error("failed to issue step-up token", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.StepUpResponse{
		StepUpToken: token,
		ExpiresIn:   int64(ttl.Seconds()),
	})
}

// HandleUpdate handles PUT /v1/security/pin
//
//	@Summary		Change the PIN
//	@Description	Replaces the PIN after verifying the old one. Locks after fewer misses than verification.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.PinUpdateRequest	true	"Old and new PIN"
//	@Success		204		"PIN changed"
//	@Failure		400		{object}	vaultsdk.APIError	"Incorrect or malformed PIN"
//	@Failure		429		{object}	vaultsdk.APIError	"PIN locked"
//	@Router			/v1/security/pin [put].
func (h *PinHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.PinUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.PinService.Update(ctx, userID, req.OldPin, req.NewPin); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemove handles DELETE /v1/security/pin
//
//	@Summary		Remove the PIN
//	@Description	Clears the PIN after re-verifying the account password.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.PinRemoveRequest	true	"Account password"
//	@Success		204		"PIN removed"
//	@Failure		400		{object}	vaultsdk.APIError	"No PIN set"
//	@Failure		401		{object}	vaultsdk.APIError	"Wrong password"
//	@Router			/v1/security/pin [delete].
func (h *PinHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.PinRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.PinService.Remove(ctx, userID, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleReset handles POST /v1/security/pin/reset
//
//	@Summary		Reset a forgotten PIN
//	@Description	Replaces the PIN using the account password, clearing any lockout.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.PinResetRequest	true	"Password and new PIN"
//	@Success		204		"PIN reset"
//	@Failure		400		{object}	vaultsdk.APIError	"No PIN set or malformed PIN"
//	@Failure		401		{object}	vaultsdk.APIError	"Wrong password"
//	@Router			/v1/security/pin/reset [post].
func (h *PinHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.PinResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.PinService.ResetByPassword(ctx, userID, req.Password, req.NewPin); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
