package http

import (
	"encoding/json"
	"net/http"

	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

// SecurityHandler covers 2FA enrolment and password changes.
type SecurityHandler struct {
	Store            store.Store
	IdentityService  *service.IdentityService
	TwoFactorService *service.TwoFactorService
	TokenService     *service.TokenService
}

// HandleTwoFactorEnroll handles POST /v1/security/2fa/enroll
//
//	@Summary		Begin 2FA enrolment
//	@Description	Generates a TOTP secret and provisioning URI. 2FA stays off until a code is confirmed.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.TwoFactorEnrollRequest		true	"Account password"
//	@Success		200		{object}	vaultsdk.TwoFactorEnrollResponse	"Secret and provisioning URI"
//	@Failure		401		{object}	vaultsdk.APIError					"Wrong password"
//	@Failure		409		{object}	vaultsdk.APIError					"Already enabled"
//	@Router			/v1/security/2fa/enroll [post].
func (h *SecurityHandler) HandleTwoFactorEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.TwoFactorEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		log.Error("failed to load user for enrolment", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	enrollment, err := h.TwoFactorService.BeginSetup(ctx, userID, user.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.TwoFactorEnrollResponse{
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
		Issuer:          enrollment.Issuer,
		Account:         enrollment.Account,
	})
}

// HandleTwoFactorConfirm handles POST /v1/security/2fa/confirm
//
//	@Summary		Confirm 2FA enrolment
//	@Description	Verifies a code against the pending secret, enables 2FA, and returns the backup codes.
//	@Description	The backup codes are shown exactly once.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.TwoFactorCodeRequest	true	"TOTP code"
//	@Success		200		{object}	vaultsdk.BackupCodesResponse	"Backup codes"
//	@Failure		400		{object}	vaultsdk.APIError				"Invalid code or no pending enrolment"
//	@Failure		409		{object}	vaultsdk.APIError				"Already enabled"
//	@Router			/v1/security/2fa/confirm [post].
func (h *SecurityHandler) HandleTwoFactorConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.TwoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	codes, err := h.TwoFactorService.ConfirmSetup(ctx, userID, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.BackupCodesResponse{Codes: codes})
}

// HandleTwoFactorVerify handles POST /v1/security/2fa/verify
//
//	@Summary		Verify a 2FA code
//	@Description	Checks a TOTP or backup code and returns a short-lived step-up token.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.TwoFactorCodeRequest	true	"TOTP or backup code"
//	@Success		200		{object}	vaultsdk.StepUpResponse			"Step-up token"
//	@Failure		400		{object}	vaultsdk.APIError				"Invalid code"
//	@Failure		429		{object}	vaultsdk.APIError				"Too many attempts"
//	@Router			/v1/security/2fa/verify [post].
func (h *SecurityHandler) HandleTwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.TwoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	usedBackup, err := h.TwoFactorService.Verify(ctx, userID, req.Code)
	if err != nil {
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
		StepUpToken:    token,
		ExpiresIn:      int64(ttl.Seconds()),
		UsedBackupCode: usedBackup,
	})
}

// HandleTwoFactorDisable handles DELETE /v1/security/2fa
//
//	@Summary		Disable 2FA
//	@Description	Turns 2FA off. Requires both the account password and one last valid code.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.TwoFactorDisableRequest	true	"Password and code"
//	@Success		204		"2FA disabled"
//	@Failure		400		{object}	vaultsdk.APIError	"Invalid code or 2FA not enabled"
//	@Failure		401		{object}	vaultsdk.APIError	"Wrong password"
//	@Router			/v1/security/2fa [delete].
func (h *SecurityHandler) HandleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.TwoFactorDisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.TwoFactorService.Disable(ctx, userID, req.Password, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRegenerateBackupCodes handles POST /v1/security/2fa/backup-codes
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces all remaining backup codes after one successful code verification.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.TwoFactorCodeRequest	true	"TOTP or backup code"
//	@Success		200		{object}	vaultsdk.BackupCodesResponse	"Fresh backup codes"
//	@Failure		400		{object}	vaultsdk.APIError				"Invalid code"
//	@Failure		429		{object}	vaultsdk.APIError				"Too many attempts"
//	@Router			/v1/security/2fa/backup-codes [post].
func (h *SecurityHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.TwoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	codes, err := h.TwoFactorService.RegenerateBackupCodes(ctx, userID, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.BackupCodesResponse{Codes: codes})
}

// HandleChangePassword handles POST /v1/security/password
//
//	@Summary		Change the account password
//	@Description	Swaps the password and revokes every live refresh token.
//	@Tags			Security
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.PasswordChangeRequest	true	"Old and new password"
//	@Success		204		"Password changed, sessions revoked"
//	@Failure		400		{object}	vaultsdk.APIError	"Weak new password"
//	@Failure		401		{object}	vaultsdk.APIError	"Wrong old password"
//	@Router			/v1/security/password [post].
func (h *SecurityHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.PasswordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.IdentityService.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	log.Info("password changed", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
