package http

import (
	"net/http"
	"time"

	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

// CsrfHandler issues the double-submit token.
type CsrfHandler struct {
	CsrfService *service.CsrfService
}

// HandleIssue handles GET /v1/csrf
//
//	@Summary		Fetch a CSRF token
//	@Description	Issues an anti-forgery token, set both as the vault_csrf cookie and in the body.
//	@Description	Mutating requests must echo the cookie value in the X-CSRF-Token header.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	vaultsdk.CsrfResponse	"CSRF token"
//	@Failure		500	{object}	vaultsdk.APIError		"Internal server error"
//	@Router			/v1/csrf [get].
func (h *CsrfHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// Issued anonymously; login binds it to the subject.
	token, err := h.CsrfService.Issue(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		log.Error("failed to issue csrf token", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httpx.CSRFCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.CsrfService.TTL),
		HttpOnly: false, // the front end reads it to build the header echo
		SameSite: http.SameSiteStrictMode,
	})

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.CsrfResponse{CsrfToken: token})
}
