package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/jwtx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

// stepUpHeader carries the short-lived step-up token minted by a PIN or 2FA
// verification. External withdrawals refuse to run without it.
const stepUpHeader = "X-Step-Up-Token"

// WalletHandler covers the free wallet balance and the linked external
// address.
type WalletHandler struct {
	Store        store.Store
	Ledger       *service.LedgerService
	TokenService *service.TokenService
}

// HandleGet handles GET /v1/wallet
//
//	@Summary		Wallet balances
//	@Description	Reports the full balance, the spendable portion outside goal escrow, and the linked address.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	vaultsdk.WalletResponse
//	@Router			/v1/wallet [get].
func (h *WalletHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		log.Error("failed to load user", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	available, err := h.Ledger.AvailableBalance(ctx, userID)
	if err != nil {
		log.Error("failed to compute available balance", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.WalletResponse{
		Balance:   user.WalletBalance.String(),
		Available: available.String(),
		Address:   user.WalletAddress,
	})
}

// HandleDeposit handles POST /v1/wallet/deposit
//
//	@Summary		Top up the wallet
//	@Description	Credits the free wallet balance. Retries with the same Idempotency-Key replay the original result.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string					false	"Correlation key for safe retries"
//	@Param			request			body		vaultsdk.AmountRequest	true	"Amount"
//	@Success		200				{object}	vaultsdk.TransactionResponse
//	@Failure		400				{object}	vaultsdk.APIError	"Malformed amount"
//	@Router			/v1/wallet/deposit [post].
func (h *WalletHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.Ledger.WalletDeposit(ctx, userID, req.Amount, correlationKey(r, req.CorrelationKey))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, transactionResponse(result))
}

// HandleWithdraw handles POST /v1/wallet/withdraw
//
//	@Summary		Withdraw to an external address
//	@Description	Debits the available balance toward an external chain address. Escrowed goal
//	@Description	funds are untouchable here. Requires a fresh step-up token in X-Step-Up-Token.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			X-Step-Up-Token	header		string							true	"Step-up token from PIN or 2FA verification"
//	@Param			Idempotency-Key	header		string							false	"Correlation key for safe retries"
//	@Param			request			body		vaultsdk.WalletWithdrawRequest	true	"Amount and address"
//	@Success		200				{object}	vaultsdk.TransactionResponse
//	@Failure		400				{object}	vaultsdk.APIError	"Insufficient balance or malformed address"
//	@Failure		401				{object}	vaultsdk.APIError	"Missing, expired, or foreign step-up token"
//	@Router			/v1/wallet/withdraw [post].
func (h *WalletHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.requireStepUp(r, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	var req vaultsdk.WalletWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	result, err := h.Ledger.WalletWithdraw(ctx, userID, req.Amount, req.Address, correlationKey(r, req.CorrelationKey))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, transactionResponse(result))
}

// HandleLink handles POST /v1/wallet/link
//
//	@Summary		Link an external wallet address
//	@Description	Stores a read-only chain address against the account. No key material is held.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	vaultsdk.LinkWalletRequest	true	"Address"
//	@Success		204		"Address linked"
//	@Failure		400		{object}	vaultsdk.APIError	"Malformed address"
//	@Router			/v1/wallet/link [post].
func (h *WalletHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.LinkWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	address := strings.TrimSpace(req.Address)
	if err := domain.ValidateAddress(address); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.Store.Users().UpdateLinkedWallet(ctx, userID, address, nil); err != nil {
		slogx.FromContext(ctx).Error("failed to link wallet", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUnlink handles DELETE /v1/wallet/link
//
//	@Summary		Unlink the external wallet address
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Success		204	"Address removed"
//	@Router			/v1/wallet/link [delete].
func (h *WalletHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.Store.Users().UpdateLinkedWallet(ctx, userID, "", nil); err != nil {
		slogx.FromContext(ctx).Error("failed to unlink wallet", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireStepUp checks the step-up token header: right purpose, unexpired,
// unrevoked, and minted for the same subject as the session.
func (h *WalletHandler) requireStepUp(r *http.Request, userID string) error {
	raw := strings.TrimSpace(r.Header.Get(stepUpHeader))
	if raw == "" {
		return service.ErrStepUpRequired
	}

	claims, err := h.TokenService.Validate(r.Context(), raw, jwtx.PurposeStepUp)
	if err != nil {
		return err
	}
	if claims.Subject != userID {
		return service.ErrTokenInvalid
	}
	return nil
}
