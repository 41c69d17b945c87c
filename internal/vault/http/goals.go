package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

// idempotencyKeyHeader carries the correlation key for money-moving requests.
// It wins over a key in the request body.
const idempotencyKeyHeader = "Idempotency-Key"

// GoalHandler manages savings goals and the escrow movements against them.
type GoalHandler struct {
	Ledger *service.LedgerService
}

// HandleCreate handles POST /v1/goals
//
//	@Summary		Create a savings goal
//	@Description	Adds a goal with a zero balance and the given target.
//	@Tags			Goals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.CreateGoalRequest	true	"Name and target amount"
//	@Success		201		{object}	vaultsdk.GoalInfo			"The new goal"
//	@Failure		400		{object}	vaultsdk.APIError			"Malformed target amount"
//	@Router			/v1/goals [post].
func (h *GoalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req vaultsdk.CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	goal, err := h.Ledger.CreateGoal(ctx, userID, strings.TrimSpace(req.Name), req.Target)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, goalInfo(goal))
}

// HandleList handles GET /v1/goals
//
//	@Summary		List savings goals
//	@Tags			Goals
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	vaultsdk.ListGoalsResponse	"The caller's goals"
//	@Router			/v1/goals [get].
func (h *GoalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	goals, err := h.Ledger.ListGoals(ctx, userID)
	if err != nil {
		log.Error("failed to list goals", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	out := vaultsdk.ListGoalsResponse{Goals: make([]vaultsdk.GoalInfo, 0, len(goals))}
	for _, g := range goals {
		out.Goals = append(out.Goals, goalInfo(g))
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDelete handles DELETE /v1/goals/{id}
//
//	@Summary		Delete a savings goal
//	@Description	Removes an empty goal. Goals still holding funds must be emptied first.
//	@Tags			Goals
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Goal ID"
//	@Success		204	"Goal deleted"
//	@Failure		400	{object}	vaultsdk.APIError	"Goal still holds funds"
//	@Failure		404	{object}	vaultsdk.APIError	"Goal not found"
//	@Router			/v1/goals/{id} [delete].
func (h *GoalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.Ledger.DeleteGoal(ctx, userID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeposit handles POST /v1/goals/{id}/deposit
//
//	@Summary		Deposit into a goal
//	@Description	Moves funds from the available wallet balance into the goal's escrow.
//	@Description	Retries with the same Idempotency-Key replay the original result.
//	@Tags			Goals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string					true	"Goal ID"
//	@Param			Idempotency-Key	header		string					false	"Correlation key for safe retries"
//	@Param			request			body		vaultsdk.AmountRequest	true	"Amount"
//	@Success		200				{object}	vaultsdk.TransactionResponse
//	@Failure		400				{object}	vaultsdk.APIError	"Insufficient balance or target exceeded"
//	@Failure		404				{object}	vaultsdk.APIError	"Goal not found"
//	@Router			/v1/goals/{id}/deposit [post].
func (h *GoalHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.Ledger.Deposit(ctx, userID, r.PathValue("id"), req.Amount, correlationKey(r, req.CorrelationKey))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, transactionResponse(result))
}

// HandleWithdraw handles POST /v1/goals/{id}/withdraw
//
//	@Summary		Withdraw from a goal
//	@Description	Moves funds from the goal's escrow back to the available balance.
//	@Description	With use_cooldown the amount is parked for 24 hours first and can be cancelled.
//	@Tags			Goals
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string					true	"Goal ID"
//	@Param			Idempotency-Key	header		string					false	"Correlation key for safe retries"
//	@Param			request			body		vaultsdk.AmountRequest	true	"Amount and cooldown flag"
//	@Success		200				{object}	vaultsdk.TransactionResponse
//	@Failure		400				{object}	vaultsdk.APIError	"Insufficient goal balance"
//	@Failure		404				{object}	vaultsdk.APIError	"Goal not found"
//	@Failure		409				{object}	vaultsdk.APIError	"A scheduled withdrawal is already cooling down"
//	@Router			/v1/goals/{id}/withdraw [post].
func (h *GoalHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.Ledger.Withdraw(ctx, userID, r.PathValue("id"), req.Amount, req.UseCooldown, correlationKey(r, req.CorrelationKey))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, transactionResponse(result))
}

// HandleCancelWithdrawal handles POST /v1/goals/{id}/withdraw/cancel
//
//	@Summary		Cancel a scheduled withdrawal
//	@Description	Returns a cooling-down amount to the goal before its cooldown expires.
//	@Tags			Goals
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Goal ID"
//	@Success		204	"Withdrawal cancelled"
//	@Failure		400	{object}	vaultsdk.APIError	"No scheduled withdrawal"
//	@Failure		404	{object}	vaultsdk.APIError	"Goal not found"
//	@Router			/v1/goals/{id}/withdraw/cancel [post].
func (h *GoalHandler) HandleCancelWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.Ledger.CancelScheduledWithdrawal(ctx, userID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func correlationKey(r *http.Request, bodyKey string) string {
	if key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader)); key != "" {
		return key
	}
	return bodyKey
}

func goalInfo(g domain.SavingsGoal) vaultsdk.GoalInfo {
	info := vaultsdk.GoalInfo{
		ID:           g.ID,
		Name:         g.Name,
		Current:      g.Current.String(),
		Target:       g.Target.String(),
		Progress:     g.Progress().String(),
		SavingStreak: g.SavingStreak,
		CreatedAt:    g.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !g.PendingWithdrawal.IsZero() {
		info.PendingWithdrawal = g.PendingWithdrawal.String()
	}
	if g.CooldownUntil != nil {
		info.CooldownUntil = g.CooldownUntil.UTC().Format(time.RFC3339)
	}
	return info
}

func transactionInfo(t domain.Transaction) vaultsdk.TransactionInfo {
	return vaultsdk.TransactionInfo{
		ID:             t.ID,
		GoalID:         t.GoalID,
		Type:           string(t.Type),
		Status:         string(t.Status),
		Amount:         t.Amount.String(),
		CorrelationKey: t.CorrelationKey,
		Address:        t.Address,
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func transactionResponse(result service.LedgerResult) vaultsdk.TransactionResponse {
	return vaultsdk.TransactionResponse{
		Transaction: transactionInfo(result.Transaction),
		Replayed:    result.Replayed,
	}
}
