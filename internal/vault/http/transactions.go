package http

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/usdtvault/vault/internal/vault/domain"
	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/vaultsdk"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 200
)

// TransactionHandler serves the ledger history.
type TransactionHandler struct {
	Ledger *service.LedgerService
}

// HandleList handles GET /v1/transactions
//
//	@Summary		Transaction history
//	@Description	Returns the caller's ledger newest-first. Filter with type=credit|debit.
//	@Tags			Transactions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			type	query		string	false	"Filter by type (credit or debit)"
//	@Param			limit	query		int		false	"Maximum rows, default 50, cap 200"
//	@Success		200		{object}	vaultsdk.ListTransactionsResponse
//	@Failure		400		{object}	vaultsdk.APIError	"Unknown type filter"
//	@Router			/v1/transactions [get].
func (h *TransactionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	typeFilter := r.URL.Query().Get("type")
	switch typeFilter {
	case "", string(domain.TransactionCredit), string(domain.TransactionDebit):
	default:
		vaultsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	limit := defaultTransactionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			vaultsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		limit = min(parsed, maxTransactionLimit)
	}

	txns, err := h.Ledger.ListTransactions(ctx, userID, limit)
	if err != nil {
		log.Error("failed to list transactions", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	out := vaultsdk.ListTransactionsResponse{Transactions: make([]vaultsdk.TransactionInfo, 0, len(txns))}
	for _, t := range txns {
		if typeFilter != "" && string(t.Type) != typeFilter {
			continue
		}
		out.Transactions = append(out.Transactions, transactionInfo(t))
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleExport handles GET /v1/transactions/export
//
//	@Summary		Export the ledger as CSV
//	@Description	Streams the full transaction history as a CSV attachment.
//	@Tags			Transactions
//	@Security		BearerAuth
//	@Produce		text/csv
//	@Success		200	{string}	string	"CSV body"
//	@Router			/v1/transactions/export [get].
func (h *TransactionHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		vaultsdk.ErrInvalidToken.WriteError(w)
		return
	}

	txns, err := h.Ledger.ListTransactions(ctx, userID, maxTransactionLimit)
	if err != nil {
		log.Error("failed to export transactions", "err", err)
		vaultsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "goal_id", "type", "status", "amount", "correlation_key", "address", "created_at"})
	for _, t := range txns {
		info := transactionInfo(t)
		if err := cw.Write([]string{
			info.ID, info.GoalID, info.Type, info.Status,
			info.Amount, info.CorrelationKey, info.Address, info.CreatedAt,
		}); err != nil {
			log.Error("failed to write csv row", "err", err)
			return
		}
	}
	cw.Flush()
}
