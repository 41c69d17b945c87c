package vaultsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// StepUpHeader carries the step-up token on endpoints that demand a recent
// PIN or 2FA verification.
const StepUpHeader = "X-Step-Up-Token"

// IdempotencyKeyHeader makes a money-moving request safely retryable.
const IdempotencyKeyHeader = "Idempotency-Key"

// CreateGoal adds a savings goal.
func (s *Session) CreateGoal(ctx context.Context, name, target string) (*GoalInfo, error) {
	var out GoalInfo
	err := s.postJSON(ctx, http.MethodPost, "/v1/goals", CreateGoalRequest{
		Name:   name,
		Target: target,
	}, &out, http.StatusCreated, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListGoals returns the caller's goals.
func (s *Session) ListGoals(ctx context.Context) (*ListGoalsResponse, error) {
	var out ListGoalsResponse
	if err := s.getJSON(ctx, "/v1/goals", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGoal removes an empty goal.
func (s *Session) DeleteGoal(ctx context.Context, goalID string) error {
	return s.postJSON(ctx, http.MethodDelete, "/v1/goals/"+url.PathEscape(goalID),
		nil, nil, http.StatusNoContent, nil)
}

// Deposit moves funds from the free wallet balance into a goal. Pass a
// correlation key to make retries idempotent.
func (s *Session) Deposit(ctx context.Context, goalID, amount, correlationKey string) (*TransactionResponse, error) {
	var out TransactionResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/goals/"+url.PathEscape(goalID)+"/deposit",
		AmountRequest{Amount: amount}, &out, http.StatusOK, idempotencyHeaders(correlationKey))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw moves funds out of a goal. With useCooldown the withdrawal is
// scheduled and lands in the wallet once the cooling period passes.
func (s *Session) Withdraw(ctx context.Context, goalID, amount string, useCooldown bool, correlationKey string) (*TransactionResponse, error) {
	var out TransactionResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/goals/"+url.PathEscape(goalID)+"/withdraw",
		AmountRequest{Amount: amount, UseCooldown: useCooldown}, &out, http.StatusOK,
		idempotencyHeaders(correlationKey))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelWithdrawal returns a scheduled withdrawal to its goal before the
// cooling period expires.
func (s *Session) CancelWithdrawal(ctx context.Context, goalID string) error {
	return s.postJSON(ctx, http.MethodPost, "/v1/goals/"+url.PathEscape(goalID)+"/withdraw/cancel",
		nil, nil, http.StatusNoContent, nil)
}

// Wallet reports the wallet balance and the spendable portion.
func (s *Session) Wallet(ctx context.Context) (*WalletResponse, error) {
	var out WalletResponse
	if err := s.getJSON(ctx, "/v1/wallet", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletDeposit credits the wallet with an external top-up.
func (s *Session) WalletDeposit(ctx context.Context, amount, correlationKey string) (*TransactionResponse, error) {
	var out TransactionResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/wallet/deposit",
		AmountRequest{Amount: amount}, &out, http.StatusOK, idempotencyHeaders(correlationKey))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletWithdraw sends funds to an external address. The stepUpToken comes
// from VerifyPin or VerifyTwoFactor.
func (s *Session) WalletWithdraw(ctx context.Context, amount, address, stepUpToken, correlationKey string) (*TransactionResponse, error) {
	headers := idempotencyHeaders(correlationKey)
	if headers == nil {
		headers = map[string]string{}
	}
	headers[StepUpHeader] = stepUpToken

	var out TransactionResponse
	err := s.postJSON(ctx, http.MethodPost, "/v1/wallet/withdraw",
		WalletWithdrawRequest{Amount: amount, Address: address}, &out, http.StatusOK, headers)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LinkWallet stores a read-only external wallet address.
func (s *Session) LinkWallet(ctx context.Context, address string) error {
	return s.postJSON(ctx, http.MethodPost, "/v1/wallet/link",
		LinkWalletRequest{Address: address}, nil, http.StatusNoContent, nil)
}

// UnlinkWallet removes the linked address.
func (s *Session) UnlinkWallet(ctx context.Context) error {
	return s.postJSON(ctx, http.MethodDelete, "/v1/wallet/link",
		nil, nil, http.StatusNoContent, nil)
}

// ListTransactions returns the ledger newest-first. txType filters by
// "credit" or "debit" when non-empty; limit 0 uses the server default.
func (s *Session) ListTransactions(ctx context.Context, txType string, limit int) (*ListTransactionsResponse, error) {
	query := url.Values{}
	if txType != "" {
		query.Set("type", txType)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/v1/transactions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out ListTransactionsResponse
	if err := s.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportTransactions downloads the ledger as CSV.
func (s *Session) ExportTransactions(ctx context.Context) ([]byte, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/transactions/export", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp, body)
	}
	return body, nil
}

func idempotencyHeaders(correlationKey string) map[string]string {
	if correlationKey == "" {
		return nil
	}
	return map[string]string{IdempotencyKeyHeader: correlationKey}
}
