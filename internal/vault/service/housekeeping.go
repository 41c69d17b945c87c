package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/throttle"
)

// HousekeepingService periodically reclaims expired rows (refresh tokens,
// revocations, CSRF tokens, login challenges), trims idle throttle entries,
// and releases scheduled withdrawals whose cooling period has passed.
type HousekeepingService struct {
	Store    store.Store
	Ledger   *LedgerService
	Logger   *slog.Logger
	Interval time.Duration

	// Limiters to sweep for idle keys; optional.
	Limiters []*throttle.Limiter

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, ledger *LedgerService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Ledger:   ledger,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut it
// down gracefully.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker, blocking until any in-progress
// sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual sweeps. Each one is independent so a failure
// in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := slogx.WithContext(context.Background(), s.Logger)
	s.Logger.Info("starting housekeeping cleanup")

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	if err := s.Store.RevokedTokens().DeleteExpiredRevocations(ctx); err != nil {
		s.Logger.Error("failed to delete expired revocations", "error", err)
	}

	if err := s.Store.CsrfTokens().DeleteExpiredCsrfTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired csrf tokens", "error", err)
	}

	if err := s.Store.TwoFactorSessions().DeleteExpiredSessions(ctx); err != nil {
		s.Logger.Error("failed to delete expired login challenges", "error", err)
	}

	for _, l := range s.Limiters {
		l.Sweep()
	}

	released, err := s.Ledger.ReleaseDueWithdrawals(ctx)
	if err != nil {
		s.Logger.Error("failed to release scheduled withdrawals", "error", err)
	} else if released > 0 {
		s.Logger.Info("released scheduled withdrawals", "count", released)
	}

	s.Logger.Info("housekeeping cleanup completed")
}
