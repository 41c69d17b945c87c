package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/usdtvault/vault/internal/vault/audit"
	httpapi "github.com/usdtvault/vault/internal/vault/http"
	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/internal/vault/store/drivers/sqlite"
	"github.com/usdtvault/vault/pkg/cryptox"
	"github.com/usdtvault/vault/pkg/jwtx"
	"github.com/usdtvault/vault/pkg/slogx"
	"github.com/usdtvault/vault/pkg/throttle"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the vault service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	signer *jwtx.EdDSASigner

	// Brute-force throttles, swept by housekeeping
	loginThrottle     *throttle.Limiter
	twoFactorThrottle *throttle.Limiter

	// Services
	tokenService        *service.TokenService
	identityService     *service.IdentityService
	twoFactorService    *service.TwoFactorService
	pinService          *service.PinService
	csrfService         *service.CsrfService
	ledgerService       *service.LedgerService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "vault-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Secret material paths before anything hashes or encrypts
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if app.cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(app.cfg.MasterKeyPath)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("vault service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down vault service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("vault service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSigner loads the Ed25519 signing key from disk, or generates an
// ephemeral one so tokens stop verifying after a restart.
func (app *Application) initSigner() error {
	var pemKey []byte
	if app.cfg.SigningKeyFile != "" {
		data, err := os.ReadFile(app.cfg.SigningKeyFile)
		if err != nil {
			return fmt.Errorf("failed to read signing key: %w", err)
		}
		pemKey = data
	} else {
		generated, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return fmt.Errorf("failed to generate signing key: %w", err)
		}
		pemKey = generated
		app.logger.Warn("no signing key configured, generated an ephemeral key")
	}

	signer, err := jwtx.NewSignerEdDSA(app.cfg.KeyID, pemKey)
	if err != nil {
		return fmt.Errorf("failed to initialize signer: %w", err)
	}
	app.signer = signer
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	recorder := audit.NewSlogRecorder()
	verifier := jwtx.VerifierForSigner(app.signer, app.cfg.Issuer)

	app.loginThrottle = throttle.New(throttle.DefaultPolicy)
	app.twoFactorThrottle = throttle.New(throttle.DefaultPolicy)

	app.tokenService = &service.TokenService{
		Signer:     app.signer,
		Verifier:   verifier,
		Store:      app.db,
		Audit:      recorder,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
		StepUpTTL:  app.cfg.StepUpTTL,
	}

	app.twoFactorService = &service.TwoFactorService{
		Store:    app.db,
		Audit:    recorder,
		Throttle: app.twoFactorThrottle,
		Issuer:   app.cfg.Issuer,
	}

	app.identityService = &service.IdentityService{
		Store:        app.db,
		Tokens:       app.tokenService,
		TwoFactor:    app.twoFactorService,
		Audit:        recorder,
		Throttle:     app.loginThrottle,
		ChallengeTTL: app.cfg.ChallengeTTL,
	}
	// 2FA enrolment and disable re-verify the account password
	app.twoFactorService.Identity = app.identityService

	app.pinService = &service.PinService{
		Store:    app.db,
		Identity: app.identityService,
		Audit:    recorder,
	}

	app.csrfService = &service.CsrfService{
		Store: app.db,
		TTL:   app.cfg.CsrfTTL,
	}

	app.ledgerService = &service.LedgerService{
		Store: app.db,
		Audit: recorder,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.ledgerService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Limiters = []*throttle.Limiter{
		app.loginThrottle,
		app.twoFactorThrottle,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		app.tokenService.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.IdentityService = app.identityService
	router.TwoFactorService = app.twoFactorService
	router.PinService = app.pinService
	router.CsrfService = app.csrfService
	router.LedgerService = app.ledgerService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
