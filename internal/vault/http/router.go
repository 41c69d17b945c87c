package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/usdtvault/vault/internal/vault/service"
	"github.com/usdtvault/vault/internal/vault/store"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/jwtx"
	"github.com/usdtvault/vault/pkg/slogx"

	_ "github.com/usdtvault/vault/api/vault" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       *jwtx.EdDSASigner
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	TokenService     *service.TokenService
	IdentityService  *service.IdentityService
	TwoFactorService *service.TwoFactorService
	PinService       *service.PinService
	CsrfService      *service.CsrfService
	LedgerService    *service.LedgerService
}

func NewRouter(
	signer *jwtx.EdDSASigner,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSecurity()
	r.registerGoals()
	r.registerWallet()
	r.registerTransactions()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Vault Savings Service API
//	@version		0.1.0
//	@description	Escrow-backed savings goals on top of a USDT wallet balance: multi-token
//	@description	session management, PIN and TOTP step-up for money movement, double-submit
//	@description	CSRF protection, and an idempotent exact-decimal ledger.
//	@description
//	@description				All tokens are signed with EdDSA (Ed25519).
//
//	@contact.name				USDT Vault Team
//	@contact.url				https://github.com/usdtvault/vault
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn verifies an access token and rejects revoked ones.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.verifier, r.store.RevokedTokens(), jwtx.PurposeAccess)
}

// csrf enforces the double-submit check on mutating requests. Applied after
// authn so the token's subject binding is checked too.
func (r *Router) csrf() httpx.Middleware {
	return httpx.CSRFMiddleware(r.CsrfService)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		IdentityService: r.IdentityService,
		TokenService:    r.TokenService,
		CsrfService:     r.CsrfService,
	}

	// Credential-bearing endpoints get the strict per-IP budget to slow
	// brute force before the per-username throttle even engages.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/2fa",
		httpx.Chain(http.HandlerFunc(h.HandleTwoFactorLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Refresh runs before a request is authenticated, so it is limited by IP.
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authn(),
			r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	csrfHandler := &CsrfHandler{CsrfService: r.CsrfService}
	r.Mux.Handle("GET /v1/csrf",
		httpx.Chain(http.HandlerFunc(csrfHandler.HandleIssue),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSecurity() {
	pin := &PinHandler{
		PinService:   r.PinService,
		TokenService: r.TokenService,
	}

	// PIN verification is a guessing target; strict per-user budget on top of
	// the service-level lockout.
	r.Mux.Handle("POST /v1/security/pin/verify",
		httpx.Chain(http.HandlerFunc(pin.HandleVerify),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/security/pin",
		httpx.Chain(http.HandlerFunc(pin.HandleSetup),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PUT /v1/security/pin",
		httpx.Chain(http.HandlerFunc(pin.HandleUpdate),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/security/pin",
		httpx.Chain(http.HandlerFunc(pin.HandleRemove),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/security/pin/reset",
		httpx.Chain(http.HandlerFunc(pin.HandleReset),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	sec := &SecurityHandler{
		Store:            r.store,
		IdentityService:  r.IdentityService,
		TwoFactorService: r.TwoFactorService,
		TokenService:     r.TokenService,
	}

	r.Mux.Handle("POST /v1/security/2fa/enroll",
		httpx.Chain(http.HandlerFunc(sec.HandleTwoFactorEnroll),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	// Code submission endpoints get the strict budget to slow TOTP guessing.
	r.Mux.Handle("POST /v1/security/2fa/confirm",
		httpx.Chain(http.HandlerFunc(sec.HandleTwoFactorConfirm),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/security/2fa/verify",
		httpx.Chain(http.HandlerFunc(sec.HandleTwoFactorVerify),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/security/2fa",
		httpx.Chain(http.HandlerFunc(sec.HandleTwoFactorDisable),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/security/2fa/backup-codes",
		httpx.Chain(http.HandlerFunc(sec.HandleRegenerateBackupCodes),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/security/password",
		httpx.Chain(http.HandlerFunc(sec.HandleChangePassword),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerGoals() {
	h := &GoalHandler{Ledger: r.LedgerService}

	r.Mux.Handle("GET /v1/goals",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/goals",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/goals/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/goals/{id}/deposit",
		httpx.Chain(http.HandlerFunc(h.HandleDeposit),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/goals/{id}/withdraw",
		httpx.Chain(http.HandlerFunc(h.HandleWithdraw),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/goals/{id}/withdraw/cancel",
		httpx.Chain(http.HandlerFunc(h.HandleCancelWithdrawal),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerWallet() {
	h := &WalletHandler{
		Store:        r.store,
		Ledger:       r.LedgerService,
		TokenService: r.TokenService,
	}

	r.Mux.Handle("GET /v1/wallet",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.authn(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/wallet/deposit",
		httpx.Chain(http.HandlerFunc(h.HandleDeposit),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	// External withdrawal also demands a step-up token; the handler checks it.
	r.Mux.Handle("POST /v1/wallet/withdraw",
		httpx.Chain(http.HandlerFunc(h.HandleWithdraw),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/wallet/link",
		httpx.Chain(http.HandlerFunc(h.HandleLink),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/wallet/link",
		httpx.Chain(http.HandlerFunc(h.HandleUnlink),
			r.authn(), r.csrf(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerTransactions() {
	h := &TransactionHandler{Ledger: r.LedgerService}

	r.Mux.Handle("GET /v1/transactions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.authn(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	// Exports dump the whole ledger; keep them on the strict budget.
	r.Mux.Handle("GET /v1/transactions/export",
		httpx.Chain(http.HandlerFunc(h.HandleExport),
			r.authn(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
