package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/usdtvault/vault/pkg/cryptox"
	"github.com/usdtvault/vault/pkg/jwtx"
	"github.com/usdtvault/vault/pkg/slogx"
)

// RevocationChecker reports whether a token fingerprint has been revoked.
// Checked before the claims are trusted, so a logged-out token is dead even
// inside its validity window.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)
}

// AuthnMiddleware authenticates a bearer token of the given purpose.
// Access-token endpoints pass jwtx.PurposeAccess; step-up-only endpoints pass
// jwtx.PurposeStepUp and will reject a plain access token with 403.
func AuthnMiddleware(v jwtx.Verifier, revoked RevocationChecker, purpose string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			if revoked != nil {
				isRevoked, err := revoked.IsRevoked(ctx, cryptox.FingerprintToken(raw))
				if err != nil {
					log.Error("revocation lookup failed", "err", err)
					WriteError(w, http.StatusInternalServerError, "server_error", "revocation check failed")
					return
				}
				if isRevoked {
					writeBearerError(w, "token revoked")
					return
				}
			}

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "token verification failed")
				log.Warn("jwt verify failed", "err", err)
				return
			}

			if err := claims.ValidatePurpose(purpose); err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", error_description="wrong token purpose"`)
				WriteError(w, http.StatusForbidden, "wrong_purpose", "token not valid for this endpoint")
				return
			}

			// Inject into context for downstream handlers.
			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole ensures the authenticated caller carries one of the roles.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		want[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := want[roleFromCtx(r.Context())]; !ok {
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyRole, c.Role)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
