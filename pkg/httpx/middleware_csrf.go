package httpx

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/usdtvault/vault/pkg/slogx"
)

// CSRFCookieName is the cookie carrying the anti-forgery token.
const CSRFCookieName = "vault_csrf"

// CSRFHeaderName is the header the caller must echo the token back in.
const CSRFHeaderName = "X-CSRF-Token"

// CsrfVerifier checks a presented token against the server-side record.
// subjectID is "" for unauthenticated requests.
type CsrfVerifier interface {
	VerifyCsrfToken(ctx context.Context, token, subjectID string) error
}

// CSRFMiddleware enforces the double-submit pattern on mutating requests:
// the cookie and the header must carry the same value, and that value must
// match a live server-side record bound to the authenticated subject if any.
// Safe methods and the exempt paths (login, registration, token refresh and
// friends, which run before a session exists) pass through untouched.
func CSRFMiddleware(verifier CsrfVerifier, exemptPaths ...string) Middleware {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := slogx.FromContext(ctx)

			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || cookie.Value == "" {
				WriteError(w, http.StatusForbidden, "csrf_missing", "anti-forgery cookie not present")
				return
			}

			echo := r.Header.Get(CSRFHeaderName)
			if echo == "" {
				echo = r.PostFormValue("csrf_token")
			}
			if echo == "" {
				WriteError(w, http.StatusForbidden, "csrf_missing", "anti-forgery token not echoed")
				return
			}

			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(echo)) != 1 {
				log.Warn("csrf mismatch", "path", r.URL.Path)
				WriteError(w, http.StatusForbidden, "csrf_mismatch", "anti-forgery token mismatch")
				return
			}

			if err := verifier.VerifyCsrfToken(ctx, cookie.Value, UserIDFromCtx(ctx)); err != nil {
				log.Warn("csrf rejected", "path", r.URL.Path, "err", err)
				WriteError(w, http.StatusForbidden, "csrf_invalid", "anti-forgery token not recognised")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
