package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/usdtvault/vault/pkg/cryptox"
	"github.com/usdtvault/vault/pkg/httpx"
	"github.com/usdtvault/vault/pkg/jwtx"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestChainOrdering(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestWriteErrorPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteError(rec, http.StatusForbidden, "csrf_mismatch", "anti-forgery token mismatch")

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body httpx.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "csrf_mismatch", body.Error)
}

type staticRevocations struct {
	revoked map[string]bool
}

func (s *staticRevocations) IsRevoked(_ context.Context, fp string) (bool, error) {
	return s.revoked[fp], nil
}

func newSignerAndVerifier(t *testing.T) (*jwtx.EdDSASigner, *jwtx.EdDSAVerifier) {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)
	return signer, jwtx.VerifierForSigner(signer, "vault-test")
}

func TestAuthnMiddleware(t *testing.T) {
	signer, verifier := newSignerAndVerifier(t)
	revocations := &staticRevocations{revoked: map[string]bool{}}

	var gotUserID string
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = httpx.UserIDFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	}), httpx.AuthnMiddleware(verifier, revocations, jwtx.PurposeAccess))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("valid access token", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewClaims("user-9", jwtx.PurposeAccess, "user", "vault-test", time.Minute, time.Now()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "user-9", gotUserID)
	})

	t.Run("wrong purpose rejected", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewClaims("user-9", jwtx.PurposeStepUp, "", "vault-test", time.Minute, time.Now()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewClaims("user-9", jwtx.PurposeAccess, "user", "vault-test", time.Minute, time.Now()))
		require.NoError(t, err)
		revocations.revoked[cryptox.FingerprintToken(token)] = true

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

type staticCsrfVerifier struct {
	valid map[string]string // token -> bound subject
}

func (s *staticCsrfVerifier) VerifyCsrfToken(_ context.Context, token, subjectID string) error {
	bound, ok := s.valid[token]
	if !ok || (bound != "" && bound != subjectID) {
		return context.DeadlineExceeded // any error will do here
	}
	return nil
}

func TestCSRFMiddleware(t *testing.T) {
	verifier := &staticCsrfVerifier{valid: map[string]string{"tok-123": ""}}
	h := httpx.Chain(okHandler(), httpx.CSRFMiddleware(verifier, "/v1/auth/login"))

	t.Run("safe method bypasses", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/goals", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("exempt path bypasses", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing cookie rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/goals", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("cookie header mismatch rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/goals", nil)
		req.AddCookie(&http.Cookie{Name: httpx.CSRFCookieName, Value: "tok-123"})
		req.Header.Set(httpx.CSRFHeaderName, "tok-456")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("matching pair accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/goals", nil)
		req.AddCookie(&http.Cookie{Name: httpx.CSRFCookieName, Value: "tok-123"})
		req.Header.Set(httpx.CSRFHeaderName, "tok-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown token rejected server-side", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/goals", nil)
		req.AddCookie(&http.Cookie{Name: httpx.CSRFCookieName, Value: "tok-999"})
		req.Header.Set(httpx.CSRFHeaderName, "tok-999")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	config := httpx.RateLimitConfig{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		Burst:             2,
	}
	h := httpx.Chain(okHandler(), httpx.RateLimitByIP(config))

	newReq := func(addr string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return req
	}

	t.Run("blocks past burst and sets retry-after", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, newReq("10.0.0.1:1234"))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newReq("10.0.0.1:1234"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))

		var body httpx.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "rate_limit_exceeded", body.Error)
		require.Positive(t, body.RetryAfter)
	})

	t.Run("keys are independent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, newReq("10.0.0.2:1234"))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TESTX_REQUESTS", "7")
	t.Setenv("RATELIMIT_TESTX_WINDOW_SEC", "30")

	cfg := httpx.ParseRateLimitFromEnv("TESTX", httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             1,
	})

	require.Equal(t, 7, cfg.RequestsPerWindow)
	require.Equal(t, 30*time.Second, cfg.Window)
	require.Equal(t, 1, cfg.Burst)
}
