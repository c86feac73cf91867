package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cashjet-be/internal/auth"
	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/ratelimit"
)

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(identity.Email))
}

func TestAuthenticate(t *testing.T) {
	tm := auth.NewTokenManager("secret", "cashjet-auth", time.Hour)
	token, err := tm.Generate(models.Account{ID: 7, Email: "u@example.com"})
	require.NoError(t, err)

	handler := Authenticate(tm)(http.HandlerFunc(echoIdentity))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "u@example.com"},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

type stubLimiter struct {
	decision ratelimit.Decision
	err      error
}

func (s stubLimiter) Allow(context.Context, string, string) (ratelimit.Decision, error) {
	return s.decision, s.err
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		limiter    ratelimit.Limiter
		wantStatus int
		wantRetry  string
	}{
		{name: "allowed", limiter: stubLimiter{decision: ratelimit.Decision{Allowed: true}}, wantStatus: http.StatusOK},
		{name: "blocked", limiter: stubLimiter{decision: ratelimit.Decision{RetryAfter: 42 * time.Second}}, wantStatus: http.StatusTooManyRequests, wantRetry: "42"},
		{name: "limiter down", limiter: stubLimiter{err: errors.New("redis down")}, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RateLimit(tt.limiter, "create_request")(http.HandlerFunc(echoIdentity))
			req := httptest.NewRequest(http.MethodPost, "/requests", nil)
			req = req.WithContext(WithIdentity(req.Context(), auth.Identity{Email: "u@example.com"}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantRetry, rec.Header().Get("Retry-After"))
		})
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/requests", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
