package middleware

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/http/respond"
	"github.com/hongminglow/cashjet-be/internal/ratelimit"
)

// RateLimit limits requests per authenticated caller within scope. It must run
// after Authenticate. Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := limiter.Allow(r.Context(), scope, identity.Email)
			if err != nil {
				zap.L().Warn("rate limiter unavailable; allowing request", zap.String("scope", scope), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
				respond.Error(w, http.StatusTooManyRequests, "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
