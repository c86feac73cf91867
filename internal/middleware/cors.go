package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a handler that answers preflight requests and sets
// Access-Control headers for the allowed origins. "*" allows any origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}

	opts := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: !allowAll,
		MaxAge:           300,
	}
	if allowAll {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.Handler(opts)
}
