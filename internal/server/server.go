package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hongminglow/cashjet-be/internal/auth"
	"github.com/hongminglow/cashjet-be/internal/config"
	"github.com/hongminglow/cashjet-be/internal/events"
	"github.com/hongminglow/cashjet-be/internal/http/handlers"
	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/middleware"
	"github.com/hongminglow/cashjet-be/internal/ratelimit"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires the ledger components, middleware and routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, publisher events.Publisher, limiter ratelimit.Limiter) *Server {
	accounts := ledger.NewAccountStore(store, cfg.StorageTimeout)
	engine := ledger.NewEngine(store, cfg.StorageTimeout)
	tracker := ledger.NewTracker(store, accounts, engine, publisher, cfg.StorageTimeout)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimw.Recoverer)
	router.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.NewHealthHandler(time.Now(), store).Register(router)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(tokens))
		handlers.NewAccountHandler(accounts).Register(r)
		handlers.NewRequestHandler(tracker, limiter).Register(r)
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
