package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/http/respond"
	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/middleware"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

// writeError maps ledger errors onto HTTP statuses. Unknown errors are logged
// and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, ledger.ErrInvalidAgent),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidRequestType),
		errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrInvalidRole):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrAuthenticationMismatch):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, ledger.ErrAgentNotActivated),
		errors.Is(err, ledger.ErrAccountNotActivated),
		errors.Is(err, ledger.ErrAlreadyResolved),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, storage.ErrAlreadyExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, ledger.ErrTransient):
		status, message = http.StatusServiceUnavailable, "storage temporarily unavailable, retry the request"
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	respond.Error(w, status, message)
}

// callerEmail returns the verified caller email or writes 401.
func callerEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok || identity.Email == "" {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return identity.Email, true
}

func requestIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request id")
		return uuid.Nil, false
	}
	return id, true
}

func accountIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return value
}
