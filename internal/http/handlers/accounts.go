package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/cashjet-be/internal/http/respond"
	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/models/dto"
)

// AccountHandler serves the caller's own account and the admin account routes.
type AccountHandler struct {
	accounts *ledger.AccountStore
}

func NewAccountHandler(accounts *ledger.AccountStore) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register attaches account routes. The router must already authenticate callers.
func (h *AccountHandler) Register(r chi.Router) {
	r.Get("/accounts/me", h.handleMe)

	r.Route("/admin/accounts", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/", h.handleList)
		r.Post("/{id}/activate", h.handleActivate)
		r.Patch("/{id}/status", h.handleSetStatus)
	})
}

func (h *AccountHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.FindByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "account fetched", account)
}

// requireAdmin lets the request through only when the caller's stored role is admin.
func (h *AccountHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := callerEmail(w, r)
		if !ok {
			return
		}
		account, err := h.accounts.FindByEmail(r.Context(), email)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			writeError(w, r, err)
			return
		}
		if err != nil || account.Role != models.RoleAdmin {
			respond.Error(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AccountHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.AccountFilter{
		Search: strings.TrimSpace(query.Get("search")),
		Role:   models.Role(strings.TrimSpace(query.Get("role"))),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	accounts, err := h.accounts.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "accounts fetched", accounts)
}

func (h *AccountHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	var req dto.ActivateRequest
	if r.ContentLength != 0 {
		if !respond.Decode(w, r, &req) {
			return
		}
	}
	account, err := h.accounts.Activate(r.Context(), id, req.Grant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "account activated", account)
}

func (h *AccountHandler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}
	var req dto.StatusRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	account, err := h.accounts.SetStatus(r.Context(), id, models.AccountStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "account status updated", account)
}
