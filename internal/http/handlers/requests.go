package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/cashjet-be/internal/http/respond"
	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/middleware"
	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/models/dto"
	"github.com/hongminglow/cashjet-be/internal/ratelimit"
)

const createRequestScope = "create_request"

// RequestHandler exposes the transfer request workflow.
type RequestHandler struct {
	tracker *ledger.Tracker
	limiter ratelimit.Limiter
}

// NewRequestHandler constructs the handler. A nil limiter disables rate limiting.
func NewRequestHandler(tracker *ledger.Tracker, limiter ratelimit.Limiter) *RequestHandler {
	if limiter == nil {
		limiter = ratelimit.Disabled{}
	}
	return &RequestHandler{tracker: tracker, limiter: limiter}
}

// Register attaches request routes. The router must already authenticate callers.
func (h *RequestHandler) Register(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.With(middleware.RateLimit(h.limiter, createRequestScope)).Post("/", h.handleCreate)
		r.Get("/", h.handleHistory)
		r.Get("/pending", h.handleListPending)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/approve", h.handleApprove)
		r.Post("/{id}/reject", h.handleReject)
	})
}

func (h *RequestHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	var req dto.CreateRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.AgentEmail) == "" {
		respond.Error(w, http.StatusBadRequest, "agentEmail is required")
		return
	}

	request, err := h.tracker.Create(r.Context(), ledger.CreateInput{
		UserID:      req.UserID,
		AgentEmail:  strings.TrimSpace(req.AgentEmail),
		Amount:      req.Amount,
		RequestType: models.RequestType(strings.TrimSpace(req.RequestType)),
		CallerEmail: email,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "request created", dto.CreateResponse{ID: request.ID.String()})
}

func (h *RequestHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	requests, err := h.tracker.History(r.Context(), email, queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "requests fetched", requests)
}

func (h *RequestHandler) handleListPending(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	requestType := models.RequestType(strings.TrimSpace(r.URL.Query().Get("requestType")))
	requests, err := h.tracker.ListPending(r.Context(), email, requestType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "pending requests fetched", requests)
}

func (h *RequestHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}
	request, err := h.tracker.Get(r.Context(), id, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "request fetched", request)
}

// handleApprove ignores any body; parties and amount come from the stored request.
func (h *RequestHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}
	result, err := h.tracker.Approve(r.Context(), id, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "request approved", dto.ResolveResponse{
		Request:      result.Request,
		UserBalance:  &result.User.Balance,
		AgentBalance: &result.Agent.Balance,
	})
}

func (h *RequestHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	email, ok := callerEmail(w, r)
	if !ok {
		return
	}
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}
	request, err := h.tracker.Reject(r.Context(), id, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "request rejected", dto.ResolveResponse{Request: request})
}
