package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/events"
	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	publishTimeout      = 5 * time.Second
)

// CreateInput carries a new transfer request. UserID is optional; when set it
// must name the caller's own account. CallerEmail comes from the verified
// identity, never from the request body.
type CreateInput struct {
	UserID      int64
	AgentEmail  string
	Amount      int64
	RequestType models.RequestType
	CallerEmail string
}

// Tracker owns the pending -> approved/rejected lifecycle of transfer requests.
type Tracker struct {
	store     storage.Store
	accounts  *AccountStore
	engine    *Engine
	publisher events.Publisher
	timeout   time.Duration
}

// NewTracker builds a Tracker. A nil publisher disables events.
func NewTracker(store storage.Store, accounts *AccountStore, engine *Engine, publisher events.Publisher, timeout time.Duration) *Tracker {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Tracker{
		store:     store,
		accounts:  accounts,
		engine:    engine,
		publisher: publisher,
		timeout:   timeout,
	}
}

// Create validates both parties and stores a new pending request.
func (t *Tracker) Create(ctx context.Context, in CreateInput) (models.TransferRequest, error) {
	if in.Amount <= 0 {
		return models.TransferRequest{}, ErrInvalidAmount
	}
	if !in.RequestType.Valid() {
		return models.TransferRequest{}, ErrInvalidRequestType
	}

	agent, err := t.accounts.FindByEmail(ctx, in.AgentEmail)
	if errors.Is(err, storage.ErrNotFound) {
		return models.TransferRequest{}, ErrInvalidAgent
	}
	if err != nil {
		return models.TransferRequest{}, err
	}
	if agent.Role != models.RoleAgent {
		return models.TransferRequest{}, ErrInvalidAgent
	}
	if !agent.Active() {
		return models.TransferRequest{}, ErrAgentNotActivated
	}

	user, err := t.caller(ctx, in.CallerEmail)
	if err != nil {
		return models.TransferRequest{}, err
	}
	if user.Role != models.RoleUser || (in.UserID != 0 && in.UserID != user.ID) {
		zap.L().Warn("request creation refused: caller is not the requesting user",
			zap.Int64("caller_account_id", user.ID), zap.Int64("body_user_id", in.UserID))
		return models.TransferRequest{}, ErrAuthenticationMismatch
	}
	if !user.Active() {
		return models.TransferRequest{}, ErrAccountNotActivated
	}

	request := models.NewTransferRequest(user.ID, agent.ID, in.RequestType, in.Amount)
	storeCtx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.store.Requests().Create(storeCtx, request); err != nil {
		return models.TransferRequest{}, fmt.Errorf("create request: %w", err)
	}

	zap.L().Info("transfer request created",
		zap.String("request_id", request.ID.String()),
		zap.String("request_type", string(request.RequestType)),
		zap.Int64("amount", request.Amount),
		zap.Int64("user_account_id", user.ID),
		zap.Int64("agent_account_id", agent.ID))
	t.publish(ctx, events.TypeRequestCreated, request)
	return request, nil
}

// ListPending returns the agent's pending requests of requestType, newest first.
func (t *Tracker) ListPending(ctx context.Context, agentEmail string, requestType models.RequestType) ([]models.TransferRequest, error) {
	if !requestType.Valid() {
		return nil, ErrInvalidRequestType
	}
	agent, err := t.accounts.FindByEmail(ctx, agentEmail)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidAgent
	}
	if err != nil {
		return nil, err
	}
	if agent.Role != models.RoleAgent {
		return nil, ErrInvalidAgent
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	requests, err := t.store.Requests().ListPending(ctx, agent.ID, requestType)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []models.TransferRequest{}
	}
	return requests, nil
}

// Get returns a request to one of its parties or to an admin.
func (t *Tracker) Get(ctx context.Context, requestID uuid.UUID, callerEmail string) (models.TransferRequest, error) {
	caller, err := t.caller(ctx, callerEmail)
	if err != nil {
		return models.TransferRequest{}, err
	}

	storeCtx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	request, err := t.store.Requests().GetByID(storeCtx, requestID)
	if err != nil {
		return models.TransferRequest{}, err
	}
	if caller.Role != models.RoleAdmin && !request.Involves(caller.ID) {
		return models.TransferRequest{}, ErrAuthenticationMismatch
	}
	return request, nil
}

// History returns requests where the caller is either party, newest first.
func (t *Tracker) History(ctx context.Context, callerEmail string, limit int) ([]models.TransferRequest, error) {
	caller, err := t.caller(ctx, callerEmail)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	requests, err := t.store.Requests().ListForAccount(ctx, caller.ID, limit)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []models.TransferRequest{}
	}
	return requests, nil
}

// Reject moves a pending request to rejected without touching any balance.
// Only the request's agent may reject it.
func (t *Tracker) Reject(ctx context.Context, requestID uuid.UUID, callerEmail string) (models.TransferRequest, error) {
	caller, err := t.caller(ctx, callerEmail)
	if err != nil {
		return models.TransferRequest{}, err
	}

	storeCtx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	var rejected models.TransferRequest
	err = t.store.WithTransaction(storeCtx, func(txCtx context.Context) error {
		request, err := t.store.Requests().Lock(txCtx, requestID)
		if err != nil {
			return err
		}
		if request.AgentAccountID != caller.ID {
			return ErrAuthenticationMismatch
		}
		if request.Status != models.RequestPending {
			return ErrAlreadyResolved
		}
		rejected, err = t.store.Requests().Resolve(txCtx, requestID, models.RequestRejected, time.Now().UTC())
		if errors.Is(err, storage.ErrNotPending) {
			return ErrAlreadyResolved
		}
		return err
	})
	if err != nil {
		return models.TransferRequest{}, err
	}

	zap.L().Info("transfer request rejected",
		zap.String("request_id", requestID.String()),
		zap.Int64("agent_account_id", caller.ID))
	t.publish(ctx, events.TypeRequestRejected, rejected)
	return rejected, nil
}

// Approve applies a pending request through the Engine. Only the request's
// agent may approve it. On ErrInsufficientFunds the request stays pending and
// may be approved again later or rejected.
func (t *Tracker) Approve(ctx context.Context, requestID uuid.UUID, callerEmail string) (TransferResult, error) {
	caller, err := t.caller(ctx, callerEmail)
	if err != nil {
		return TransferResult{}, err
	}

	storeCtx, cancel := withTimeout(ctx, t.timeout)
	request, err := t.store.Requests().GetByID(storeCtx, requestID)
	cancel()
	if err != nil {
		return TransferResult{}, err
	}
	if request.AgentAccountID != caller.ID {
		return TransferResult{}, ErrAuthenticationMismatch
	}

	result, err := t.engine.ApplyTransfer(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			zap.L().Warn("approval refused: insufficient funds; request left pending",
				zap.String("request_id", requestID.String()))
		}
		return TransferResult{}, err
	}

	t.publish(ctx, events.TypeRequestApproved, result.Request)
	return result, nil
}

// caller resolves the verified identity to its account.
func (t *Tracker) caller(ctx context.Context, email string) (models.Account, error) {
	account, err := t.accounts.FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Account{}, ErrAuthenticationMismatch
	}
	return account, err
}

// publish is best-effort; failures are logged and never change the outcome.
func (t *Tracker) publish(ctx context.Context, eventType string, request models.TransferRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := t.publisher.Publish(ctx, events.NewTransferEvent(eventType, request)); err != nil {
		zap.L().Warn("failed to publish ledger event",
			zap.String("event_type", eventType),
			zap.String("request_id", request.ID.String()),
			zap.Error(err))
	}
}
