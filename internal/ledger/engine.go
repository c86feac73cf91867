package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

const defaultTransientRetries = 3

// TransferResult is the state committed by a successful ApplyTransfer.
type TransferResult struct {
	Request models.TransferRequest
	User    models.Account
	Agent   models.Account
}

// Engine applies the monetary effect of approved requests.
type Engine struct {
	store      storage.Store
	timeout    time.Duration
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

func NewEngine(store storage.Store, timeout time.Duration) *Engine {
	return &Engine{
		store:      store,
		timeout:    timeout,
		maxRetries: defaultTransientRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
	}
}

// ApplyTransfer moves the request's amount between its user and agent and
// marks it approved, all in one transaction. The request, parties and amount
// are read from storage under lock. On any failure nothing changes and the
// request stays pending. Transient storage failures are retried.
func (e *Engine) ApplyTransfer(ctx context.Context, requestID uuid.UUID) (TransferResult, error) {
	var result TransferResult
	policy := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), e.maxRetries), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		result, err = e.applyOnce(ctx, requestID)
		if err == nil {
			return nil
		}
		if errors.Is(err, storage.ErrTransient) {
			zap.L().Warn("transient failure applying transfer; retrying",
				zap.String("request_id", requestID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		return TransferResult{}, err
	}

	zap.L().Info("transfer applied",
		zap.String("request_id", requestID.String()),
		zap.String("request_type", string(result.Request.RequestType)),
		zap.Int64("amount", result.Request.Amount),
		zap.Int64("user_account_id", result.User.ID),
		zap.Int64("user_balance", result.User.Balance),
		zap.Int64("agent_account_id", result.Agent.ID),
		zap.Int64("agent_balance", result.Agent.Balance))
	return result, nil
}

func (e *Engine) applyOnce(ctx context.Context, requestID uuid.UUID) (TransferResult, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	var result TransferResult
	err := e.store.WithTransaction(ctx, func(txCtx context.Context) error {
		request, err := e.store.Requests().Lock(txCtx, requestID)
		if err != nil {
			return err
		}
		if request.Status != models.RequestPending {
			return ErrAlreadyResolved
		}

		user, agent, err := e.lockParties(txCtx, request)
		if err != nil {
			return err
		}
		if !user.Active() {
			return fmt.Errorf("user account %d: %w", user.ID, ErrAccountNotActivated)
		}
		if !agent.Active() {
			return fmt.Errorf("agent account %d: %w", agent.ID, ErrAgentNotActivated)
		}

		userDelta, agentDelta := request.Deltas()
		if user.Balance+userDelta < 0 || agent.Balance+agentDelta < 0 {
			return ErrInsufficientFunds
		}

		if result.User, err = e.store.Accounts().AdjustBalance(txCtx, user.ID, userDelta); err != nil {
			return err
		}
		if result.Agent, err = e.store.Accounts().AdjustBalance(txCtx, agent.ID, agentDelta); err != nil {
			return err
		}

		result.Request, err = e.store.Requests().Resolve(txCtx, request.ID, models.RequestApproved, time.Now().UTC())
		if errors.Is(err, storage.ErrNotPending) {
			return ErrAlreadyResolved
		}
		return err
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

// lockParties locks both accounts in ascending id order so that transfers
// touching the same pair of accounts cannot deadlock.
func (e *Engine) lockParties(ctx context.Context, request models.TransferRequest) (user, agent models.Account, err error) {
	first, second := request.UserAccountID, request.AgentAccountID
	if second < first {
		first, second = second, first
	}

	locked := make(map[int64]models.Account, 2)
	for _, id := range []int64{first, second} {
		if _, ok := locked[id]; ok {
			continue
		}
		account, err := e.store.Accounts().Lock(ctx, id)
		if err != nil {
			return models.Account{}, models.Account{}, fmt.Errorf("lock account %d: %w", id, err)
		}
		locked[id] = account
	}
	return locked[request.UserAccountID], locked[request.AgentAccountID], nil
}
