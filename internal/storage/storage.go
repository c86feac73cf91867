package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/cashjet-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInsufficientFunds indicates a balance change would drive the balance negative.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrNotPending indicates a conditional resolve found the request already resolved.
var ErrNotPending = errors.New("request is not pending")

// ErrTransient indicates a timeout or contention failure that is safe to retry.
var ErrTransient = errors.New("transient storage failure")

// AccountRepository persists accounts. Balance changes go through AdjustBalance
// or Activate only; both are single conditional statements.
type AccountRepository interface {
	Create(ctx context.Context, account models.Account) (models.Account, error)
	GetByID(ctx context.Context, id int64) (models.Account, error)
	GetByEmail(ctx context.Context, email string) (models.Account, error)
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
	// Lock reads the account and holds a row lock until the surrounding transaction ends.
	Lock(ctx context.Context, id int64) (models.Account, error)
	// AdjustBalance adds delta to the balance, failing with ErrInsufficientFunds
	// when the result would be negative.
	AdjustBalance(ctx context.Context, id int64, delta int64) (models.Account, error)
	// Activate sets status=activated. When grant is true and the account is still
	// new, bonus is credited and the new flag cleared in the same statement.
	Activate(ctx context.Context, id int64, bonus int64, grant bool) (models.Account, error)
	SetStatus(ctx context.Context, id int64, status models.AccountStatus) (models.Account, error)
}

// RequestRepository persists transfer requests.
type RequestRepository interface {
	Create(ctx context.Context, request models.TransferRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (models.TransferRequest, error)
	// Lock reads the request and holds a row lock until the surrounding transaction ends.
	Lock(ctx context.Context, id uuid.UUID) (models.TransferRequest, error)
	// ListPending returns pending requests for the agent, newest first.
	ListPending(ctx context.Context, agentID int64, requestType models.RequestType) ([]models.TransferRequest, error)
	// ListForAccount returns requests where the account is either party, newest first.
	ListForAccount(ctx context.Context, accountID int64, limit int) ([]models.TransferRequest, error)
	// Resolve moves a pending request to status. It fails with ErrNotPending
	// when the request has already left the pending state.
	Resolve(ctx context.Context, id uuid.UUID, status models.RequestStatus, at time.Time) (models.TransferRequest, error)
}

// TxManager runs fn inside a single storage transaction carried by ctx.
// The transaction is rolled back when fn returns an error.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store is the storage handle injected into the ledger components.
type Store interface {
	TxManager
	Accounts() AccountRepository
	Requests() RequestRepository
	Ping(ctx context.Context) error
	Close()
}
