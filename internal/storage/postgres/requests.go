package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

const requestColumns = `id, user_account_id, agent_account_id, request_type, amount, status, created_at, resolved_at`

type requestRepository struct {
	store *Store
}

// Create persists a new transfer request.
func (r *requestRepository) Create(ctx context.Context, request models.TransferRequest) error {
	const query = `
		INSERT INTO transfer_requests (id, user_account_id, agent_account_id, request_type, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.store.q(ctx).Exec(ctx, query,
		request.ID,
		request.UserAccountID,
		request.AgentAccountID,
		string(request.RequestType),
		request.Amount,
		string(request.Status),
		request.CreatedAt,
	)
	return classify(err)
}

// GetByID fetches a request by id.
func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (models.TransferRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM transfer_requests WHERE id = $1`
	return scanRequest(r.store.q(ctx).QueryRow(ctx, query, id))
}

// Lock fetches the request with FOR UPDATE. Must run inside WithTransaction.
func (r *requestRepository) Lock(ctx context.Context, id uuid.UUID) (models.TransferRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM transfer_requests WHERE id = $1 FOR UPDATE`
	return scanRequest(r.store.q(ctx).QueryRow(ctx, query, id))
}

// ListPending returns the agent's pending requests of one type, newest first.
func (r *requestRepository) ListPending(ctx context.Context, agentID int64, requestType models.RequestType) ([]models.TransferRequest, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM transfer_requests
		WHERE agent_account_id = $1 AND request_type = $2 AND status = 'pending'
		ORDER BY created_at DESC, id`
	return r.list(ctx, query, agentID, string(requestType))
}

// ListForAccount returns requests involving the account, newest first.
func (r *requestRepository) ListForAccount(ctx context.Context, accountID int64, limit int) ([]models.TransferRequest, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM transfer_requests
		WHERE user_account_id = $1 OR agent_account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`
	return r.list(ctx, query, accountID, limit)
}

// Resolve moves a pending request to a terminal status.
func (r *requestRepository) Resolve(ctx context.Context, id uuid.UUID, status models.RequestStatus, at time.Time) (models.TransferRequest, error) {
	const query = `
		UPDATE transfer_requests
		SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns
	request, err := scanRequest(r.store.q(ctx).QueryRow(ctx, query, id, string(status), at))
	if errors.Is(err, storage.ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return models.TransferRequest{}, getErr
		}
		return models.TransferRequest{}, storage.ErrNotPending
	}
	return request, err
}

func (r *requestRepository) list(ctx context.Context, query string, args ...any) ([]models.TransferRequest, error) {
	rows, err := r.store.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []models.TransferRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, request)
	}
	return out, classify(rows.Err())
}

func scanRequest(row pgx.Row) (models.TransferRequest, error) {
	var request models.TransferRequest
	var requestType, status string
	if err := row.Scan(
		&request.ID,
		&request.UserAccountID,
		&request.AgentAccountID,
		&requestType,
		&request.Amount,
		&status,
		&request.CreatedAt,
		&request.ResolvedAt,
	); err != nil {
		return models.TransferRequest{}, classify(err)
	}
	request.RequestType = models.RequestType(requestType)
	request.Status = models.RequestStatus(status)
	return request, nil
}
