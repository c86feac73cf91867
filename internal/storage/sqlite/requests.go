package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

const requestColumns = `id, user_account_id, agent_account_id, request_type, amount, status, created_at, resolved_at`

type requestRepository struct {
	store *Store
}

func (r *requestRepository) Create(ctx context.Context, request models.TransferRequest) error {
	const query = `
		INSERT INTO transfer_requests (id, user_account_id, agent_account_id, request_type, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.store.q(ctx).ExecContext(ctx, query,
		request.ID.String(),
		request.UserAccountID,
		request.AgentAccountID,
		string(request.RequestType),
		request.Amount,
		string(request.Status),
		request.CreatedAt.UTC(),
	)
	return classify(err)
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (models.TransferRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM transfer_requests WHERE id = ?`
	return scanRequest(r.store.q(ctx).QueryRowContext(ctx, query, id.String()))
}

// Lock reads the request inside the current transaction; see accountRepository.Lock.
func (r *requestRepository) Lock(ctx context.Context, id uuid.UUID) (models.TransferRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *requestRepository) ListPending(ctx context.Context, agentID int64, requestType models.RequestType) ([]models.TransferRequest, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM transfer_requests
		WHERE agent_account_id = ? AND request_type = ? AND status = 'pending'
		ORDER BY created_at DESC, id`
	return r.list(ctx, query, agentID, string(requestType))
}

func (r *requestRepository) ListForAccount(ctx context.Context, accountID int64, limit int) ([]models.TransferRequest, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM transfer_requests
		WHERE user_account_id = ?1 OR agent_account_id = ?1
		ORDER BY created_at DESC, id
		LIMIT ?2`
	return r.list(ctx, query, accountID, limit)
}

func (r *requestRepository) Resolve(ctx context.Context, id uuid.UUID, status models.RequestStatus, at time.Time) (models.TransferRequest, error) {
	const query = `
		UPDATE transfer_requests
		SET status = ?2, resolved_at = ?3
		WHERE id = ?1 AND status = 'pending'`
	var request models.TransferRequest
	err := r.store.WithTransaction(ctx, func(ctx context.Context) error {
		res, err := r.store.q(ctx).ExecContext(ctx, query, id.String(), string(status), at.UTC())
		if err != nil {
			return classify(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		request, err = r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return storage.ErrNotPending
		}
		return nil
	})
	if err != nil {
		return models.TransferRequest{}, err
	}
	return request, nil
}

func (r *requestRepository) list(ctx context.Context, query string, args ...any) ([]models.TransferRequest, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, query, args...)
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

func scanRequest(row scanner) (models.TransferRequest, error) {
	var request models.TransferRequest
	var requestType, status string
	var resolvedAt sql.NullTime
	if err := row.Scan(
		&request.ID,
		&request.UserAccountID,
		&request.AgentAccountID,
		&requestType,
		&request.Amount,
		&status,
		&request.CreatedAt,
		&resolvedAt,
	); err != nil {
		return models.TransferRequest{}, classify(err)
	}
	request.RequestType = models.RequestType(requestType)
	request.Status = models.RequestStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		request.ResolvedAt = &t
	}
	return request, nil
}
