package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

const accountColumns = `id, name, email, phone, role, status, balance, is_new, created_at, updated_at`

type accountRepository struct {
	store *Store
}

// Create inserts a new account row.
func (r *accountRepository) Create(ctx context.Context, account models.Account) (models.Account, error) {
	const query = `
		INSERT INTO accounts (name, email, phone, role, status, balance, is_new)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountColumns
	row := r.store.q(ctx).QueryRow(ctx, query,
		strings.TrimSpace(account.Name),
		strings.TrimSpace(account.Email),
		strings.TrimSpace(account.Phone),
		string(account.Role),
		string(account.Status),
		account.Balance,
		account.IsNew,
	)
	return scanAccount(row)
}

// GetByID fetches an account by id.
func (r *accountRepository) GetByID(ctx context.Context, id int64) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.store.q(ctx).QueryRow(ctx, query, id))
}

// GetByEmail fetches an account by email, ignoring case.
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return scanAccount(r.store.q(ctx).QueryRow(ctx, query, strings.TrimSpace(email)))
}

// List returns non-admin accounts matching the filter, ordered by id.
func (r *accountRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE role <> 'admin'
		  AND ($1 = '%%' OR LOWER(name) LIKE $1 ESCAPE '\' OR LOWER(email) LIKE $1 ESCAPE '\')
		  AND ($2 = '' OR role = $2)
		ORDER BY id
		LIMIT $3 OFFSET $4`
	rows, err := r.store.q(ctx).Query(ctx, query,
		storage.ContainsPattern(filter.Search), string(filter.Role), filter.Limit, filter.Offset)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, classify(rows.Err())
}

// Lock fetches the account with FOR UPDATE. Must run inside WithTransaction.
func (r *accountRepository) Lock(ctx context.Context, id int64) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(r.store.q(ctx).QueryRow(ctx, query, id))
}

// AdjustBalance applies delta only if the resulting balance stays non-negative.
func (r *accountRepository) AdjustBalance(ctx context.Context, id int64, delta int64) (models.Account, error) {
	const query = `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING ` + accountColumns
	account, err := scanAccount(r.store.q(ctx).QueryRow(ctx, query, id, delta))
	if errors.Is(err, storage.ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return models.Account{}, getErr
		}
		return models.Account{}, storage.ErrInsufficientFunds
	}
	return account, err
}

// Activate marks the account activated and credits bonus once while is_new holds.
func (r *accountRepository) Activate(ctx context.Context, id int64, bonus int64, grant bool) (models.Account, error) {
	const query = `
		UPDATE accounts
		SET status = 'activated',
		    balance = balance + CASE WHEN $3::boolean AND is_new THEN $2::bigint ELSE 0 END,
		    is_new = CASE WHEN $3::boolean THEN FALSE ELSE is_new END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns
	return scanAccount(r.store.q(ctx).QueryRow(ctx, query, id, bonus, grant))
}

// SetStatus overwrites the account status.
func (r *accountRepository) SetStatus(ctx context.Context, id int64, status models.AccountStatus) (models.Account, error) {
	const query = `
		UPDATE accounts SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns
	return scanAccount(r.store.q(ctx).QueryRow(ctx, query, id, string(status)))
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var account models.Account
	var role, status string
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Phone,
		&role,
		&status,
		&account.Balance,
		&account.IsNew,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return models.Account{}, classify(err)
	}
	account.Role = models.Role(role)
	account.Status = models.AccountStatus(status)
	return account, nil
}
