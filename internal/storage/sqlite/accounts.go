package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

const accountColumns = `id, name, email, phone, role, status, balance, is_new, created_at, updated_at`

type accountRepository struct {
	store *Store
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *accountRepository) Create(ctx context.Context, account models.Account) (models.Account, error) {
	const query = `
		INSERT INTO accounts (name, email, phone, role, status, balance, is_new, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var created models.Account
	err := r.store.WithTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		res, err := r.store.q(ctx).ExecContext(ctx, query,
			strings.TrimSpace(account.Name),
			strings.TrimSpace(account.Email),
			strings.TrimSpace(account.Phone),
			string(account.Role),
			string(account.Status),
			account.Balance,
			account.IsNew,
			now,
			now,
		)
		if err != nil {
			return classify(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		created, err = r.GetByID(ctx, id)
		return err
	})
	return created, err
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return scanAccount(r.store.q(ctx).QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = ? COLLATE NOCASE`
	return scanAccount(r.store.q(ctx).QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

func (r *accountRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE role <> 'admin'
		  AND (?1 = '%%' OR LOWER(name) LIKE ?1 ESCAPE '\' OR LOWER(email) LIKE ?1 ESCAPE '\')
		  AND (?2 = '' OR role = ?2)
		ORDER BY id
		LIMIT ?3 OFFSET ?4`
	rows, err := r.store.q(ctx).QueryContext(ctx, query,
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

// Lock reads the account inside the current transaction. SQLite has no row
// locks; the write lock taken by BEGIN IMMEDIATE already covers the whole database.
func (r *accountRepository) Lock(ctx context.Context, id int64) (models.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *accountRepository) AdjustBalance(ctx context.Context, id int64, delta int64) (models.Account, error) {
	const query = `
		UPDATE accounts
		SET balance = balance + ?2, updated_at = ?3
		WHERE id = ?1 AND balance + ?2 >= 0`
	return r.updateAndGet(ctx, id, storage.ErrInsufficientFunds, query, id, delta, time.Now().UTC())
}

func (r *accountRepository) Activate(ctx context.Context, id int64, bonus int64, grant bool) (models.Account, error) {
	const query = `
		UPDATE accounts
		SET status = 'activated',
		    balance = balance + CASE WHEN ?3 AND is_new THEN ?2 ELSE 0 END,
		    is_new = CASE WHEN ?3 THEN 0 ELSE is_new END,
		    updated_at = ?4
		WHERE id = ?1`
	return r.updateAndGet(ctx, id, storage.ErrNotFound, query, id, bonus, grant, time.Now().UTC())
}

func (r *accountRepository) SetStatus(ctx context.Context, id int64, status models.AccountStatus) (models.Account, error) {
	const query = `UPDATE accounts SET status = ?2, updated_at = ?3 WHERE id = ?1`
	return r.updateAndGet(ctx, id, storage.ErrNotFound, query, id, string(status), time.Now().UTC())
}

// updateAndGet runs a single-row UPDATE and reads the row back in the same
// transaction. When no row matched, a missing account yields ErrNotFound and
// an existing one yields noMatch.
func (r *accountRepository) updateAndGet(ctx context.Context, id int64, noMatch error, query string, args ...any) (models.Account, error) {
	var account models.Account
	err := r.store.WithTransaction(ctx, func(ctx context.Context) error {
		res, err := r.store.q(ctx).ExecContext(ctx, query, args...)
		if err != nil {
			return classify(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		account, err = r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return noMatch
		}
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func scanAccount(row scanner) (models.Account, error) {
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
