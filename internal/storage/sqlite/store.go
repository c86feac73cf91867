package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/storage"
)

// Compile-time check: *Store must satisfy storage.Store.
var _ storage.Store = (*Store)(nil)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns int
	PingTimeout  time.Duration
}

// Store is the SQLite implementation of storage.Store. Transactions are opened
// with BEGIN IMMEDIATE, so writers are serialized by the database lock.
type Store struct {
	db       *sql.DB
	accounts *accountRepository
	requests *requestRepository
}

// NewStore opens (or creates) the database file at path and initializes the schema.
func NewStore(ctx context.Context, path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	zap.L().Info("opening sqlite database", zap.String("file", path))
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(0)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	s.accounts = &accountRepository{store: s}
	s.requests = &requestRepository{store: s}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("failed to close database connection", zap.Error(err))
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Accounts() storage.AccountRepository { return s.accounts }

func (s *Store) Requests() storage.RequestRepository { return s.requests }

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL CHECK (role IN ('user', 'agent', 'admin')),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'activated', 'blocked')),
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		is_new BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS transfer_requests (
		id TEXT PRIMARY KEY,
		user_account_id INTEGER NOT NULL REFERENCES accounts(id),
		agent_account_id INTEGER NOT NULL REFERENCES accounts(id),
		request_type TEXT NOT NULL CHECK (request_type IN ('cashIn', 'cashOut')),
		amount INTEGER NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		created_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_requests_agent ON transfer_requests(agent_account_id, status, request_type, created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_user ON transfer_requests(user_account_id, created_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q(ctx context.Context) querier {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return s.db
}

// classify maps driver errors onto the storage sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", storage.ErrTransient, err)
		case sqlite3.ErrConstraint:
			switch sqliteErr.ExtendedCode {
			case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
				return storage.ErrAlreadyExists
			case sqlite3.ErrConstraintCheck:
				if strings.Contains(sqliteErr.Error(), "balance") {
					return storage.ErrInsufficientFunds
				}
			}
		}
	}
	return err
}
