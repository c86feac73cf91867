package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Options tunes the connection pool.
type Options struct {
	MaxConns    int32
	MinConns    int32
	PingTimeout time.Duration
}

// Store provides Postgres-backed persistence for accounts and transfer requests.
type Store struct {
	pool     *pgxpool.Pool
	accounts *accountRepository
	requests *requestRepository
}

// NewStore connects to databaseURL, verifies the connection and runs migrations.
func NewStore(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	s.accounts = &accountRepository{store: s}
	s.requests = &requestRepository{store: s}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	zap.L().Info("postgres store ready", zap.Int32("max_conns", cfg.MaxConns))
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Accounts() storage.AccountRepository { return s.accounts }

func (s *Store) Requests() storage.RequestRepository { return s.requests }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL CHECK (role IN ('user', 'agent', 'admin')),
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'activated', 'blocked')),
			balance BIGINT NOT NULL DEFAULT 0,
			is_new BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`DO $$ BEGIN
			ALTER TABLE accounts ADD CONSTRAINT accounts_balance_non_negative CHECK (balance >= 0);
		EXCEPTION WHEN duplicate_object THEN NULL;
		END $$;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_lower_unique_idx ON accounts (LOWER(email));`,
		`CREATE TABLE IF NOT EXISTS transfer_requests (
			id UUID PRIMARY KEY,
			user_account_id BIGINT NOT NULL REFERENCES accounts(id),
			agent_account_id BIGINT NOT NULL REFERENCES accounts(id),
			request_type TEXT NOT NULL CHECK (request_type IN ('cashIn', 'cashOut')),
			amount BIGINT NOT NULL CHECK (amount > 0),
			status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS transfer_requests_agent_pending_idx ON transfer_requests (agent_account_id, request_type, created_at DESC) WHERE status = 'pending';`,
		`CREATE INDEX IF NOT EXISTS transfer_requests_user_idx ON transfer_requests (user_account_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS transfer_requests_agent_idx ON transfer_requests (agent_account_id, created_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// q returns the transaction stored in ctx, or the pool when there is none.
func (s *Store) q(ctx context.Context) querier {
	if tx := getTx(ctx); tx != nil {
		return tx
	}
	return s.pool
}

// classify maps driver errors onto the storage sentinel errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return storage.ErrAlreadyExists
		case "23514":
			if pgErr.ConstraintName == "accounts_balance_non_negative" {
				return storage.ErrInsufficientFunds
			}
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %w", storage.ErrTransient, err)
		}
	}
	return err
}
