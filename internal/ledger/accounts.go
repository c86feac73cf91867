package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// AccountStore exposes account reads and the sanctioned account mutations.
type AccountStore struct {
	store   storage.Store
	timeout time.Duration
}

func NewAccountStore(store storage.Store, timeout time.Duration) *AccountStore {
	return &AccountStore{store: store, timeout: timeout}
}

// Create registers a new account in the pending state with a zero balance.
func (s *AccountStore) Create(ctx context.Context, name, email, phone string, role models.Role) (models.Account, error) {
	if !role.Valid() {
		return models.Account{}, ErrInvalidRole
	}
	if strings.TrimSpace(email) == "" {
		return models.Account{}, fmt.Errorf("email cannot be empty")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.store.Accounts().Create(ctx, models.Account{
		Name:   name,
		Email:  email,
		Phone:  phone,
		Role:   role,
		Status: models.StatusPending,
		IsNew:  true,
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("create account: %w", err)
	}
	zap.L().Info("account created", zap.Int64("account_id", account.ID), zap.String("role", string(role)))
	return account, nil
}

func (s *AccountStore) Get(ctx context.Context, id int64) (models.Account, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Accounts().GetByID(ctx, id)
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Accounts().GetByEmail(ctx, email)
}

// List returns non-admin accounts whose name or email contains filter.Search.
func (s *AccountStore) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	accounts, err := s.store.Accounts().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

// Activate marks the account activated. When grant is set, the role's
// activation bonus is credited the first time only; repeated calls leave the
// balance untouched.
func (s *AccountStore) Activate(ctx context.Context, id int64, grant bool) (models.Account, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var account models.Account
	err := s.store.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.store.Accounts().Lock(txCtx, id)
		if err != nil {
			return err
		}
		account, err = s.store.Accounts().Activate(txCtx, id, current.Role.ActivationBonus(), grant)
		if err != nil {
			return err
		}
		if current.IsNew && !account.IsNew {
			zap.L().Info("activation bonus granted",
				zap.Int64("account_id", id),
				zap.Int64("bonus", current.Role.ActivationBonus()),
				zap.Int64("balance", account.Balance))
		}
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// SetStatus overwrites the account status, for example to block or unblock it.
func (s *AccountStore) SetStatus(ctx context.Context, id int64, status models.AccountStatus) (models.Account, error) {
	if !status.Valid() {
		return models.Account{}, ErrInvalidStatus
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.store.Accounts().SetStatus(ctx, id, status)
	if err != nil {
		return models.Account{}, err
	}
	zap.L().Info("account status changed", zap.Int64("account_id", id), zap.String("status", string(status)))
	return account, nil
}

// AdjustBalance adds delta to the balance and fails with ErrInsufficientFunds,
// changing nothing, when the result would be negative. Called with a
// transaction in ctx it joins that transaction.
func (s *AccountStore) AdjustBalance(ctx context.Context, id int64, delta int64) (models.Account, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var account models.Account
	err := s.store.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		account, err = s.store.Accounts().AdjustBalance(txCtx, id, delta)
		return err
	})
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}
