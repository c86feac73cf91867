package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

type AccountFixture struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Role     string `yaml:"role"`
	Activate bool   `yaml:"activate"`
	Grant    bool   `yaml:"grant"`
	Status   string `yaml:"status"`
}

type Fixture struct {
	Accounts []AccountFixture `yaml:"accounts"`
}

func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	for i, account := range fixture.Accounts {
		if strings.TrimSpace(account.Email) == "" {
			return Fixture{}, fmt.Errorf("account at index %d missing email", i)
		}
		if !models.Role(account.Role).Valid() {
			return Fixture{}, fmt.Errorf("account at index %d has invalid role %q", i, account.Role)
		}
		if account.Status != "" && !models.AccountStatus(account.Status).Valid() {
			return Fixture{}, fmt.Errorf("account at index %d has invalid status %q", i, account.Status)
		}
	}
	return fixture, nil
}

// Apply creates missing accounts and applies activation and status. Running it
// twice is safe: existing accounts are reused and the bonus is only granted once.
func Apply(ctx context.Context, accounts *ledger.AccountStore, fixture Fixture) ([]models.Account, error) {
	out := make([]models.Account, 0, len(fixture.Accounts))
	for _, entry := range fixture.Accounts {
		account, err := accounts.Create(ctx, entry.Name, entry.Email, entry.Phone, models.Role(entry.Role))
		if errors.Is(err, storage.ErrAlreadyExists) {
			account, err = accounts.FindByEmail(ctx, entry.Email)
		}
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", entry.Email, err)
		}

		if entry.Activate {
			if account, err = accounts.Activate(ctx, account.ID, entry.Grant); err != nil {
				return nil, fmt.Errorf("activate %s: %w", entry.Email, err)
			}
		}
		if entry.Status != "" && models.AccountStatus(entry.Status) != account.Status {
			if account, err = accounts.SetStatus(ctx, account.ID, models.AccountStatus(entry.Status)); err != nil {
				return nil, fmt.Errorf("set status %s: %w", entry.Email, err)
			}
		}

		zap.L().Info("account seeded",
			zap.Int64("account_id", account.ID),
			zap.String("email", account.Email),
			zap.String("role", string(account.Role)),
			zap.String("status", string(account.Status)),
			zap.Int64("balance", account.Balance))
		out = append(out, account)
	}
	return out, nil
}
