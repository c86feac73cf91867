package ledger_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cashjet-be/internal/events"
	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage/sqlite"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.EventType)
	}
	return out
}

type fixture struct {
	store     *sqlite.Store
	accounts  *ledger.AccountStore
	engine    *ledger.Engine
	tracker   *ledger.Tracker
	published *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	accounts := ledger.NewAccountStore(store, 0)
	engine := ledger.NewEngine(store, 0)
	published := &recordingPublisher{}
	return &fixture{
		store:     store,
		accounts:  accounts,
		engine:    engine,
		tracker:   ledger.NewTracker(store, accounts, engine, published, 0),
		published: published,
	}
}

// account creates an activated account holding balance.
func (f *fixture) account(t *testing.T, email string, role models.Role, balance int64) models.Account {
	t.Helper()
	ctx := context.Background()
	account, err := f.accounts.Create(ctx, email, email, "", role)
	require.NoError(t, err)
	account, err = f.accounts.Activate(ctx, account.ID, false)
	require.NoError(t, err)
	if balance > 0 {
		account, err = f.accounts.AdjustBalance(ctx, account.ID, balance)
		require.NoError(t, err)
	}
	return account
}

func (f *fixture) balance(t *testing.T, id int64) int64 {
	t.Helper()
	account, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func (f *fixture) request(t *testing.T, user, agent models.Account, requestType models.RequestType, amount int64) models.TransferRequest {
	t.Helper()
	request, err := f.tracker.Create(context.Background(), ledger.CreateInput{
		AgentEmail:  agent.Email,
		Amount:      amount,
		RequestType: requestType,
		CallerEmail: user.Email,
	})
	require.NoError(t, err)
	return request
}
