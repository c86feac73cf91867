package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "test.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func createAccount(t *testing.T, store *Store, email string, role models.Role, balance int64) models.Account {
	t.Helper()
	account, err := store.Accounts().Create(context.Background(), models.Account{
		Name:    email,
		Email:   email,
		Role:    role,
		Status:  models.StatusPending,
		Balance: balance,
		IsNew:   true,
	})
	require.NoError(t, err)
	return account
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore(context.Background(), "  ", Options{})
	require.Error(t, err)
}

func TestAccounts_CreateAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := createAccount(t, store, "Alice@Example.com", models.RoleUser, 0)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsNew)
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := store.Accounts().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = store.Accounts().GetByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Accounts().Create(ctx, models.Account{Email: "ALICE@example.com", Role: models.RoleUser, Status: models.StatusPending})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestAccounts_ListExcludesAdminsAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createAccount(t, store, "root@example.com", models.RoleAdmin, 0)
	createAccount(t, store, "bob@example.com", models.RoleUser, 0)
	createAccount(t, store, "carol_100%@example.com", models.RoleAgent, 0)

	all, err := store.Accounts().List(ctx, models.AccountFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, account := range all {
		assert.NotEqual(t, models.RoleAdmin, account.Role)
	}

	matched, err := store.Accounts().List(ctx, models.AccountFilter{Search: "_100%", Limit: 10})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "carol_100%@example.com", matched[0].Email)

	agents, err := store.Accounts().List(ctx, models.AccountFilter{Role: models.RoleAgent, Limit: 10})
	require.NoError(t, err)
	require.Len(t, agents, 1)
}

func TestAccounts_AdjustBalance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := createAccount(t, store, "dan@example.com", models.RoleUser, 50)

	updated, err := store.Accounts().AdjustBalance(ctx, account.ID, -50)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.Balance)

	_, err = store.Accounts().AdjustBalance(ctx, account.ID, -1)
	assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

	unchanged, err := store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unchanged.Balance)

	_, err = store.Accounts().AdjustBalance(ctx, 9999, 10)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccounts_ActivateCreditsBonusOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := createAccount(t, store, "erin@example.com", models.RoleAgent, 0)

	activated, err := store.Accounts().Activate(ctx, account.ID, 10000, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActivated, activated.Status)
	assert.Equal(t, int64(10000), activated.Balance)
	assert.False(t, activated.IsNew)

	again, err := store.Accounts().Activate(ctx, account.ID, 10000, true)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), again.Balance)

	_, err = store.Accounts().Activate(ctx, 9999, 40, true)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRequests_ResolveIsConditional(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := createAccount(t, store, "fay@example.com", models.RoleUser, 0)
	agent := createAccount(t, store, "gus@example.com", models.RoleAgent, 0)

	request := models.NewTransferRequest(user.ID, agent.ID, models.CashIn, 25)
	require.NoError(t, store.Requests().Create(ctx, request))

	pending, err := store.Requests().ListPending(ctx, agent.ID, models.CashIn)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, request.ID, pending[0].ID)
	assert.Nil(t, pending[0].ResolvedAt)

	resolved, err := store.Requests().Resolve(ctx, request.ID, models.RequestRejected, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = store.Requests().Resolve(ctx, request.ID, models.RequestApproved, time.Now())
	assert.ErrorIs(t, err, storage.ErrNotPending)

	history, err := store.Requests().ListForAccount(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	pending, err = store.Requests().ListPending(ctx, agent.ID, models.CashIn)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := createAccount(t, store, "hal@example.com", models.RoleUser, 100)

	boom := errors.New("boom")
	err := store.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.Accounts().AdjustBalance(ctx, account.ID, -60); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), reloaded.Balance)
}
