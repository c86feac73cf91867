package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/cashjet-be/internal/events"
	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/models"
)

func TestTracker_CashInScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "u@example.com", models.RoleUser, 0)
	agent := f.account(t, "a@example.com", models.RoleAgent, 20000)

	request := f.request(t, user, agent, models.CashIn, 500)
	assert.Equal(t, models.RequestPending, request.Status)
	assert.Equal(t, user.ID, request.UserAccountID)
	assert.Equal(t, agent.ID, request.AgentAccountID)

	result, err := f.tracker.Approve(ctx, request.ID, agent.Email)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, result.Request.Status)
	assert.Equal(t, int64(500), result.User.Balance)
	assert.Equal(t, int64(19500), result.Agent.Balance)

	_, err = f.tracker.Approve(ctx, request.ID, agent.Email)
	require.ErrorIs(t, err, ledger.ErrAlreadyResolved)
	assert.Equal(t, int64(500), f.balance(t, user.ID))
	assert.Equal(t, int64(19500), f.balance(t, agent.ID))

	assert.Equal(t, []string{events.TypeRequestCreated, events.TypeRequestApproved}, f.published.types())
}

func TestTracker_CashOutInsufficientFundsStaysPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "u@example.com", models.RoleUser, 100)
	agent := f.account(t, "a@example.com", models.RoleAgent, 1000)
	request := f.request(t, user, agent, models.CashOut, 500)

	_, err := f.tracker.Approve(ctx, request.ID, agent.Email)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, int64(100), f.balance(t, user.ID))
	assert.Equal(t, int64(1000), f.balance(t, agent.ID))
	pending, err := f.tracker.ListPending(ctx, agent.Email, models.CashOut)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, request.ID, pending[0].ID)

	// Once the user is funded the same request can be approved.
	_, err = f.accounts.AdjustBalance(ctx, user.ID, 400)
	require.NoError(t, err)
	result, err := f.tracker.Approve(ctx, request.ID, agent.Email)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.User.Balance)
	assert.Equal(t, int64(1500), result.Agent.Balance)
}

func TestTracker_ConcurrentApproveAppliesOnce(t *testing.T) {
	f := newFixture(t)
	user := f.account(t, "u@example.com", models.RoleUser, 0)
	agent := f.account(t, "a@example.com", models.RoleAgent, 20000)
	request := f.request(t, user, agent, models.CashIn, 500)

	const callers = 2
	errs := make([]error, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, errs[i] = f.tracker.Approve(context.Background(), request.ID, agent.Email)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded, resolved := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ledger.ErrAlreadyResolved):
			resolved++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, int64(500), f.balance(t, user.ID))
	assert.Equal(t, int64(19500), f.balance(t, agent.ID))
}

func TestTracker_RejectLeavesBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "u@example.com", models.RoleUser, 300)
	agent := f.account(t, "a@example.com", models.RoleAgent, 700)
	request := f.request(t, user, agent, models.CashOut, 200)

	rejected, err := f.tracker.Reject(ctx, request.ID, agent.Email)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)
	require.NotNil(t, rejected.ResolvedAt)
	assert.Equal(t, int64(300), f.balance(t, user.ID))
	assert.Equal(t, int64(700), f.balance(t, agent.ID))

	_, err = f.tracker.Reject(ctx, request.ID, agent.Email)
	assert.ErrorIs(t, err, ledger.ErrAlreadyResolved)
	_, err = f.tracker.Approve(ctx, request.ID, agent.Email)
	assert.ErrorIs(t, err, ledger.ErrAlreadyResolved)
	assert.Equal(t, int64(300), f.balance(t, user.ID))

	assert.Equal(t, []string{events.TypeRequestCreated, events.TypeRequestRejected}, f.published.types())
}

func TestTracker_UnknownRequest(t *testing.T) {
	f := newFixture(t)
	agent := f.account(t, "a@example.com", models.RoleAgent, 0)

	_, err := f.tracker.Reject(context.Background(), uuid.New(), agent.Email)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.tracker.Approve(context.Background(), uuid.New(), agent.Email)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestTracker_OnlyTheRequestAgentResolves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "u@example.com", models.RoleUser, 0)
	agent := f.account(t, "a@example.com", models.RoleAgent, 5000)
	other := f.account(t, "b@example.com", models.RoleAgent, 5000)
	request := f.request(t, user, agent, models.CashIn, 100)

	for _, caller := range []string{other.Email, user.Email, "stranger@example.com"} {
		_, err := f.tracker.Approve(ctx, request.ID, caller)
		assert.ErrorIs(t, err, ledger.ErrAuthenticationMismatch, caller)
		_, err = f.tracker.Reject(ctx, request.ID, caller)
		assert.ErrorIs(t, err, ledger.ErrAuthenticationMismatch, caller)
	}
	assert.Equal(t, int64(0), f.balance(t, user.ID))
}

func TestTracker_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "u@example.com", models.RoleUser, 0)
	other := f.account(t, "v@example.com", models.RoleUser, 0)
	agent := f.account(t, "a@example.com", models.RoleAgent, 0)

	dormant, err := f.accounts.Create(ctx, "dormant", "dormant@example.com", "", models.RoleAgent)
	require.NoError(t, err)
	pendingUser, err := f.accounts.Create(ctx, "fresh", "fresh@example.com", "", models.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   ledger.CreateInput
		want error
	}{
		{
			name: "zero amount",
			in:   ledger.CreateInput{AgentEmail: agent.Email, Amount: 0, RequestType: models.CashIn, CallerEmail: user.Email},
			want: ledger.ErrInvalidAmount,
		},
		{
			name: "unknown type",
			in:   ledger.CreateInput{AgentEmail: agent.Email, Amount: 10, RequestType: "transfer", CallerEmail: user.Email},
			want: ledger.ErrInvalidRequestType,
		},
		{
			name: "unknown agent",
			in:   ledger.CreateInput{AgentEmail: "ghost@example.com", Amount: 10, RequestType: models.CashIn, CallerEmail: user.Email},
			want: ledger.ErrInvalidAgent,
		},
		{
			name: "agent email names a user",
			in:   ledger.CreateInput{AgentEmail: other.Email, Amount: 10, RequestType: models.CashIn, CallerEmail: user.Email},
			want: ledger.ErrInvalidAgent,
		},
		{
			name: "agent not activated",
			in:   ledger.CreateInput{AgentEmail: dormant.Email, Amount: 10, RequestType: models.CashIn, CallerEmail: user.Email},
			want: ledger.ErrAgentNotActivated,
		},
		{
			name: "body user differs from caller",
			in:   ledger.CreateInput{UserID: other.ID, AgentEmail: agent.Email, Amount: 10, RequestType: models.CashIn, CallerEmail: user.Email},
			want: ledger.ErrAuthenticationMismatch,
		},
		{
			name: "caller has no account",
			in:   ledger.CreateInput{AgentEmail: agent.Email, Amount: 10, RequestType: models.CashIn, CallerEmail: "nobody@example.com"},
			want: ledger.ErrAuthenticationMismatch,
		},
		{
			name: "caller is an agent",
			in:   ledger.CreateInput{AgentEmail: agent.Email, Amount: 10, RequestType: models.CashIn, CallerEmail: agent.Email},
			want: ledger.ErrAuthenticationMismatch,
		},
		{
			name: "caller not activated",
			in:   ledger.CreateInput{AgentEmail: agent.Email, Amount: 10, RequestType: models.CashIn, CallerEmail: pendingUser.Email},
			want: ledger.ErrAccountNotActivated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tracker.Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	created, err := f.tracker.Create(ctx, ledger.CreateInput{
		UserID: user.ID, AgentEmail: "A@EXAMPLE.COM", Amount: 10, RequestType: models.CashOut, CallerEmail: user.Email,
	})
	require.NoError(t, err)
	assert.Equal(t, agent.ID, created.AgentAccountID)
}

func TestTracker_ListPendingFiltersByTypeNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "u@example.com", models.RoleUser, 0)
	agent := f.account(t, "a@example.com", models.RoleAgent, 0)

	first := f.request(t, user, agent, models.CashIn, 10)
	second := f.request(t, user, agent, models.CashIn, 20)
	f.request(t, user, agent, models.CashOut, 30)

	pending, err := f.tracker.ListPending(ctx, agent.Email, models.CashIn)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, first.ID, pending[1].ID)

	_, err = f.tracker.ListPending(ctx, user.Email, models.CashIn)
	assert.ErrorIs(t, err, ledger.ErrInvalidAgent)
	_, err = f.tracker.ListPending(ctx, agent.Email, "bogus")
	assert.ErrorIs(t, err, ledger.ErrInvalidRequestType)
}

func TestTracker_GetAndHistoryAreScopedToParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.account(t, "u@example.com", models.RoleUser, 0)
	agent := f.account(t, "a@example.com", models.RoleAgent, 0)
	outsider := f.account(t, "o@example.com", models.RoleUser, 0)
	admin := f.account(t, "root@example.com", models.RoleAdmin, 0)
	request := f.request(t, user, agent, models.CashIn, 10)

	for _, email := range []string{user.Email, agent.Email, admin.Email} {
		got, err := f.tracker.Get(ctx, request.ID, email)
		require.NoError(t, err, email)
		assert.Equal(t, request.ID, got.ID)
	}
	_, err := f.tracker.Get(ctx, request.ID, outsider.Email)
	assert.ErrorIs(t, err, ledger.ErrAuthenticationMismatch)

	history, err := f.tracker.History(ctx, agent.Email, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)

	empty, err := f.tracker.History(ctx, outsider.Email, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
