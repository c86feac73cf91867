package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/cashjet-be/internal/ledger"
	"github.com/hongminglow/cashjet-be/internal/models"
	"github.com/hongminglow/cashjet-be/internal/storage/sqlite"
)

const sampleFixture = `
accounts:
  - name: Root
    email: root@cashjet.local
    role: admin
    activate: true
  - name: Agent Smith
    email: agent@cashjet.local
    role: agent
    activate: true
    grant: true
  - name: Blocked User
    email: blocked@cashjet.local
    role: user
    activate: true
    grant: true
    status: blocked
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFixture(t *testing.T) {
	fixture, err := LoadFixture(writeFixture(t, sampleFixture))
	require.NoError(t, err)
	require.Len(t, fixture.Accounts, 3)
	assert.Equal(t, "agent", fixture.Accounts[1].Role)
	assert.True(t, fixture.Accounts[1].Grant)
	assert.Equal(t, "blocked", fixture.Accounts[2].Status)
}

func TestLoadFixture_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing email": "accounts:\n  - role: user\n",
		"bad role":      "accounts:\n  - email: a@b.c\n    role: boss\n",
		"bad status":    "accounts:\n  - email: a@b.c\n    role: user\n    status: frozen\n",
		"not yaml":      "accounts: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFixture(writeFixture(t, content))
			assert.Error(t, err)
		})
	}

	_, err := LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply_IsRepeatable(t *testing.T) {
	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "seed.db"), sqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	accounts := ledger.NewAccountStore(store, 0)

	fixture, err := LoadFixture(writeFixture(t, sampleFixture))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		seeded, err := Apply(context.Background(), accounts, fixture)
		require.NoError(t, err)
		require.Len(t, seeded, 3)

		assert.Equal(t, models.StatusActivated, seeded[0].Status)
		assert.Equal(t, int64(0), seeded[0].Balance)
		assert.Equal(t, models.AgentActivationBonus, seeded[1].Balance)
		assert.Equal(t, models.StatusBlocked, seeded[2].Status)
		assert.Equal(t, models.UserActivationBonus, seeded[2].Balance)
	}
}
