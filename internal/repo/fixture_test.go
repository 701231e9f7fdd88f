package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carpool/internal/repo"
	"github.com/pkordes/carpool/testutil"
)

// newTestTx opens a transaction against the test database. The transaction
// is rolled back when the test finishes, giving free per-test isolation.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}

// newTestRepos returns every repository bound to one rolled-back transaction.
func newTestRepos(t *testing.T) (repo.Repos, pgx.Tx) {
	t.Helper()
	tx := newTestTx(t)
	return repo.NewRepos(tx), tx
}

// world holds the externally-owned rows most tests need.
type world struct {
	group    uuid.UUID
	van      uuid.UUID // capacity 3
	sedan    uuid.UUID // capacity 1
	driver   uuid.UUID
	alice    uuid.UUID
	bob      uuid.UUID
	startsAt time.Time
}

func seedWorld(t *testing.T, q testutil.Querier) world {
	t.Helper()
	g := testutil.SeedGroup(t, q, "Maple Street")
	return world{
		group:    g,
		van:      testutil.SeedVehicle(t, q, g, "Van", 3),
		sedan:    testutil.SeedVehicle(t, q, g, "Sedan", 1),
		driver:   testutil.SeedDriver(t, q, "Dana"),
		alice:    testutil.SeedChild(t, q, g, "Alice"),
		bob:      testutil.SeedChild(t, q, g, "Bob"),
		startsAt: time.Date(2025, 6, 23, 6, 0, 0, 0, time.UTC),
	}
}
