package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colonyledger/internal/infra/persistence/bucket"
	"colonyledger/internal/infra/persistence/postgres/testutil"
	"colonyledger/internal/infra/persistence/repotest"
)

func withStubDB(t *testing.T) *testutil.StubConn {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		assert.Equal(t, defaultDriver, driverName)
		return db, nil
	})
	t.Cleanup(restore)
	return conn
}

func TestPostgresRepositoryContractWithStub(t *testing.T) {
	conn := withStubDB(t)
	repo, store, err := Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repotest.Run(t, repo)

	require.NotEmpty(t, conn.Execs)
	assert.Contains(t, strings.ToUpper(conn.Execs[0]), "CREATE TABLE IF NOT EXISTS COLONYLEDGER_STATE")
	payload, ok := conn.Bucket(bucket.ActivePartition)
	assert.True(t, ok)
	assert.JSONEq(t, `{"project_id":"p-b"}`, payload)
}

func TestNewStoreReportsConnectionFailures(t *testing.T) {
	ctx := context.Background()

	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("bad dsn") })
	_, err := NewStore(ctx, "postgres://x")
	restore()
	require.ErrorContains(t, err, "open postgres")

	// A failed NewStore closes the handle, so each case gets a fresh stub.
	withStubDB(t).FailPing = true
	_, err = NewStore(ctx, "")
	require.ErrorContains(t, err, "ping postgres")

	withStubDB(t).FailExec = true
	_, err = NewStore(ctx, "")
	require.ErrorContains(t, err, "ensure state table")
}

func TestStoreWrapsQueryErrors(t *testing.T) {
	conn := withStubDB(t)
	store, err := NewStore(context.Background(), "")
	require.NoError(t, err)

	conn.FailQuery = true
	_, _, err = store.Get(context.Background(), bucket.Projects)
	require.ErrorContains(t, err, "select projects")

	conn.FailExec = true
	err = store.Put(context.Background(), bucket.Projects, []byte(`[]`))
	require.ErrorContains(t, err, "upsert projects")
}

func TestPostgresRepositoryContractLive(t *testing.T) {
	dsn := os.Getenv("COLONYLEDGER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COLONYLEDGER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.DB().ExecContext(ctx, `TRUNCATE colonyledger_state`)
	require.NoError(t, err)

	repotest.Run(t, bucket.New(store))
}
