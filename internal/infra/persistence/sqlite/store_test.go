package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colonyledger/internal/infra/persistence/bucket"
	"colonyledger/internal/infra/persistence/repotest"
)

func TestSQLiteRepositoryContract(t *testing.T) {
	repo, store, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repotest.Run(t, repo)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()

	repo, store, err := Open(path)
	require.NoError(t, err)
	fixture := repotest.Fixture()
	require.NoError(t, repo.SaveProjects(ctx, fixture.Projects))
	require.NoError(t, repo.SetActivePartition(ctx, "p-b"))
	require.NoError(t, store.Close())

	reopened, store2, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store2.Close() })

	projects, err := reopened.LoadProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
	active, err := reopened.ActivePartition(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p-b", active)
	assert.Equal(t, path, store2.Path())
}

func TestSQLiteStoreUpsertsBuckets(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	_, ok, err := store.Get(ctx, bucket.Species)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, bucket.Species, []byte(`[1]`)))
	require.NoError(t, store.Put(ctx, bucket.Species, []byte(`[2]`)))

	payload, ok, err := store.Get(ctx, bucket.Species)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[2]`, string(payload))

	var rows int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&rows))
	assert.Equal(t, 1, rows)
}
