package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colonyledger/internal/config"
	"colonyledger/internal/infra/persistence/bucket"
	"colonyledger/internal/infra/persistence/memory"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, closeFn, err := Open(ctx, config.StorageConfig{Driver: config.StorageMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, repo)
	assert.NoError(t, closeFn())

	for _, cfg := range []config.StorageConfig{
		{Driver: config.StorageSQLite, SQLitePath: filepath.Join(dir, "a.db")},
		{Driver: "", SQLitePath: filepath.Join(dir, "b.db")},
		{Driver: config.StorageFile, FileDir: filepath.Join(dir, "files")},
	} {
		repo, closeFn, err := Open(ctx, cfg)
		require.NoError(t, err, "driver %q", cfg.Driver)
		assert.IsType(t, &bucket.Repository{}, repo)
		require.NoError(t, repo.SetActivePartition(ctx, "p"))
		assert.NoError(t, closeFn())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	repo, closeFn, err := Open(context.Background(), config.StorageConfig{Driver: "etcd"})
	require.Error(t, err)
	assert.Nil(t, repo)
	assert.NotNil(t, closeFn)
}

func TestOpenS3RequiresBucket(t *testing.T) {
	_, _, err := Open(context.Background(), config.StorageConfig{Driver: config.StorageS3})
	require.Error(t, err)
}
