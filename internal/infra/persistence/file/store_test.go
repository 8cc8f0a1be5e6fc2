package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colonyledger/internal/infra/persistence/bucket"
	"colonyledger/internal/infra/persistence/repotest"
)

func TestFileRepositoryContract(t *testing.T) {
	repo, _, err := Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	repotest.Run(t, repo)
}

func TestFileStoreWritesOneFilePerBucket(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, bucket.Projects, []byte(`[]`)))
	require.NoError(t, store.Put(ctx, bucket.Projects, []byte(`[{"id":"p"}]`)))

	data, err := os.ReadFile(filepath.Join(dir, "projects.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p"}]`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, dir, store.Root())
}

func TestFileStoreRejectsUnsafeNames(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", "  ", "../escape", "a/b", `a\b`} {
		err := store.Put(ctx, name, []byte(`[]`))
		assert.Error(t, err, "name %q", name)
	}
	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Put(ctx, bucket.Species, []byte(`[]`)), context.Canceled)
	_, _, err = store.Get(ctx, bucket.Species)
	assert.ErrorIs(t, err, context.Canceled)
}
