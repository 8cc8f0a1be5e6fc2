// Package file persists repository buckets as JSON files in a local directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"colonyledger/internal/infra/persistence/bucket"
)

// Compile-time contract assertion.
var _ bucket.Backend = (*Store)(nil)

const defaultDir = "./colonyledger-data"

// Store maps each bucket to <root>/<bucket>.json. Writes go through a temp
// file and a rename so a crash never leaves a half-written collection.
// It is not safe for concurrent writers in separate processes.
type Store struct {
	root string
}

// New returns a filesystem backend rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Open returns a repository persisting to dir.
func Open(dir string) (*bucket.Repository, *Store, error) {
	store, err := New(dir)
	if err != nil {
		return nil, nil, err
	}
	return bucket.New(store), store, nil
}

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

func (s *Store) pathFor(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty bucket name")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid bucket name %q", name)
	}
	return filepath.Join(s.root, name+".json"), nil
}

// Get implements bucket.Backend.
func (s *Store) Get(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path, err := s.pathFor(name)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

// Put implements bucket.Backend.
func (s *Store) Put(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
