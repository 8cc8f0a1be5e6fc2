// Package persistence selects a repository backend from configuration.
package persistence

import (
	"context"
	"fmt"

	"colonyledger/internal/config"
	"colonyledger/internal/infra/persistence/file"
	"colonyledger/internal/infra/persistence/memory"
	"colonyledger/internal/infra/persistence/postgres"
	"colonyledger/internal/infra/persistence/s3"
	"colonyledger/internal/infra/persistence/sqlite"
	"colonyledger/pkg/domain"
)

// Open builds the repository named by cfg.Driver. The returned close function
// is never nil.
func Open(ctx context.Context, cfg config.StorageConfig) (domain.Repository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewStore(), noop, nil
	case config.StorageSQLite, "":
		repo, store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return repo, store.Close, nil
	case config.StorageFile:
		repo, _, err := file.Open(cfg.FileDir)
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil
	case config.StoragePostgres:
		repo, store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return repo, store.Close, nil
	case config.StorageS3:
		repo, _, err := s3.Open(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
