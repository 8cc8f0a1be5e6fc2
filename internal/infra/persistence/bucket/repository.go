// Package bucket implements domain.Repository on top of any backend able to
// store named JSON payloads. Each collection lives in its own bucket and is
// replaced wholesale on save.
package bucket

import (
	"context"
	"encoding/json"
	"fmt"

	"colonyledger/pkg/domain"
)

// Bucket names shared by every backend.
const (
	Projects        = "projects"
	Species         = "species"
	Individuals     = "individuals"
	ActivePartition = "active_partition"
)

// Backend stores opaque payloads by bucket name. Get reports ok=false when the
// bucket has never been written.
type Backend interface {
	Get(ctx context.Context, bucket string) (payload []byte, ok bool, err error)
	Put(ctx context.Context, bucket string, payload []byte) error
}

// Compile-time contract assertion.
var _ domain.Repository = (*Repository)(nil)

// Repository adapts a Backend to domain.Repository.
type Repository struct {
	backend Backend
}

// New wraps backend.
func New(backend Backend) *Repository {
	return &Repository{backend: backend}
}

type activeRecord struct {
	ProjectID string `json:"project_id"`
}

func (r *Repository) LoadProjects(ctx context.Context) ([]domain.Project, error) {
	return load[domain.Project](ctx, r.backend, Projects)
}

func (r *Repository) SaveProjects(ctx context.Context, projects []domain.Project) error {
	return save(ctx, r.backend, Projects, projects)
}

func (r *Repository) LoadSpecies(ctx context.Context) ([]domain.Species, error) {
	return load[domain.Species](ctx, r.backend, Species)
}

func (r *Repository) SaveSpecies(ctx context.Context, species []domain.Species) error {
	return save(ctx, r.backend, Species, species)
}

func (r *Repository) LoadIndividuals(ctx context.Context) ([]domain.Individual, error) {
	return load[domain.Individual](ctx, r.backend, Individuals)
}

func (r *Repository) SaveIndividuals(ctx context.Context, individuals []domain.Individual) error {
	return save(ctx, r.backend, Individuals, individuals)
}

func (r *Repository) ActivePartition(ctx context.Context) (string, error) {
	data, ok, err := r.backend.Get(ctx, ActivePartition)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", ActivePartition, err)
	}
	if !ok {
		return "", nil
	}
	var rec activeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("decode %s: %w", ActivePartition, err)
	}
	return rec.ProjectID, nil
}

func (r *Repository) SetActivePartition(ctx context.Context, projectID string) error {
	data, err := json.Marshal(activeRecord{ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("encode %s: %w", ActivePartition, err)
	}
	if err := r.backend.Put(ctx, ActivePartition, data); err != nil {
		return fmt.Errorf("store %s: %w", ActivePartition, err)
	}
	return nil
}

func load[T any](ctx context.Context, backend Backend, bucket string) ([]T, error) {
	data, ok, err := backend.Get(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", bucket, err)
	}
	out := []T{}
	if !ok || len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", bucket, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func save[T any](ctx context.Context, backend Backend, bucket string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", bucket, err)
	}
	if err := backend.Put(ctx, bucket, data); err != nil {
		return fmt.Errorf("store %s: %w", bucket, err)
	}
	return nil
}
