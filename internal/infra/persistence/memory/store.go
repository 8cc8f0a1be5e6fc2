// Package memory provides an in-memory repository used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"sync"

	"colonyledger/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.Repository = (*Store)(nil)

// Store keeps every collection in memory and copies on the way in and out so
// callers never share backing arrays with the store.
type Store struct {
	mu          sync.RWMutex
	projects    []domain.Project
	species     []domain.Species
	individuals []domain.Individual
	active      string
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreFromSnapshot constructs a store preloaded with snapshot and active.
func NewStoreFromSnapshot(snapshot domain.Snapshot, active string) *Store {
	cp := snapshot.Clone()
	return &Store{
		projects:    cp.Projects,
		species:     cp.Species,
		individuals: cp.Individuals,
		active:      active,
	}
}

// ExportState returns a deep copy of the stored collections.
func (s *Store) ExportState() (domain.Snapshot, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := domain.Snapshot{Projects: s.projects, Species: s.species, Individuals: s.individuals}
	return snap.Clone(), s.active
}

func (s *Store) LoadProjects(ctx context.Context) ([]domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Project(nil), s.projects...), nil
}

func (s *Store) SaveProjects(ctx context.Context, projects []domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.projects = append([]domain.Project(nil), projects...)
	s.mu.Unlock()
	return nil
}

func (s *Store) LoadSpecies(ctx context.Context) ([]domain.Species, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Species, len(s.species))
	for i, sp := range s.species {
		out[i] = domain.CloneSpecies(sp)
	}
	return out, nil
}

func (s *Store) SaveSpecies(ctx context.Context, species []domain.Species) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]domain.Species, len(species))
	for i, sp := range species {
		cp[i] = domain.CloneSpecies(sp)
	}
	s.mu.Lock()
	s.species = cp
	s.mu.Unlock()
	return nil
}

func (s *Store) LoadIndividuals(ctx context.Context) ([]domain.Individual, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Individual, len(s.individuals))
	for i, ind := range s.individuals {
		out[i] = domain.CloneIndividual(ind)
	}
	return out, nil
}

func (s *Store) SaveIndividuals(ctx context.Context, individuals []domain.Individual) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]domain.Individual, len(individuals))
	for i, ind := range individuals {
		cp[i] = domain.CloneIndividual(ind)
	}
	s.mu.Lock()
	s.individuals = cp
	s.mu.Unlock()
	return nil
}

func (s *Store) ActivePartition(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, nil
}

func (s *Store) SetActivePartition(ctx context.Context, projectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.active = projectID
	s.mu.Unlock()
	return nil
}
