package domain

import "context"

// Repository is the bulk load/save contract the engine's callers persist
// through. Every Save replaces the full collection; there are no field-level
// patches. The persisted representation is owned by the implementation.
type Repository interface {
	LoadProjects(ctx context.Context) ([]Project, error)
	SaveProjects(ctx context.Context, projects []Project) error
	LoadSpecies(ctx context.Context) ([]Species, error)
	SaveSpecies(ctx context.Context, species []Species) error
	LoadIndividuals(ctx context.Context) ([]Individual, error)
	SaveIndividuals(ctx context.Context, individuals []Individual) error
	ActivePartition(ctx context.Context) (string, error)
	SetActivePartition(ctx context.Context, projectID string) error
}

// IDGenerator produces unique string identifiers for newly created records.
type IDGenerator interface {
	NewID() string
}

// LoadSnapshot reads all three collections from repo.
func LoadSnapshot(ctx context.Context, repo Repository) (Snapshot, error) {
	projects, err := repo.LoadProjects(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	species, err := repo.LoadSpecies(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	individuals, err := repo.LoadIndividuals(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Projects: projects, Species: species, Individuals: individuals}, nil
}
