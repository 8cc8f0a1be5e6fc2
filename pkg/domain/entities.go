// Package domain defines the partitioned record types, snapshot container,
// error taxonomy and persistence contracts used by colonyledger.
package domain

import "time"

// EntityType identifies the type of record stored in a snapshot.
type EntityType string

// Supported entity type identifiers used in violations, errors and persistence buckets.
const (
	// EntityProject identifies a project (partition) record.
	EntityProject EntityType = "project"
	// EntitySpecies identifies a species record.
	EntitySpecies EntityType = "species"
	// EntityIndividual identifies an individual organism record.
	EntityIndividual EntityType = "individual"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is a named partition scoping species and individual records.
type Project struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Species describes a taxon tracked inside exactly one project.
type Species struct {
	Base
	ProjectID          string         `json:"project_id"`
	ScientificName     string         `json:"scientific_name"`
	CommonName         string         `json:"common_name"`
	Family             string         `json:"family,omitempty"`
	ConservationStatus string         `json:"conservation_status,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	Attributes         map[string]any `json:"attributes,omitempty"`
}

// Individual represents a single organism belonging to one species and,
// transitively, that species' project.
type Individual struct {
	Base
	ProjectID  string         `json:"project_id"`
	SpeciesID  string         `json:"species_id"`
	Name       string         `json:"name"`
	Sex        string         `json:"sex,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Snapshot holds the three record collections in snapshot order. Engine
// operations never mutate a Snapshot they receive; they return a new one.
type Snapshot struct {
	Projects    []Project    `json:"projects"`
	Species     []Species    `json:"species"`
	Individuals []Individual `json:"individuals"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Projects:    make([]Project, len(s.Projects)),
		Species:     make([]Species, len(s.Species)),
		Individuals: make([]Individual, len(s.Individuals)),
	}
	copy(out.Projects, s.Projects)
	for i, sp := range s.Species {
		out.Species[i] = CloneSpecies(sp)
	}
	for i, ind := range s.Individuals {
		out.Individuals[i] = CloneIndividual(ind)
	}
	return out
}

// FindProject retrieves a project by ID.
func (s Snapshot) FindProject(id string) (Project, bool) {
	for _, p := range s.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// FindSpecies retrieves a species by ID.
func (s Snapshot) FindSpecies(id string) (Species, bool) {
	for _, sp := range s.Species {
		if sp.ID == id {
			return CloneSpecies(sp), true
		}
	}
	return Species{}, false
}

// FindIndividual retrieves an individual by ID.
func (s Snapshot) FindIndividual(id string) (Individual, bool) {
	for _, ind := range s.Individuals {
		if ind.ID == id {
			return CloneIndividual(ind), true
		}
	}
	return Individual{}, false
}

// CountByProject returns the number of species and individuals whose
// ProjectID equals projectID.
func (s Snapshot) CountByProject(projectID string) (species, individuals int) {
	for _, sp := range s.Species {
		if sp.ProjectID == projectID {
			species++
		}
	}
	for _, ind := range s.Individuals {
		if ind.ProjectID == projectID {
			individuals++
		}
	}
	return species, individuals
}

// CloneSpecies copies a species including its attribute map.
func CloneSpecies(s Species) Species {
	cp := s
	cp.Attributes = cloneAttributes(s.Attributes)
	return cp
}

// CloneIndividual copies an individual including its attribute map.
func CloneIndividual(i Individual) Individual {
	cp := i
	cp.Attributes = cloneAttributes(i.Attributes)
	return cp
}

func cloneAttributes(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneAttributes(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
