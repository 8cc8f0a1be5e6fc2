package core

import "colonyledger/pkg/domain"

// Validate reports every hierarchy invariant broken by the snapshot. An empty
// result means projects, species and individuals form a consistent tree.
func Validate(snapshot Snapshot) []Violation {
	var violations []Violation

	projectIndex := make(map[string]struct{}, len(snapshot.Projects))
	for _, project := range snapshot.Projects {
		if _, dup := projectIndex[project.ID]; dup {
			violations = append(violations, domain.DuplicateID(EntityProject, project.ID))
			continue
		}
		projectIndex[project.ID] = struct{}{}
	}

	speciesIndex := make(map[string]Species, len(snapshot.Species))
	for _, species := range snapshot.Species {
		if _, dup := speciesIndex[species.ID]; dup {
			violations = append(violations, domain.DuplicateID(EntitySpecies, species.ID))
			continue
		}
		speciesIndex[species.ID] = species
		if _, ok := projectIndex[species.ProjectID]; !ok {
			violations = append(violations, domain.OrphanSpecies(species.ID, species.ProjectID))
		}
	}

	seen := make(map[string]struct{}, len(snapshot.Individuals))
	for _, individual := range snapshot.Individuals {
		if _, dup := seen[individual.ID]; dup {
			violations = append(violations, domain.DuplicateID(EntityIndividual, individual.ID))
			continue
		}
		seen[individual.ID] = struct{}{}

		species, ok := speciesIndex[individual.SpeciesID]
		if !ok {
			violations = append(violations, domain.OrphanIndividual(individual.ID, individual.SpeciesID))
			continue
		}
		if individual.ProjectID != species.ProjectID {
			violations = append(violations, domain.PartitionMismatch(individual.ID, individual.ProjectID, species.ProjectID))
		}
	}

	return violations
}

// checkIntegrity runs Validate as a post-condition and converts violations
// into an IntegrityFault for op.
func checkIntegrity(op string, snapshot Snapshot) error {
	violations := Validate(snapshot)
	if len(violations) == 0 {
		return nil
	}
	ids := make([]string, 0, len(violations))
	for _, v := range violations {
		ids = append(ids, v.EntityID)
	}
	err := domain.NewEngineError(domain.KindIntegrityFault, op, ids...)
	err.Violations = violations
	return err
}
