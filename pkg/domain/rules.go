package domain

import "fmt"

// ViolationKind names the hierarchy invariant a record breaks.
type ViolationKind string

// Hierarchy violations reported by the validator.
const (
	// ViolationOrphanSpecies marks a species whose project does not exist.
	ViolationOrphanSpecies ViolationKind = "orphan_species"
	// ViolationOrphanIndividual marks an individual whose species does not exist.
	ViolationOrphanIndividual ViolationKind = "orphan_individual"
	// ViolationPartitionMismatch marks an individual whose project differs from its species' project.
	ViolationPartitionMismatch ViolationKind = "partition_mismatch"
	// ViolationDuplicateID marks an id used more than once within one collection.
	ViolationDuplicateID ViolationKind = "duplicate_id"
)

// Violation reports one broken hierarchy invariant.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	Entity   EntityType    `json:"entity"`
	EntityID string        `json:"entity_id"`
	Message  string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s %s: %s", v.Kind, v.Entity, v.EntityID, v.Message)
}

// OrphanSpecies builds a violation for a species referencing a missing project.
func OrphanSpecies(speciesID, projectID string) Violation {
	return Violation{
		Kind:     ViolationOrphanSpecies,
		Entity:   EntitySpecies,
		EntityID: speciesID,
		Message:  fmt.Sprintf("species %s references missing project %q", speciesID, projectID),
	}
}

// OrphanIndividual builds a violation for an individual referencing a missing species.
func OrphanIndividual(individualID, speciesID string) Violation {
	return Violation{
		Kind:     ViolationOrphanIndividual,
		Entity:   EntityIndividual,
		EntityID: individualID,
		Message:  fmt.Sprintf("individual %s references missing species %q", individualID, speciesID),
	}
}

// PartitionMismatch builds a violation for an individual filed under a different project than its species.
func PartitionMismatch(individualID, individualProject, speciesProject string) Violation {
	return Violation{
		Kind:     ViolationPartitionMismatch,
		Entity:   EntityIndividual,
		EntityID: individualID,
		Message:  fmt.Sprintf("individual %s in project %q but its species is in project %q", individualID, individualProject, speciesProject),
	}
}

// DuplicateID builds a violation for an id appearing more than once in a collection.
func DuplicateID(entity EntityType, id string) Violation {
	return Violation{
		Kind:     ViolationDuplicateID,
		Entity:   entity,
		EntityID: id,
		Message:  fmt.Sprintf("%s id %q is not unique", entity, id),
	}
}
