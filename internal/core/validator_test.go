package core

import (
	"errors"
	"testing"

	"colonyledger/pkg/domain"
)

func TestValidateCleanSnapshot(t *testing.T) {
	mustNoViolations(t, lionSnapshot())
	mustNoViolations(t, Snapshot{})
}

func TestValidateReportsEachViolationKind(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snapshot)
		kind   domain.ViolationKind
		entity EntityType
		id     string
	}{
		{
			name:   "orphan species",
			mutate: func(s *Snapshot) { s.Species[0].ProjectID = "missing" },
			kind:   domain.ViolationOrphanSpecies,
			entity: EntitySpecies,
			id:     "S1",
		},
		{
			name:   "orphan individual",
			mutate: func(s *Snapshot) { s.Individuals[2].SpeciesID = "gone" },
			kind:   domain.ViolationOrphanIndividual,
			entity: EntityIndividual,
			id:     "I3",
		},
		{
			name:   "partition mismatch",
			mutate: func(s *Snapshot) { s.Individuals[0].ProjectID = "B" },
			kind:   domain.ViolationPartitionMismatch,
			entity: EntityIndividual,
			id:     "I1",
		},
		{
			name:   "duplicate individual id",
			mutate: func(s *Snapshot) { s.Individuals = append(s.Individuals, individual("I1", "A", "S1")) },
			kind:   domain.ViolationDuplicateID,
			entity: EntityIndividual,
			id:     "I1",
		},
		{
			name:   "duplicate project id",
			mutate: func(s *Snapshot) { s.Projects = append(s.Projects, project("B")) },
			kind:   domain.ViolationDuplicateID,
			entity: EntityProject,
			id:     "B",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := lionSnapshot()
			tc.mutate(&snap)
			violations := Validate(snap)
			if len(violations) != 1 {
				t.Fatalf("expected exactly one violation, got %v", violations)
			}
			v := violations[0]
			if v.Kind != tc.kind || v.Entity != tc.entity || v.EntityID != tc.id {
				t.Fatalf("unexpected violation %+v", v)
			}
			if v.Message == "" {
				t.Fatalf("expected message")
			}
		})
	}
}

func TestValidateOrphanIndividualSkipsMismatchCheck(t *testing.T) {
	snap := lionSnapshot()
	snap.Individuals[0].SpeciesID = "gone"
	snap.Individuals[0].ProjectID = "B"
	violations := Validate(snap)
	if len(violations) != 1 || violations[0].Kind != domain.ViolationOrphanIndividual {
		t.Fatalf("expected single orphan violation, got %v", violations)
	}
}

func TestCheckIntegrityWrapsViolations(t *testing.T) {
	snap := lionSnapshot()
	snap.Species[1].ProjectID = "nowhere"
	err := checkIntegrity("op", snap)
	if !errors.Is(err, domain.ErrIntegrityFault) {
		t.Fatalf("expected integrity fault, got %v", err)
	}
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected *EngineError, got %T", err)
	}
	if len(engineErr.Violations) != 1 || engineErr.IDs[0] != "S3" {
		t.Fatalf("unexpected detail: %+v", engineErr)
	}
	if checkIntegrity("op", lionSnapshot()) != nil {
		t.Fatalf("expected nil for clean snapshot")
	}
}
