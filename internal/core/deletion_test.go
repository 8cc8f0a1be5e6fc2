package core

import (
	"errors"
	"reflect"
	"testing"

	"colonyledger/pkg/domain"
)

func TestPlanDeletion(t *testing.T) {
	resolver := NewDeletionResolver()
	plan, err := resolver.Plan("A", lionSnapshot())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := DeletionPlan{ProjectID: "A", DependentSpeciesCount: 2, DependentIndividualCount: 3, SuggestedTarget: "B"}
	if plan != want {
		t.Fatalf("unexpected plan %+v", plan)
	}

	single := Snapshot{Projects: []Project{project("solo")}}
	plan, err = resolver.Plan("solo", single)
	if err != nil {
		t.Fatalf("plan single: %v", err)
	}
	if !plan.IsLastProject || plan.SuggestedTarget != "" {
		t.Fatalf("expected last-project plan, got %+v", plan)
	}

	if _, err := resolver.Plan("nope", lionSnapshot()); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected invalid reference, got %v", err)
	}
}

func TestPurgeRemovesDependents(t *testing.T) {
	resolver := NewDeletionResolver(WithEngineClock(fixedClock))
	snap := lionSnapshot()
	before := snap.Clone()

	res, err := resolver.Execute(DeletionRequest{ProjectID: "A", Mode: Purge(), ActivePartitionID: "A"}, snap)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	assertUnchanged(t, before, snap)
	mustNoViolations(t, res.Snapshot)

	if _, ok := res.Snapshot.FindProject("A"); ok {
		t.Fatalf("project A still present")
	}
	for _, sp := range res.Snapshot.Species {
		if sp.ProjectID == "A" {
			t.Fatalf("species %s still references A", sp.ID)
		}
	}
	if !reflect.DeepEqual(res.RemovedSpeciesIDs, []string{"S1", "S3"}) {
		t.Fatalf("unexpected removed species %v", res.RemovedSpeciesIDs)
	}
	if !reflect.DeepEqual(res.RemovedIndividualIDs, []string{"I1", "I2", "I3"}) {
		t.Fatalf("unexpected removed individuals %v", res.RemovedIndividualIDs)
	}
	if len(res.Snapshot.Species) != 1 || len(res.Snapshot.Individuals) != 1 {
		t.Fatalf("records outside A should survive: %+v", res.Snapshot)
	}
	if res.NewActivePartitionID != "B" || !res.ActiveChanged {
		t.Fatalf("expected active pointer to move to B, got %+v", res)
	}
}

func TestPurgeRemovesIndividualsReferencingPurgedSpecies(t *testing.T) {
	resolver := NewDeletionResolver()
	snap := lionSnapshot()
	// Mismatched individual: lives in C but its species is in A.
	snap.Individuals = append(snap.Individuals, individual("I9", "C", "S3"))
	res, err := resolver.Execute(DeletionRequest{ProjectID: "A", Mode: Purge(), ActivePartitionID: "C"}, snap)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	mustNoViolations(t, res.Snapshot)
	if _, ok := res.Snapshot.FindIndividual("I9"); ok {
		t.Fatalf("individual under purged species survived")
	}
	if !reflect.DeepEqual(res.RemovedIndividualIDs, []string{"I1", "I2", "I3", "I9"}) {
		t.Fatalf("unexpected removed individuals %v", res.RemovedIndividualIDs)
	}
}

func TestTransferDeletionReassignsDependents(t *testing.T) {
	resolver := NewDeletionResolver(WithEngineClock(fixedClock))
	snap := lionSnapshot()
	before := snap.Clone()

	res, err := resolver.Execute(DeletionRequest{ProjectID: "A", Mode: TransferTo("C"), ActivePartitionID: "A"}, snap)
	if err != nil {
		t.Fatalf("transfer deletion: %v", err)
	}
	assertUnchanged(t, before, snap)
	mustNoViolations(t, res.Snapshot)

	if res.ReassignedSpecies != 2 || res.ReassignedIndividuals != 3 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Snapshot.Species) != 3 || len(res.Snapshot.Individuals) != 4 {
		t.Fatalf("no records should be removed")
	}
	lions := 0
	for _, sp := range speciesIn(res.Snapshot, "C") {
		if sp.ScientificName == "Panthera leo" {
			lions++
		}
	}
	if lions != 2 {
		t.Fatalf("transfer deletion must not merge duplicates, found %d lions", lions)
	}
	if ind := individualByID(t, res.Snapshot, "I1"); ind.ProjectID != "C" || ind.SpeciesID != "S1" || !ind.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("individual not reassigned: %+v", ind)
	}
	if res.NewActivePartitionID != "C" || !res.ActiveChanged {
		t.Fatalf("unexpected active pointer %q", res.NewActivePartitionID)
	}
}

func TestTransferDeletionMovesActivePointerToTarget(t *testing.T) {
	snap := Snapshot{
		Projects:    []Project{project("A"), project("C"), project("D")},
		Species:     []Species{species("S1", "C", "Panthera leo"), species("S2", "D", "Loxodonta africana")},
		Individuals: []Individual{individual("I1", "C", "S1"), individual("I2", "C", "S1"), individual("I3", "D", "S2")},
	}
	before, _ := snap.CountByProject("D")

	res, err := NewDeletionResolver().Execute(DeletionRequest{ProjectID: "C", Mode: TransferTo("D"), ActivePartitionID: "C"}, snap)
	if err != nil {
		t.Fatalf("transfer deletion: %v", err)
	}
	if res.NewActivePartitionID != "D" || !res.ActiveChanged {
		t.Fatalf("active pointer should follow the target, got %q", res.NewActivePartitionID)
	}
	spCount, indCount := res.Snapshot.CountByProject("D")
	if spCount != before+1 || indCount != 3 {
		t.Fatalf("unexpected counts under D: species=%d individuals=%d", spCount, indCount)
	}

	purged, err := NewDeletionResolver().Execute(DeletionRequest{ProjectID: "C", Mode: Purge(), ActivePartitionID: "C"}, snap)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged.NewActivePartitionID != "A" {
		t.Fatalf("purge should fall back to the first remaining project, got %q", purged.NewActivePartitionID)
	}
}

func TestDeletionKeepsActivePointerForOtherProjects(t *testing.T) {
	resolver := NewDeletionResolver()
	res, err := resolver.Execute(DeletionRequest{ProjectID: "B", Mode: Purge(), ActivePartitionID: "C"}, lionSnapshot())
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.NewActivePartitionID != "C" || res.ActiveChanged {
		t.Fatalf("active pointer should be untouched: %+v", res)
	}
	if len(res.RemovedSpeciesIDs) != 0 || len(res.RemovedIndividualIDs) != 0 {
		t.Fatalf("empty project purge removed records: %+v", res)
	}
}

func TestDeletionLastProjectGuard(t *testing.T) {
	resolver := NewDeletionResolver()
	snap := Snapshot{
		Projects:    []Project{project("solo")},
		Species:     []Species{species("S1", "solo", "Panthera leo")},
		Individuals: []Individual{individual("I1", "solo", "S1")},
	}
	before := snap.Clone()
	for _, mode := range []DeletionMode{Purge(), TransferTo("elsewhere"), TransferTo("solo")} {
		t.Run(mode.String(), func(t *testing.T) {
			_, err := resolver.Execute(DeletionRequest{ProjectID: "solo", Mode: mode, ActivePartitionID: "solo"}, snap)
			if !errors.Is(err, domain.ErrLastProjectViolation) {
				t.Fatalf("expected last project violation, got %v", err)
			}
			assertUnchanged(t, before, snap)
		})
	}
}

func TestDeletionPreconditions(t *testing.T) {
	resolver := NewDeletionResolver()
	cases := []struct {
		name string
		req  DeletionRequest
	}{
		{"unknown project", DeletionRequest{ProjectID: "Z", Mode: Purge()}},
		{"unknown target", DeletionRequest{ProjectID: "A", Mode: TransferTo("Z")}},
		{"target is self", DeletionRequest{ProjectID: "A", Mode: TransferTo("A")}},
		{"unknown mode", DeletionRequest{ProjectID: "A", Mode: DeletionMode{Kind: "archive"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := lionSnapshot()
			before := snap.Clone()
			_, err := resolver.Execute(tc.req, snap)
			if !errors.Is(err, domain.ErrInvalidReference) {
				t.Fatalf("expected invalid reference, got %v", err)
			}
			assertUnchanged(t, before, snap)
		})
	}
}

func TestDeletionModeString(t *testing.T) {
	if Purge().String() != "purge" {
		t.Fatalf("unexpected %s", Purge())
	}
	if TransferTo("B").String() != "transfer_to(B)" {
		t.Fatalf("unexpected %s", TransferTo("B"))
	}
}
