package core

import (
	"reflect"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func project(id string) Project {
	return Project{Base: Base{ID: id}, Name: "Project " + id}
}

func species(id, projectID, scientificName string) Species {
	return Species{
		Base:           Base{ID: id},
		ProjectID:      projectID,
		ScientificName: scientificName,
		CommonName:     "common " + scientificName,
		Attributes:     map[string]any{"habitat": "savanna", "tags": []any{"a", "b"}},
	}
}

func individual(id, projectID, speciesID string) Individual {
	return Individual{Base: Base{ID: id}, ProjectID: projectID, SpeciesID: speciesID, Name: "ind " + id}
}

// lionSnapshot is the canonical fixture: S1 "Panthera leo" in A with I1, I2;
// S3 "Loxodonta africana" in A with I3; B empty; C holds S4/I4.
func lionSnapshot() Snapshot {
	return Snapshot{
		Projects: []Project{project("A"), project("B"), project("C")},
		Species: []Species{
			species("S1", "A", "Panthera leo"),
			species("S3", "A", "Loxodonta africana"),
			species("S4", "C", "Panthera leo"),
		},
		Individuals: []Individual{
			individual("I1", "A", "S1"),
			individual("I2", "A", "S1"),
			individual("I3", "A", "S3"),
			individual("I4", "C", "S4"),
		},
	}
}

func mustNoViolations(t *testing.T, snapshot Snapshot) {
	t.Helper()
	if v := Validate(snapshot); len(v) != 0 {
		t.Fatalf("expected no violations, got %v", v)
	}
}

func assertUnchanged(t *testing.T, before, after Snapshot) {
	t.Helper()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("input snapshot was modified:\nbefore=%+v\nafter=%+v", before, after)
	}
}

func speciesByID(t *testing.T, snapshot Snapshot, id string) Species {
	t.Helper()
	sp, ok := snapshot.FindSpecies(id)
	if !ok {
		t.Fatalf("species %s not found", id)
	}
	return sp
}

func individualByID(t *testing.T, snapshot Snapshot, id string) Individual {
	t.Helper()
	ind, ok := snapshot.FindIndividual(id)
	if !ok {
		t.Fatalf("individual %s not found", id)
	}
	return ind
}

func speciesIn(snapshot Snapshot, projectID string) []Species {
	var out []Species
	for _, sp := range snapshot.Species {
		if sp.ProjectID == projectID {
			out = append(out, sp)
		}
	}
	return out
}

// stubGenerator returns ids in order, then repeats the last one.
type stubGenerator struct {
	ids   []string
	calls int
}

func (g *stubGenerator) NewID() string {
	g.calls++
	if len(g.ids) == 0 {
		return ""
	}
	id := g.ids[0]
	if len(g.ids) > 1 {
		g.ids = g.ids[1:]
	}
	return id
}
