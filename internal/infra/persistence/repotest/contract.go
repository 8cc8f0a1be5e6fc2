// Package repotest holds the behavioural contract every domain.Repository
// implementation must satisfy.
package repotest

import (
	"context"
	"reflect"
	"testing"
	"time"

	"colonyledger/pkg/domain"
)

// Fixture returns a small valid snapshot with attributes and timestamps set.
func Fixture() domain.Snapshot {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	return domain.Snapshot{
		Projects: []domain.Project{
			{Base: domain.Base{ID: "p-a", CreatedAt: ts, UpdatedAt: ts}, Name: "Savanna", Description: "field site"},
			{Base: domain.Base{ID: "p-b", CreatedAt: ts, UpdatedAt: ts}, Name: "Delta"},
		},
		Species: []domain.Species{
			{
				Base:               domain.Base{ID: "s-1", CreatedAt: ts, UpdatedAt: ts},
				ProjectID:          "p-a",
				ScientificName:     "Panthera leo",
				CommonName:         "Lion",
				ConservationStatus: "VU",
				Attributes:         map[string]any{"diet": "carnivore", "range_km": float64(120)},
			},
		},
		Individuals: []domain.Individual{
			{Base: domain.Base{ID: "i-1", CreatedAt: ts, UpdatedAt: ts}, ProjectID: "p-a", SpeciesID: "s-1", Name: "Asha", Sex: "F"},
		},
	}
}

// Run exercises repo, which must start empty.
func Run(t *testing.T, repo domain.Repository) {
	t.Helper()
	ctx := context.Background()

	empty, err := domain.LoadSnapshot(ctx, repo)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(empty.Projects) != 0 || len(empty.Species) != 0 || len(empty.Individuals) != 0 {
		t.Fatalf("expected empty repository, got %+v", empty)
	}
	active, err := repo.ActivePartition(ctx)
	if err != nil || active != "" {
		t.Fatalf("expected no active partition, got %q (%v)", active, err)
	}

	want := Fixture()
	if err := repo.SaveProjects(ctx, want.Projects); err != nil {
		t.Fatalf("save projects: %v", err)
	}
	if err := repo.SaveSpecies(ctx, want.Species); err != nil {
		t.Fatalf("save species: %v", err)
	}
	if err := repo.SaveIndividuals(ctx, want.Individuals); err != nil {
		t.Fatalf("save individuals: %v", err)
	}
	if err := repo.SetActivePartition(ctx, "p-b"); err != nil {
		t.Fatalf("set active: %v", err)
	}

	got, err := domain.LoadSnapshot(ctx, repo)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
	if active, _ := repo.ActivePartition(ctx); active != "p-b" {
		t.Fatalf("expected active p-b, got %q", active)
	}

	// Saves replace the whole collection.
	if err := repo.SaveProjects(ctx, want.Projects[:1]); err != nil {
		t.Fatalf("replace projects: %v", err)
	}
	if err := repo.SaveIndividuals(ctx, nil); err != nil {
		t.Fatalf("clear individuals: %v", err)
	}
	projects, err := repo.LoadProjects(ctx)
	if err != nil || len(projects) != 1 || projects[0].ID != "p-a" {
		t.Fatalf("expected single project after replace, got %+v (%v)", projects, err)
	}
	individuals, err := repo.LoadIndividuals(ctx)
	if err != nil || len(individuals) != 0 {
		t.Fatalf("expected no individuals, got %+v (%v)", individuals, err)
	}

	// Loaded values are copies.
	species, _ := repo.LoadSpecies(ctx)
	species[0].Attributes["diet"] = "herbivore"
	species[0].ScientificName = "mutated"
	reloaded, _ := repo.LoadSpecies(ctx)
	if reloaded[0].ScientificName != "Panthera leo" || reloaded[0].Attributes["diet"] != "carnivore" {
		t.Fatalf("repository shares state with callers: %+v", reloaded[0])
	}
}
