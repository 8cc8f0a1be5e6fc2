package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEngineErrorMatchesSentinelByKind(t *testing.T) {
	cases := map[ErrorKind]error{
		KindNoOpTransfer:         ErrNoOpTransfer,
		KindEmptySelection:       ErrEmptySelection,
		KindInvalidReference:     ErrInvalidReference,
		KindLastProjectViolation: ErrLastProjectViolation,
		KindIntegrityFault:       ErrIntegrityFault,
	}
	for kind, sentinel := range cases {
		err := fmt.Errorf("wrapped: %w", NewEngineError(kind, "op", "x"))
		if !errors.Is(err, sentinel) {
			t.Errorf("%s: expected match with %v", kind, sentinel)
		}
		if errors.Is(err, ErrPersistenceFailure) {
			t.Errorf("%s: unexpected persistence match", kind)
		}
		got, ok := KindOf(err)
		if !ok || got != kind {
			t.Errorf("KindOf: expected %s, got %s (%v)", kind, got, ok)
		}
	}
}

func TestEngineErrorMessage(t *testing.T) {
	err := NewEngineError(KindIntegrityFault, "execute_deletion", "s-1")
	err.Violations = []Violation{OrphanSpecies("s-1", "p-x")}
	err.Err = errors.New("cause")
	msg := err.Error()
	for _, want := range []string{"execute_deletion", "integrity fault", "[s-1]", "1 violations", "cause"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	if !errors.Is(err, err.Err) {
		t.Errorf("expected Unwrap to expose cause")
	}
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	err := &PersistenceError{Op: "group_transfer", Committed: []string{"species"}, Failed: "individuals", Err: cause}
	if !errors.Is(err, ErrPersistenceFailure) || !errors.Is(err, cause) {
		t.Fatalf("expected sentinel and cause to match")
	}
	if !strings.Contains(err.Error(), "committed: species") || !strings.Contains(err.Error(), "writing individuals") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	kind, ok := KindOf(err)
	if !ok || kind != KindPersistenceFailure {
		t.Fatalf("unexpected kind %s", kind)
	}
	if _, ok := KindOf(errors.New("other")); ok {
		t.Fatalf("plain errors carry no kind")
	}
	none := &PersistenceError{Op: "op", Failed: "species", Err: cause}
	if !strings.Contains(none.Error(), "committed: none") {
		t.Fatalf("unexpected message %q", none.Error())
	}
}

func TestViolationConstructors(t *testing.T) {
	cases := []struct {
		v      Violation
		kind   ViolationKind
		entity EntityType
		id     string
	}{
		{OrphanSpecies("s", "p"), ViolationOrphanSpecies, EntitySpecies, "s"},
		{OrphanIndividual("i", "s"), ViolationOrphanIndividual, EntityIndividual, "i"},
		{PartitionMismatch("i", "p1", "p2"), ViolationPartitionMismatch, EntityIndividual, "i"},
		{DuplicateID(EntityProject, "p"), ViolationDuplicateID, EntityProject, "p"},
	}
	for _, tc := range cases {
		if tc.v.Kind != tc.kind || tc.v.Entity != tc.entity || tc.v.EntityID != tc.id {
			t.Errorf("unexpected violation %+v", tc.v)
		}
		if !strings.HasPrefix(tc.v.String(), string(tc.kind)) {
			t.Errorf("unexpected string %q", tc.v.String())
		}
	}
}
