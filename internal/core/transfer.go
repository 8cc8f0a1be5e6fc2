package core

import (
	"fmt"
	"time"

	"colonyledger/pkg/domain"
)

const (
	opGroupTransfer     = "group_transfer"
	opSelectiveTransfer = "selective_transfer"
)

// maxIDAttempts bounds retries when a generated id is empty or already taken.
const maxIDAttempts = 8

// EngineOption customises TransferEngine and DeletionResolver construction.
type EngineOption func(*engineConfig)

type engineConfig struct {
	now func() time.Time
}

// WithEngineClock overrides the clock used to stamp UpdatedAt/CreatedAt on
// relocated and cloned records.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(c *engineConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func newEngineConfig(opts []EngineOption) engineConfig {
	cfg := engineConfig{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// GroupTransferRequest relocates whole species, with their individuals, verbatim.
type GroupTransferRequest struct {
	SourceProjectID string   `json:"source_project_id"`
	TargetProjectID string   `json:"target_project_id"`
	SpeciesIDs      []string `json:"species_ids"`
}

// SelectiveTransferRequest relocates hand-picked individuals, merging into
// matching target species by scientific name.
type SelectiveTransferRequest struct {
	SourceProjectID string   `json:"source_project_id"`
	TargetProjectID string   `json:"target_project_id"`
	IndividualIDs   []string `json:"individual_ids"`
}

// SpeciesMapping records where one source species' selected individuals landed.
type SpeciesMapping struct {
	SourceSpeciesID string   `json:"source_species_id"`
	TargetSpeciesID string   `json:"target_species_id"`
	Cloned          bool     `json:"cloned"`
	IndividualIDs   []string `json:"individual_ids"`
}

// TransferResult is the outcome of a transfer. Snapshot is a new value; the
// input snapshot is never modified.
type TransferResult struct {
	Snapshot           Snapshot         `json:"-"`
	SpeciesMoved       int              `json:"species_moved"`
	IndividualsMoved   int              `json:"individuals_moved"`
	MovedSpeciesIDs    []string         `json:"moved_species_ids,omitempty"`
	MovedIndividualIDs []string         `json:"moved_individual_ids,omitempty"`
	Mappings           []SpeciesMapping `json:"mappings,omitempty"`
	Skipped            []string         `json:"skipped,omitempty"`
}

// ClonedSpeciesIDs lists target species created by dedup-miss clones.
func (r TransferResult) ClonedSpeciesIDs() []string {
	var out []string
	for _, m := range r.Mappings {
		if m.Cloned {
			out = append(out, m.TargetSpeciesID)
		}
	}
	return out
}

// TransferEngine moves species and individuals between projects. It holds no
// state between calls besides its id generator and clock.
type TransferEngine struct {
	ids IDGenerator
	cfg engineConfig
}

// NewTransferEngine constructs an engine using ids for dedup-miss clones.
// A nil generator falls back to UUIDGenerator.
func NewTransferEngine(ids IDGenerator, opts ...EngineOption) *TransferEngine {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &TransferEngine{ids: ids, cfg: newEngineConfig(opts)}
}

// GroupTransfer moves every selected species owned by the source project, and
// every individual referencing one of them, to the target project. Ids that do
// not resolve to a species in the source project are skipped and reported in
// Skipped. No deduplication is attempted.
func (e *TransferEngine) GroupTransfer(snapshot Snapshot, req GroupTransferRequest) (TransferResult, error) {
	ids := uniqueIDs(req.SpeciesIDs)
	if err := checkTransfer(opGroupTransfer, snapshot, req.SourceProjectID, req.TargetProjectID, len(ids)); err != nil {
		return TransferResult{}, err
	}

	out := snapshot.Clone()
	now := e.cfg.now()
	selected := idSet(ids)
	moved := make(map[string]struct{}, len(ids))
	var res TransferResult

	for i := range out.Species {
		species := &out.Species[i]
		if _, ok := selected[species.ID]; !ok || species.ProjectID != req.SourceProjectID {
			continue
		}
		if _, dup := moved[species.ID]; dup {
			continue
		}
		species.ProjectID = req.TargetProjectID
		species.UpdatedAt = now
		moved[species.ID] = struct{}{}
		res.MovedSpeciesIDs = append(res.MovedSpeciesIDs, species.ID)
	}
	for _, id := range ids {
		if _, ok := moved[id]; !ok {
			res.Skipped = append(res.Skipped, id)
		}
	}

	for i := range out.Individuals {
		individual := &out.Individuals[i]
		if _, ok := moved[individual.SpeciesID]; !ok {
			continue
		}
		individual.ProjectID = req.TargetProjectID
		individual.UpdatedAt = now
		res.MovedIndividualIDs = append(res.MovedIndividualIDs, individual.ID)
	}

	if err := checkIntegrity(opGroupTransfer, out); err != nil {
		return TransferResult{}, err
	}
	res.Snapshot = out
	res.SpeciesMoved = len(res.MovedSpeciesIDs)
	res.IndividualsMoved = len(res.MovedIndividualIDs)
	return res, nil
}

type individualGroup struct {
	sourceSpeciesID string
	members         []int
}

// SelectiveTransfer moves the selected individuals of the source project to
// the target project. Individuals are grouped by species; each group joins the
// first target species (in snapshot order) whose scientific name matches
// exactly, or a fresh clone of its source species when none matches. Source
// species are left in place even when no individuals remain.
//
// When the target already holds several species with the same scientific
// name, the first one in snapshot order wins. That ambiguity is pre-existing
// data and is not repaired here.
func (e *TransferEngine) SelectiveTransfer(snapshot Snapshot, req SelectiveTransferRequest) (TransferResult, error) {
	ids := uniqueIDs(req.IndividualIDs)
	if err := checkTransfer(opSelectiveTransfer, snapshot, req.SourceProjectID, req.TargetProjectID, len(ids)); err != nil {
		return TransferResult{}, err
	}

	out := snapshot.Clone()
	now := e.cfg.now()
	selected := idSet(ids)
	resolved := make(map[string]struct{}, len(ids))
	var groups []*individualGroup
	bySpecies := make(map[string]*individualGroup)

	for i, individual := range out.Individuals {
		if _, ok := selected[individual.ID]; !ok {
			continue
		}
		if _, dup := resolved[individual.ID]; dup || individual.ProjectID != req.SourceProjectID {
			continue
		}
		resolved[individual.ID] = struct{}{}
		g, ok := bySpecies[individual.SpeciesID]
		if !ok {
			g = &individualGroup{sourceSpeciesID: individual.SpeciesID}
			bySpecies[individual.SpeciesID] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, i)
	}

	var res TransferResult
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			res.Skipped = append(res.Skipped, id)
		}
	}

	takenSpeciesIDs := make(map[string]struct{}, len(out.Species))
	for _, species := range out.Species {
		takenSpeciesIDs[species.ID] = struct{}{}
	}

	for _, g := range groups {
		source, ok := out.FindSpecies(g.sourceSpeciesID)
		if !ok {
			// Orphaned individuals cannot be matched by name; the post-condition reports them.
			for _, idx := range g.members {
				res.Skipped = append(res.Skipped, out.Individuals[idx].ID)
			}
			continue
		}

		mapping := SpeciesMapping{SourceSpeciesID: source.ID}
		if target, found := findByScientificName(out.Species, req.TargetProjectID, source.ScientificName); found {
			mapping.TargetSpeciesID = target.ID
		} else {
			id, err := e.allocateID(takenSpeciesIDs)
			if err != nil {
				return TransferResult{}, err
			}
			clone := domain.CloneSpecies(source)
			clone.ID = id
			clone.ProjectID = req.TargetProjectID
			clone.CreatedAt = now
			clone.UpdatedAt = now
			out.Species = append(out.Species, clone)
			takenSpeciesIDs[id] = struct{}{}
			mapping.TargetSpeciesID = id
			mapping.Cloned = true
		}

		for _, idx := range g.members {
			individual := &out.Individuals[idx]
			individual.ProjectID = req.TargetProjectID
			individual.SpeciesID = mapping.TargetSpeciesID
			individual.UpdatedAt = now
			mapping.IndividualIDs = append(mapping.IndividualIDs, individual.ID)
			res.MovedIndividualIDs = append(res.MovedIndividualIDs, individual.ID)
		}
		res.Mappings = append(res.Mappings, mapping)
	}

	if err := checkIntegrity(opSelectiveTransfer, out); err != nil {
		return TransferResult{}, err
	}
	res.Snapshot = out
	res.IndividualsMoved = len(res.MovedIndividualIDs)
	return res, nil
}

func (e *TransferEngine) allocateID(taken map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := e.ids.NewID()
		if id == "" {
			continue
		}
		if _, clash := taken[id]; !clash {
			return id, nil
		}
	}
	err := domain.NewEngineError(domain.KindIntegrityFault, opSelectiveTransfer)
	err.Err = fmt.Errorf("no unique species id after %d attempts", maxIDAttempts)
	return "", err
}

func findByScientificName(species []Species, projectID, name string) (Species, bool) {
	for _, sp := range species {
		if sp.ProjectID == projectID && sp.ScientificName == name {
			return sp, true
		}
	}
	return Species{}, false
}

func checkTransfer(op string, snapshot Snapshot, source, target string, selected int) error {
	if source == target {
		return domain.NewEngineError(domain.KindNoOpTransfer, op, source)
	}
	if selected == 0 {
		return domain.NewEngineError(domain.KindEmptySelection, op)
	}
	if _, ok := snapshot.FindProject(source); !ok {
		return domain.NewEngineError(domain.KindInvalidReference, op, source)
	}
	if _, ok := snapshot.FindProject(target); !ok {
		return domain.NewEngineError(domain.KindInvalidReference, op, target)
	}
	return nil
}

// uniqueIDs drops empty and repeated ids while keeping first-seen order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
