package core

import (
	"fmt"

	"colonyledger/pkg/domain"
)

const (
	opPlanDeletion    = "plan_deletion"
	opExecuteDeletion = "execute_deletion"
)

// DeletionKind selects what happens to a deleted project's dependents.
type DeletionKind string

// Deletion modes.
const (
	// DeletionPurge discards every dependent species and individual.
	DeletionPurge DeletionKind = "purge"
	// DeletionTransfer reassigns dependents to another project.
	DeletionTransfer DeletionKind = "transfer"
)

// DeletionMode is Purge() or TransferTo(target).
type DeletionMode struct {
	Kind            DeletionKind `json:"kind"`
	TargetProjectID string       `json:"target_project_id,omitempty"`
}

// Purge returns the mode deleting all dependents with the project.
func Purge() DeletionMode { return DeletionMode{Kind: DeletionPurge} }

// TransferTo returns the mode moving dependents to targetProjectID.
func TransferTo(targetProjectID string) DeletionMode {
	return DeletionMode{Kind: DeletionTransfer, TargetProjectID: targetProjectID}
}

func (m DeletionMode) String() string {
	if m.Kind == DeletionTransfer {
		return fmt.Sprintf("transfer_to(%s)", m.TargetProjectID)
	}
	return string(m.Kind)
}

// DeletionPlan summarises what deleting a project would affect.
// SuggestedTarget is empty when no other project exists.
type DeletionPlan struct {
	ProjectID                string `json:"project_id"`
	DependentSpeciesCount    int    `json:"dependent_species_count"`
	DependentIndividualCount int    `json:"dependent_individual_count"`
	SuggestedTarget          string `json:"suggested_target,omitempty"`
	IsLastProject            bool   `json:"is_last_project"`
}

// DeletionRequest names the project to delete, how, and the caller's current
// active partition.
type DeletionRequest struct {
	ProjectID         string       `json:"project_id"`
	Mode              DeletionMode `json:"mode"`
	ActivePartitionID string       `json:"active_partition_id"`
}

// DeletionResult carries the new snapshot and active partition as one unit.
type DeletionResult struct {
	Snapshot              Snapshot     `json:"-"`
	NewActivePartitionID  string       `json:"new_active_partition_id"`
	ActiveChanged         bool         `json:"active_changed"`
	Mode                  DeletionMode `json:"mode"`
	RemovedSpeciesIDs     []string     `json:"removed_species_ids,omitempty"`
	RemovedIndividualIDs  []string     `json:"removed_individual_ids,omitempty"`
	ReassignedSpecies     int          `json:"reassigned_species"`
	ReassignedIndividuals int          `json:"reassigned_individuals"`
}

// DeletionResolver plans and executes project deletion.
type DeletionResolver struct {
	cfg engineConfig
}

// NewDeletionResolver constructs a resolver.
func NewDeletionResolver(opts ...EngineOption) *DeletionResolver {
	return &DeletionResolver{cfg: newEngineConfig(opts)}
}

// Plan reports the dependents of projectID and the first other project in
// snapshot order as a suggested transfer target.
func (r *DeletionResolver) Plan(projectID string, snapshot Snapshot) (DeletionPlan, error) {
	if _, ok := snapshot.FindProject(projectID); !ok {
		return DeletionPlan{}, domain.NewEngineError(domain.KindInvalidReference, opPlanDeletion, projectID)
	}
	species, individuals := snapshot.CountByProject(projectID)
	plan := DeletionPlan{
		ProjectID:                projectID,
		DependentSpeciesCount:    species,
		DependentIndividualCount: individuals,
	}
	plan.SuggestedTarget = firstOtherProject(snapshot.Projects, projectID)
	plan.IsLastProject = plan.SuggestedTarget == ""
	return plan, nil
}

// Execute deletes req.ProjectID according to req.Mode. Preconditions are
// checked in order: the project exists, it is not the last project, and a
// transfer target exists and differs from the project. When the deleted
// project was active, the first remaining project becomes active.
func (r *DeletionResolver) Execute(req DeletionRequest, snapshot Snapshot) (DeletionResult, error) {
	if _, ok := snapshot.FindProject(req.ProjectID); !ok {
		return DeletionResult{}, domain.NewEngineError(domain.KindInvalidReference, opExecuteDeletion, req.ProjectID)
	}
	if firstOtherProject(snapshot.Projects, req.ProjectID) == "" {
		return DeletionResult{}, domain.NewEngineError(domain.KindLastProjectViolation, opExecuteDeletion, req.ProjectID)
	}
	switch req.Mode.Kind {
	case DeletionPurge:
	case DeletionTransfer:
		target := req.Mode.TargetProjectID
		if target == req.ProjectID {
			return DeletionResult{}, domain.NewEngineError(domain.KindInvalidReference, opExecuteDeletion, target)
		}
		if _, ok := snapshot.FindProject(target); !ok {
			return DeletionResult{}, domain.NewEngineError(domain.KindInvalidReference, opExecuteDeletion, target)
		}
	default:
		err := domain.NewEngineError(domain.KindInvalidReference, opExecuteDeletion, req.ProjectID)
		err.Err = fmt.Errorf("unknown deletion mode %q", req.Mode.Kind)
		return DeletionResult{}, err
	}

	res := DeletionResult{Mode: req.Mode}
	var out Snapshot
	if req.Mode.Kind == DeletionPurge {
		out = purge(snapshot, req.ProjectID, &res)
	} else {
		out = r.reassign(snapshot, req.ProjectID, req.Mode.TargetProjectID, &res)
	}

	projects := make([]Project, 0, len(out.Projects))
	for _, p := range out.Projects {
		if p.ID != req.ProjectID {
			projects = append(projects, p)
		}
	}
	out.Projects = projects

	res.NewActivePartitionID = req.ActivePartitionID
	if req.ActivePartitionID == req.ProjectID {
		res.NewActivePartitionID = projects[0].ID
		if req.Mode.Kind == DeletionTransfer {
			res.NewActivePartitionID = req.Mode.TargetProjectID
		}
		res.ActiveChanged = true
	}

	if err := checkIntegrity(opExecuteDeletion, out); err != nil {
		return DeletionResult{}, err
	}
	res.Snapshot = out
	return res, nil
}

func purge(snapshot Snapshot, projectID string, res *DeletionResult) Snapshot {
	out := Snapshot{
		Projects:    append([]Project(nil), snapshot.Projects...),
		Species:     make([]Species, 0, len(snapshot.Species)),
		Individuals: make([]Individual, 0, len(snapshot.Individuals)),
	}
	removedSpecies := make(map[string]struct{})
	for _, species := range snapshot.Species {
		if species.ProjectID == projectID {
			removedSpecies[species.ID] = struct{}{}
			res.RemovedSpeciesIDs = append(res.RemovedSpeciesIDs, species.ID)
			continue
		}
		out.Species = append(out.Species, domain.CloneSpecies(species))
	}
	for _, individual := range snapshot.Individuals {
		_, viaSpecies := removedSpecies[individual.SpeciesID]
		if individual.ProjectID == projectID || viaSpecies {
			res.RemovedIndividualIDs = append(res.RemovedIndividualIDs, individual.ID)
			continue
		}
		out.Individuals = append(out.Individuals, domain.CloneIndividual(individual))
	}
	return out
}

func (r *DeletionResolver) reassign(snapshot Snapshot, projectID, target string, res *DeletionResult) Snapshot {
	out := snapshot.Clone()
	now := r.cfg.now()
	for i := range out.Species {
		if out.Species[i].ProjectID == projectID {
			out.Species[i].ProjectID = target
			out.Species[i].UpdatedAt = now
			res.ReassignedSpecies++
		}
	}
	for i := range out.Individuals {
		if out.Individuals[i].ProjectID == projectID {
			out.Individuals[i].ProjectID = target
			out.Individuals[i].UpdatedAt = now
			res.ReassignedIndividuals++
		}
	}
	return out
}

func firstOtherProject(projects []Project, projectID string) string {
	for _, p := range projects {
		if p.ID != projectID {
			return p.ID
		}
	}
	return ""
}
