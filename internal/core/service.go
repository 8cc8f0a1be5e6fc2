package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"colonyledger/pkg/domain"
)

const (
	opImport   = "import"
	opValidate = "validate"
)

// Persistence sub-step names reported in PersistenceError.Committed/Failed.
const (
	StepSpecies         = "species"
	StepIndividuals     = "individuals"
	StepProjects        = "projects"
	StepActivePartition = "active_partition"
)

// Service is the caller of the transfer engine and deletion resolver: it loads
// snapshots from a Repository, runs the pure operation, and writes the result
// back in dependency-safe order. Service serialises its own operations; it
// cannot protect against other writers sharing the same repository.
type Service struct {
	mu       sync.Mutex
	repo     Repository
	ids      IDGenerator
	retired  *retiredIDs
	transfer *TransferEngine
	deletion *DeletionResolver
	logger   Logger
	metrics  MetricsRecorder
	tracer   Tracer
	now      func() time.Time
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the clock used for record timestamps and durations.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the generator used for dedup-miss species clones.
func WithIDGenerator(ids IDGenerator) ServiceOption {
	return func(s *Service) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// NewService constructs a service persisting through repo.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		ids:     UUIDGenerator{},
		retired: newRetiredIDs(),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	clock := WithEngineClock(s.now)
	s.transfer = NewTransferEngine(retiringGenerator{inner: s.ids, retired: s.retired}, clock)
	s.deletion = NewDeletionResolver(clock)
	return s
}

// Repository returns the underlying repository.
func (s *Service) Repository() Repository { return s.repo }

// CallOption adjusts a single service call.
type CallOption func(*callOptions)

type callOptions struct {
	dryRun bool
}

// DryRun computes and returns the result without persisting it.
func DryRun() CallOption {
	return func(o *callOptions) { o.dryRun = true }
}

func resolveCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ProjectSummary pairs a project with its dependent record counts.
type ProjectSummary struct {
	Project     Project `json:"project"`
	Species     int     `json:"species"`
	Individuals int     `json:"individuals"`
	Active      bool    `json:"active"`
}

// Projects lists projects in snapshot order with dependent counts.
func (s *Service) Projects(ctx context.Context) ([]ProjectSummary, error) {
	snapshot, active, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(snapshot.Projects))
	for _, p := range snapshot.Projects {
		species, individuals := snapshot.CountByProject(p.ID)
		out = append(out, ProjectSummary{Project: p, Species: species, Individuals: individuals, Active: p.ID == active})
	}
	return out, nil
}

// Validate reports hierarchy violations in the stored collections.
func (s *Service) Validate(ctx context.Context) ([]Violation, error) {
	var violations []Violation
	err := s.run(ctx, opValidate, func(ctx context.Context) error {
		snapshot, _, err := s.load(ctx)
		if err != nil {
			return err
		}
		violations = Validate(snapshot)
		if len(violations) > 0 {
			s.logger.Warn("stored records violate hierarchy invariants", "violations", len(violations), "first", violations[0].String())
		}
		return nil
	})
	return violations, err
}

// Import replaces all stored collections with snapshot and sets the active
// partition. The snapshot must be free of violations. Ids stored before the
// import but absent from snapshot are retired.
func (s *Service) Import(ctx context.Context, snapshot Snapshot, active string) error {
	return s.run(ctx, opImport, func(ctx context.Context) error {
		if err := checkIntegrity(opImport, snapshot); err != nil {
			s.logFailure(opImport, err)
			return err
		}
		if active != "" {
			if _, ok := snapshot.FindProject(active); !ok {
				return domain.NewEngineError(domain.KindInvalidReference, opImport, active)
			}
		}
		previous, _, err := s.load(ctx)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, opImport, nil, []writeStep{
			s.writeSpecies(snapshot.Species),
			s.writeIndividuals(snapshot.Individuals),
			s.writeProjects(snapshot.Projects),
			s.writeActive(active),
		}); err != nil {
			return err
		}
		s.retired.add(droppedIDs(previous, snapshot)...)
		return nil
	})
}

// droppedIDs lists ids present in before but missing from after.
func droppedIDs(before, after Snapshot) []string {
	kept := make(map[string]struct{}, len(after.Projects)+len(after.Species)+len(after.Individuals))
	for _, p := range after.Projects {
		kept[p.ID] = struct{}{}
	}
	for _, sp := range after.Species {
		kept[sp.ID] = struct{}{}
	}
	for _, ind := range after.Individuals {
		kept[ind.ID] = struct{}{}
	}
	var dropped []string
	add := func(id string) {
		if _, ok := kept[id]; !ok {
			dropped = append(dropped, id)
		}
	}
	for _, p := range before.Projects {
		add(p.ID)
	}
	for _, sp := range before.Species {
		add(sp.ID)
	}
	for _, ind := range before.Individuals {
		add(ind.ID)
	}
	return dropped
}

// GroupTransfer loads the current records, runs TransferEngine.GroupTransfer
// and persists the changed collections (species, then individuals).
func (s *Service) GroupTransfer(ctx context.Context, req GroupTransferRequest, opts ...CallOption) (TransferResult, error) {
	o := resolveCallOptions(opts)
	var res TransferResult
	err := s.run(ctx, opGroupTransfer, func(ctx context.Context) error {
		snapshot, _, err := s.load(ctx)
		if err != nil {
			return err
		}
		res, err = s.transfer.GroupTransfer(snapshot, req)
		if err != nil {
			s.logFailure(opGroupTransfer, err, "source", req.SourceProjectID, "target", req.TargetProjectID, "species_ids", req.SpeciesIDs)
			return err
		}
		s.logger.Info("group transfer computed",
			"source", req.SourceProjectID, "target", req.TargetProjectID,
			"species_moved", res.SpeciesMoved, "individuals_moved", res.IndividualsMoved,
			"skipped", len(res.Skipped), "dry_run", o.dryRun)
		if o.dryRun {
			return nil
		}
		var steps []writeStep
		if res.SpeciesMoved > 0 {
			steps = append(steps, s.writeSpecies(res.Snapshot.Species))
		}
		if res.IndividualsMoved > 0 {
			steps = append(steps, s.writeIndividuals(res.Snapshot.Individuals))
		}
		affected := append(append([]string(nil), res.MovedSpeciesIDs...), res.MovedIndividualIDs...)
		if err := s.persist(ctx, opGroupTransfer, affected, steps); err != nil {
			return err
		}
		s.countRecords(opGroupTransfer, EntitySpecies, res.SpeciesMoved)
		s.countRecords(opGroupTransfer, EntityIndividual, res.IndividualsMoved)
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	return res, nil
}

// SelectiveTransfer loads the current records, runs
// TransferEngine.SelectiveTransfer and persists the changed collections.
func (s *Service) SelectiveTransfer(ctx context.Context, req SelectiveTransferRequest, opts ...CallOption) (TransferResult, error) {
	o := resolveCallOptions(opts)
	var res TransferResult
	err := s.run(ctx, opSelectiveTransfer, func(ctx context.Context) error {
		snapshot, _, err := s.load(ctx)
		if err != nil {
			return err
		}
		res, err = s.transfer.SelectiveTransfer(snapshot, req)
		if err != nil {
			s.logFailure(opSelectiveTransfer, err, "source", req.SourceProjectID, "target", req.TargetProjectID, "individual_ids", req.IndividualIDs)
			return err
		}
		cloned := res.ClonedSpeciesIDs()
		s.logger.Info("selective transfer computed",
			"source", req.SourceProjectID, "target", req.TargetProjectID,
			"individuals_moved", res.IndividualsMoved, "species_cloned", len(cloned),
			"species_reused", len(res.Mappings)-len(cloned), "skipped", len(res.Skipped), "dry_run", o.dryRun)
		if o.dryRun {
			return nil
		}
		var steps []writeStep
		if len(cloned) > 0 {
			steps = append(steps, s.writeSpecies(res.Snapshot.Species))
		}
		if res.IndividualsMoved > 0 {
			steps = append(steps, s.writeIndividuals(res.Snapshot.Individuals))
		}
		affected := append(append([]string(nil), cloned...), res.MovedIndividualIDs...)
		if err := s.persist(ctx, opSelectiveTransfer, affected, steps); err != nil {
			return err
		}
		s.countRecords(opSelectiveTransfer, EntitySpecies, len(cloned))
		s.countRecords(opSelectiveTransfer, EntityIndividual, res.IndividualsMoved)
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	return res, nil
}

// PlanDeletion reports what deleting projectID would affect.
func (s *Service) PlanDeletion(ctx context.Context, projectID string) (DeletionPlan, error) {
	var plan DeletionPlan
	err := s.run(ctx, opPlanDeletion, func(ctx context.Context) error {
		snapshot, _, err := s.load(ctx)
		if err != nil {
			return err
		}
		plan, err = s.deletion.Plan(projectID, snapshot)
		return err
	})
	return plan, err
}

// DeleteProject deletes projectID according to mode, reassigning the stored
// active partition when it pointed at the deleted project. Purge writes
// individuals before species; transfer writes species before individuals.
// Projects and the active pointer are written last in both cases.
func (s *Service) DeleteProject(ctx context.Context, projectID string, mode DeletionMode, opts ...CallOption) (DeletionResult, error) {
	o := resolveCallOptions(opts)
	var res DeletionResult
	err := s.run(ctx, opExecuteDeletion, func(ctx context.Context) error {
		snapshot, active, err := s.load(ctx)
		if err != nil {
			return err
		}
		res, err = s.deletion.Execute(DeletionRequest{ProjectID: projectID, Mode: mode, ActivePartitionID: active}, snapshot)
		if err != nil {
			s.logFailure(opExecuteDeletion, err, "project", projectID, "mode", mode.String())
			return err
		}
		s.logger.Info("project deletion computed",
			"project", projectID, "mode", mode.String(),
			"removed_species", len(res.RemovedSpeciesIDs), "removed_individuals", len(res.RemovedIndividualIDs),
			"reassigned_species", res.ReassignedSpecies, "reassigned_individuals", res.ReassignedIndividuals,
			"active", res.NewActivePartitionID, "dry_run", o.dryRun)
		if o.dryRun {
			return nil
		}

		var steps []writeStep
		if mode.Kind == DeletionPurge {
			if len(res.RemovedIndividualIDs) > 0 {
				steps = append(steps, s.writeIndividuals(res.Snapshot.Individuals))
			}
			if len(res.RemovedSpeciesIDs) > 0 {
				steps = append(steps, s.writeSpecies(res.Snapshot.Species))
			}
		} else {
			if res.ReassignedSpecies > 0 {
				steps = append(steps, s.writeSpecies(res.Snapshot.Species))
			}
			if res.ReassignedIndividuals > 0 {
				steps = append(steps, s.writeIndividuals(res.Snapshot.Individuals))
			}
		}
		steps = append(steps, s.writeProjects(res.Snapshot.Projects))
		if res.ActiveChanged {
			steps = append(steps, s.writeActive(res.NewActivePartitionID))
		}

		affected := append([]string{projectID}, res.RemovedSpeciesIDs...)
		affected = append(affected, res.RemovedIndividualIDs...)
		if err := s.persist(ctx, opExecuteDeletion, affected, steps); err != nil {
			return err
		}
		s.retired.add(projectID)
		s.retired.add(res.RemovedSpeciesIDs...)
		s.retired.add(res.RemovedIndividualIDs...)
		s.countRecords(opExecuteDeletion, EntityProject, 1)
		s.countRecords(opExecuteDeletion, EntitySpecies, len(res.RemovedSpeciesIDs)+res.ReassignedSpecies)
		s.countRecords(opExecuteDeletion, EntityIndividual, len(res.RemovedIndividualIDs)+res.ReassignedIndividuals)
		return nil
	})
	if err != nil {
		return DeletionResult{}, err
	}
	return res, nil
}

func (s *Service) load(ctx context.Context) (Snapshot, string, error) {
	snapshot, err := domain.LoadSnapshot(ctx, s.repo)
	if err != nil {
		return Snapshot{}, "", err
	}
	active, err := s.repo.ActivePartition(ctx)
	if err != nil {
		return Snapshot{}, "", err
	}
	return snapshot, active, nil
}

type writeStep struct {
	name string
	fn   func(ctx context.Context) error
}

func (s *Service) writeSpecies(species []Species) writeStep {
	return writeStep{name: StepSpecies, fn: func(ctx context.Context) error { return s.repo.SaveSpecies(ctx, species) }}
}

func (s *Service) writeIndividuals(individuals []Individual) writeStep {
	return writeStep{name: StepIndividuals, fn: func(ctx context.Context) error { return s.repo.SaveIndividuals(ctx, individuals) }}
}

func (s *Service) writeProjects(projects []Project) writeStep {
	return writeStep{name: StepProjects, fn: func(ctx context.Context) error { return s.repo.SaveProjects(ctx, projects) }}
}

func (s *Service) writeActive(projectID string) writeStep {
	return writeStep{name: StepActivePartition, fn: func(ctx context.Context) error { return s.repo.SetActivePartition(ctx, projectID) }}
}

// persist runs steps in order. A failure after any step has committed cannot
// be rolled back, so the error names what already reached the repository.
func (s *Service) persist(ctx context.Context, op string, affected []string, steps []writeStep) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	committed := make([]string, 0, len(steps))
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			perr := &PersistenceError{Op: op, Committed: committed, Failed: step.name, Err: err}
			s.logger.Error("persistence failure; manual reconciliation may be required",
				"operation", op, "failed_step", step.name, "committed_steps", committed,
				"affected_ids", affected, "error", err)
			return perr
		}
		committed = append(committed, step.name)
		s.logger.Debug("persisted collection", "operation", op, "step", step.name)
	}
	return nil
}

func (s *Service) logFailure(op string, err error, kv ...any) {
	args := append([]any{"operation", op, "error", err}, kv...)
	var engineErr *EngineError
	if errors.As(err, &engineErr) && engineErr.Kind == domain.KindIntegrityFault {
		violations := make([]string, 0, len(engineErr.Violations))
		for _, v := range engineErr.Violations {
			violations = append(violations, v.String())
		}
		args = append(args, "affected_ids", engineErr.IDs, "violations", violations)
		s.logger.Error("integrity fault; result discarded", args...)
		return
	}
	s.logger.Warn("operation rejected", args...)
}

func (s *Service) countRecords(op string, entity EntityType, count int) {
	if counter, ok := s.metrics.(RecordCounter); ok {
		counter.ObserveRecords(op, entity, count)
	}
}

// run serialises fn and wraps it in a span and a metrics observation.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, s.now().Sub(start))
	return err
}
