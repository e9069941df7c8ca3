package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/planmigrate/internal/db"
	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/repository"
	"github.com/google/uuid"
)

// RunOptions selects the phases of one invocation. Phases always execute in
// the order areas, iterations, plans, work items.
type RunOptions struct {
	Areas      bool
	Iterations bool
	Plans      bool
	WorkItems  bool

	// PlanIDs overrides the configured plan allow list when non-empty.
	PlanIDs []int
}

// AllPhases enables every phase.
func AllPhases() RunOptions {
	return RunOptions{Areas: true, Iterations: true, Plans: true, WorkItems: true}
}

func (o RunOptions) empty() bool {
	return !o.Areas && !o.Iterations && !o.Plans && !o.WorkItems
}

// RunResult is the bookkeeping row of a finished run and its summary.
type RunResult struct {
	Run     *domain.Run
	Summary Summary
}

// Phases are the migration services one run drives.
type Phases struct {
	Areas     AreaService
	Plans     MigrationService
	WorkItems WorkItemService
}

// PhaseBuilder acquires the remote sessions of one run and wires the phase
// services to its reporter. release is called once the run is over,
// whatever its outcome.
type PhaseBuilder func(ctx context.Context, opts RunOptions, reporter Reporter) (phases Phases, release func(), err error)

type runService struct {
	runs     repository.RunRepo
	issues   repository.IssueRepo
	uow      db.UnitOfWork
	build    PhaseBuilder
	reporter Reporter
	observer UseCaseObserver
	now      func() time.Time
}

func NewRunService(
	runs repository.RunRepo,
	issues repository.IssueRepo,
	uow db.UnitOfWork,
	build PhaseBuilder,
	reporter Reporter,
	observers ...UseCaseObserver,
) RunService {
	return &runService{
		runs:     runs,
		issues:   issues,
		uow:      uow,
		build:    build,
		reporter: reporterOrNoop(reporter),
		observer: useCaseObserverOrNoop(observers),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run records a run, executes the selected phases and stores the outcome.
// The returned result is non-nil whenever the run row was created, even if a
// phase failed.
func (s *runService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.empty() {
		return nil, errors.New("no migration phase selected")
	}
	run := &domain.Run{ID: uuid.NewString(), StartedAt: s.now(), Status: domain.RunRunning}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}

	rec := NewRecorder()
	runErr := s.execute(ctx, opts, MultiReporter{rec, s.reporter})

	summary := rec.Summary()
	finishErr := s.finish(context.WithoutCancel(ctx), run, summary, runErr)
	result := &RunResult{Run: run, Summary: summary}
	if runErr != nil {
		return result, runErr
	}
	return result, finishErr
}

func (s *runService) execute(ctx context.Context, opts RunOptions, reporter Reporter) error {
	phases, release, err := s.build(ctx, opts, reporter)
	if err != nil {
		return err
	}
	defer release()
	return s.runPhases(ctx, opts, phases)
}

func (s *runService) runPhases(ctx context.Context, opts RunOptions, p Phases) error {
	steps := []struct {
		enabled bool
		name    string
		fn      func(context.Context) error
	}{
		{opts.Areas, "migrate_areas", func(ctx context.Context) error { return p.Areas.MigrateAreas(ctx) }},
		{opts.Iterations, "migrate_iterations", func(ctx context.Context) error { return p.Areas.MigrateIterations(ctx) }},
		{opts.Plans, "migrate_plans", func(ctx context.Context) error { return p.Plans.MigratePlans(ctx) }},
		{opts.WorkItems, "migrate_work_items", func(ctx context.Context) error { return p.WorkItems.MigrateWorkItems(ctx) }},
	}
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if err := s.observe(ctx, step.name, step.fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *runService) observe(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		Duration:  time.Since(start),
		Success:   err == nil,
		Err:       err,
		StartedAt: start,
	})
	return err
}

// finish writes the run row and its issues in one transaction.
func (s *runService) finish(ctx context.Context, run *domain.Run, summary Summary, runErr error) error {
	finished := s.now()
	totals := summary.Totals()
	run.FinishedAt = &finished
	run.Status = domain.RunFinished
	run.Created = totals.Created
	run.Reused = totals.Reused
	run.Skipped = totals.Skipped
	run.Failed = totals.Failed
	if runErr != nil {
		run.Status = domain.RunFailed
		run.Error = runErr.Error()
	}

	issues := make([]domain.Issue, len(summary.Issues))
	for i, is := range summary.Issues {
		is.RunID = run.ID
		issues[i] = is
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteRunRepo(tx).Finish(ctx, run); err != nil {
			return err
		}
		return repository.NewSQLiteIssueRepo(tx).CreateBatch(ctx, issues)
	})
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return nil
}

func (s *runService) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	return s.runs.List(ctx, limit)
}

func (s *runService) Issues(ctx context.Context, runID string) ([]domain.Issue, error) {
	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.issues.ListByRun(ctx, runID)
}
