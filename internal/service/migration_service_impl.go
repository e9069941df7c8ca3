package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/relation"
	"github.com/alexanderramin/planmigrate/internal/resolver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type migrationService struct {
	source   SourceReader
	target   PlanWriter
	stores   RelationStores
	reporter Reporter
	tr       Translator
	planIDs  []int
	tracer   trace.Tracer
}

func NewMigrationService(
	source SourceReader,
	target PlanWriter,
	stores RelationStores,
	reporter Reporter,
	settings Settings,
) MigrationService {
	return &migrationService{
		source:   source,
		target:   target,
		stores:   stores,
		reporter: reporterOrNoop(reporter),
		tr:       Translator{Source: settings.SourceProject, Target: settings.TargetProject},
		planIDs:  settings.PlanIDs,
		tracer:   otel.Tracer("github.com/alexanderramin/planmigrate/internal/service"),
	}
}

// MigratePlans migrates every selected source plan. A plan that cannot be
// created is reported and skipped; fatal errors stop the run.
func (s *migrationService) MigratePlans(ctx context.Context) error {
	plans, err := s.source.ListPlans(ctx)
	if err != nil {
		return readFailure("plans", err)
	}
	if len(s.planIDs) > 0 {
		plans = slices.DeleteFunc(plans, func(p domain.Plan) bool {
			return !slices.Contains(s.planIDs, p.ID)
		})
	}
	if err := s.enrichPlans(ctx, plans); err != nil {
		return err
	}

	for i, plan := range plans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.MigratePlan(ctx, plan); err != nil && domain.IsFatal(err) {
			return err
		}
		s.reporter.Progress(ctx, ProgressEvent{Phase: "plans", Done: i + 1, Total: len(plans)})
	}
	return nil
}

// enrichPlans fills in assigned-to from the detail fetch where the plan
// listing did not carry an owner.
func (s *migrationService) enrichPlans(ctx context.Context, plans []domain.Plan) error {
	var ids []int
	for _, p := range plans {
		if p.AssignedTo == "" {
			ids = append(ids, p.ID)
		}
	}
	owners, err := s.owners(ctx, "plan details", ids)
	if err != nil {
		return err
	}
	for i := range plans {
		plans[i].AssignedTo = domain.FirstNonEmpty(plans[i].AssignedTo, owners[plans[i].ID])
	}
	return nil
}

func (s *migrationService) owners(ctx context.Context, op string, ids []int) (map[int]string, error) {
	owners := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return owners, nil
	}
	items, err := s.source.GetWorkItems(ctx, ids)
	if err != nil {
		return nil, readFailure(op, err)
	}
	for _, it := range items {
		owners[it.ID] = it.AssignedTo()
	}
	return owners, nil
}

// MigratePlan migrates one plan with a fresh per-plan relation store and
// pending set.
func (s *migrationService) MigratePlan(ctx context.Context, plan domain.Plan) (err error) {
	ctx, span := s.tracer.Start(ctx, "migrate.plan", trace.WithAttributes(
		attribute.Int("plan.id", plan.ID),
		attribute.String("plan.name", plan.Name),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	global, err := s.stores.Open(ctx, domain.GlobalScope)
	if err != nil {
		return err
	}
	dest, err := s.ensurePlan(ctx, global, plan)
	if err != nil {
		return err
	}

	suites, err := s.source.ListSuites(ctx, plan.ID)
	if err != nil {
		return readFailure(fmt.Sprintf("suites of plan %d", plan.ID), err)
	}
	store, err := s.stores.Open(ctx, plan.ID)
	if err != nil {
		return err
	}

	rootID := plan.RootSuiteID
	if rootID == 0 {
		for _, st := range suites {
			if st.IsRoot() {
				rootID = st.ID
				break
			}
		}
	}
	if rootID != 0 {
		if err := store.Record(ctx, domain.KindSuite, rootID, dest.RootSuiteID); err != nil {
			if !domain.IsFatal(err) {
				s.reporter.EntitySkipped(ctx, SkipEvent{Kind: domain.KindPlan, SourceID: plan.ID, Name: plan.Name, Err: err})
			}
			return err
		}
	}

	if err := s.enrichSuites(ctx, plan.ID, suites); err != nil {
		return err
	}

	run := &planRun{
		svc:      s,
		plan:     plan,
		dest:     dest,
		store:    store,
		resolver: resolver.New(suites, store),
		pending:  resolver.NewPending(suites),
	}
	run.total = run.pending.Len()
	return run.drain(ctx)
}

func (s *migrationService) enrichSuites(ctx context.Context, planID int, suites []domain.Suite) error {
	var ids []int
	for _, st := range suites {
		if !st.IsRoot() && st.AssignedTo == "" {
			ids = append(ids, st.ID)
		}
	}
	owners, err := s.owners(ctx, fmt.Sprintf("suite details of plan %d", planID), ids)
	if err != nil {
		return err
	}
	for i := range suites {
		suites[i].AssignedTo = domain.FirstNonEmpty(suites[i].AssignedTo, owners[suites[i].ID])
	}
	return nil
}

// ensurePlan returns the destination plan for a source plan, creating it
// unless a relation already exists.
func (s *migrationService) ensurePlan(ctx context.Context, global *relation.Store, plan domain.Plan) (domain.DestPlan, error) {
	skip := func(err error) (domain.DestPlan, error) {
		if !domain.IsFatal(err) {
			s.reporter.EntitySkipped(ctx, SkipEvent{Kind: domain.KindPlan, SourceID: plan.ID, Name: plan.Name, Err: err})
		}
		return domain.DestPlan{}, err
	}

	if destID, ok := global.Lookup(domain.KindPlan, plan.ID); ok {
		dest, err := s.target.GetPlan(ctx, destID)
		if err != nil {
			return skip(err)
		}
		s.reporter.EntityReused(ctx, EntityEvent{Kind: domain.KindPlan, SourceID: plan.ID, DestID: dest.ID, Name: plan.Name})
		return dest, nil
	}

	draft := domain.PlanDraft{
		Name:      plan.Name,
		AreaPath:  s.tr.Path(plan.AreaPath),
		Iteration: s.tr.Path(plan.Iteration),
	}
	if plan.AssignedTo != "" {
		draft.Description = domain.AssignedToLine(plan.AssignedTo)
	}
	dest, err := s.target.CreatePlan(ctx, draft)
	if err != nil {
		return skip(err)
	}
	if err := global.Record(ctx, domain.KindPlan, plan.ID, dest.ID); err != nil {
		return skip(err)
	}
	s.reporter.EntityCreated(ctx, EntityEvent{Kind: domain.KindPlan, SourceID: plan.ID, DestID: dest.ID, Name: plan.Name})
	return dest, nil
}

// planRun is the state of one plan's migration. It is discarded afterwards.
type planRun struct {
	svc      *migrationService
	plan     domain.Plan
	dest     domain.DestPlan
	store    *relation.Store
	resolver *resolver.Resolver
	pending  *resolver.Pending
	total    int
}

func (r *planRun) drain(ctx context.Context) error {
	for {
		id, ok := r.pending.Next()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		suite, _ := r.resolver.Suite(id)
		if err := r.migrate(ctx, suite); err != nil {
			return err
		}
	}
}

// migrate handles a suite picked from the pending set. It returns only
// fatal errors.
func (r *planRun) migrate(ctx context.Context, s *domain.Suite) error {
	if dest, ok := r.store.Lookup(domain.KindSuite, s.ID); ok {
		return r.reuse(ctx, s, dest)
	}
	parentDest, err := r.resolver.ParentDestination(ctx, s, r.migrateUnder)
	if err != nil {
		if domain.IsFatal(err) {
			return err
		}
		r.skip(ctx, s, err)
		return nil
	}
	return r.migrateUnder(ctx, s, parentDest)
}

// migrateUnder creates, or adopts by name, the destination suite for s
// below parentDest, then migrates its cases.
func (r *planRun) migrateUnder(ctx context.Context, s *domain.Suite, parentDest int) error {
	if dest, ok := r.store.Lookup(domain.KindSuite, s.ID); ok {
		return r.reuse(ctx, s, dest)
	}

	dest, adopted, err := r.createSuite(ctx, s, parentDest)
	if err == nil {
		err = r.store.Record(ctx, domain.KindSuite, s.ID, dest)
	}
	if err != nil {
		if domain.IsFatal(err) {
			return err
		}
		r.skip(ctx, s, err)
		return nil
	}

	r.pending.Remove(s.ID)
	event := EntityEvent{Kind: domain.KindSuite, Scope: r.plan.ID, SourceID: s.ID, DestID: dest, Name: s.Name}
	if adopted {
		r.svc.reporter.EntityReused(ctx, event)
	} else {
		r.svc.reporter.EntityCreated(ctx, event)
	}
	r.progress(ctx)
	return r.migrateCases(ctx, s, dest)
}

func (r *planRun) reuse(ctx context.Context, s *domain.Suite, dest int) error {
	r.pending.Remove(s.ID)
	r.svc.reporter.EntityReused(ctx, EntityEvent{Kind: domain.KindSuite, Scope: r.plan.ID, SourceID: s.ID, DestID: dest, Name: s.Name})
	r.progress(ctx)
	return r.migrateCases(ctx, s, dest)
}

func (r *planRun) createSuite(ctx context.Context, s *domain.Suite, parentDest int) (int, bool, error) {
	ids, err := r.svc.target.FindSuiteIDsByName(ctx, r.dest.ID, parentDest, s.Name)
	if err != nil {
		return 0, false, err
	}
	// A suite already related to another source suite is never adopted.
	for _, id := range ids {
		if _, claimed := r.store.Owner(domain.KindSuite, id); !claimed {
			return id, true, nil
		}
	}

	draft := domain.SuiteDraft{Name: s.Name}
	if s.AssignedTo != "" {
		draft.Description = domain.AssignedToLine(s.AssignedTo)
	}
	switch c := s.Content.(type) {
	case domain.DynamicContent:
		draft.Content = domain.DynamicContent{Query: r.svc.tr.Query(c.Query)}
	default:
		draft.Content = domain.StaticContent{}
	}
	id, err := r.svc.target.CreateSuite(ctx, r.dest.ID, draft, parentDest)
	return id, false, err
}

func (r *planRun) skip(ctx context.Context, s *domain.Suite, err error) {
	r.resolver.MarkSkipped(s.ID)
	r.pending.Remove(s.ID)
	severity := domain.SeverityError
	var parentErr *domain.ParentNotFoundError
	if errors.Is(err, domain.ErrAncestorNotMigrated) || errors.As(err, &parentErr) {
		severity = domain.SeverityWarning
	}
	r.svc.reporter.EntitySkipped(ctx, SkipEvent{
		Kind:     domain.KindSuite,
		Scope:    r.plan.ID,
		SourceID: s.ID,
		Name:     s.Name,
		Severity: severity,
		Err:      err,
	})
	r.progress(ctx)
}

func (r *planRun) progress(ctx context.Context) {
	r.svc.reporter.Progress(ctx, ProgressEvent{
		Phase: "plan " + r.plan.Name,
		Done:  r.total - r.pending.Len(),
		Total: r.total,
	})
}

// migrateCases creates the cases of a static suite that have no relation
// yet and links every case into the destination suite.
func (r *planRun) migrateCases(ctx context.Context, s *domain.Suite, suiteDest int) error {
	if s.Kind() != domain.SuiteStatic {
		return nil
	}
	src := r.svc.source
	ids, err := src.ListCases(ctx, r.plan.ID, s.ID)
	if err != nil {
		return readFailure(fmt.Sprintf("cases of suite %d", s.ID), err)
	}

	var missing []int
	for _, id := range ids {
		if _, ok := r.store.Lookup(domain.KindCase, id); !ok {
			missing = append(missing, id)
		}
	}
	details := make(map[int]domain.TestCase, len(missing))
	if len(missing) > 0 {
		items, err := src.GetWorkItems(ctx, missing)
		if err != nil {
			return readFailure(fmt.Sprintf("case details of suite %d", s.ID), err)
		}
		for _, it := range items {
			details[it.ID] = domain.TestCaseFromWorkItem(it)
		}
		for _, id := range missing {
			if _, ok := details[id]; !ok {
				return &domain.StructuralIntegrityError{Kind: domain.KindCase, MissingID: id, ReferencedBy: s.ID}
			}
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.migrateCase(ctx, id, details[id], suiteDest); err != nil {
			return err
		}
	}
	return nil
}

func (r *planRun) migrateCase(ctx context.Context, id int, tc domain.TestCase, suiteDest int) error {
	target := r.svc.target
	skip := func(err error) error {
		if domain.IsFatal(err) {
			return err
		}
		r.svc.reporter.EntitySkipped(ctx, SkipEvent{Kind: domain.KindCase, Scope: r.plan.ID, SourceID: id, Name: tc.Title, Err: err})
		return nil
	}

	caseDest, related := r.store.Lookup(domain.KindCase, id)
	if related {
		r.svc.reporter.EntityReused(ctx, EntityEvent{Kind: domain.KindCase, Scope: r.plan.ID, SourceID: id, DestID: caseDest, Name: tc.Title})
	} else {
		var err error
		caseDest, err = target.CreateCase(ctx, domain.CaseDraft{
			Title:       tc.Title,
			AreaPath:    r.svc.tr.Path(tc.AreaPath),
			Description: tc.Owner(),
			Steps:       tc.Steps,
		})
		if err == nil {
			err = r.store.Record(ctx, domain.KindCase, id, caseDest)
		}
		if err != nil {
			return skip(err)
		}
		r.svc.reporter.EntityCreated(ctx, EntityEvent{Kind: domain.KindCase, Scope: r.plan.ID, SourceID: id, DestID: caseDest, Name: tc.Title})
	}

	if err := target.LinkCaseToSuite(ctx, r.dest.ID, suiteDest, caseDest); err != nil {
		return skip(fmt.Errorf("linking case %d into suite %d: %w", caseDest, suiteDest, err))
	}
	return nil
}
