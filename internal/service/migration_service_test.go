package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/repository"
	"github.com/alexanderramin/planmigrate/internal/source"
	"github.com/alexanderramin/planmigrate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addNestedPlan registers plan 1 with root 10, A (11) under the root and
// B (12) under A. B is listed before A.
func addNestedPlan(src *testutil.FakeSource) domain.Plan {
	plan := testutil.NewTestPlan(1, "Release", 10, testutil.WithPlanOwner("Ana Lee"))
	src.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 12, "B", testutil.WithParent(11)),
		testutil.NewTestSuite(1, 11, "A", testutil.WithParent(10), testutil.WithSuiteOwner("Jo Smith")),
	)
	return plan
}

func TestMigratePlan_ParentCreatedBeforeChild(t *testing.T) {
	env := newTestEnv(t)
	plan := addNestedPlan(env.source)

	require.NoError(t, env.migration(nil).MigratePlan(context.Background(), plan))

	assert.Equal(t, []string{"A", "B"}, env.target.SuiteCreations())
	destPlan := env.dest(t, domain.GlobalScope, domain.KindPlan, 1)
	destA := env.dest(t, 1, domain.KindSuite, 11)
	destB := env.dest(t, 1, domain.KindSuite, 12)
	assert.Equal(t, env.target.Roots[destPlan], env.target.Suites[destA].ParentID)
	assert.Equal(t, destA, env.target.Suites[destB].ParentID)
	assert.Equal(t, "Assigned to: Jo Smith", env.target.Suites[destA].Description)
	assert.Equal(t, env.target.Roots[destPlan], env.dest(t, 1, domain.KindSuite, 10))

	draft := env.target.Plans[destPlan]
	assert.Equal(t, "Target", draft.AreaPath)
	assert.Equal(t, `Target\Sprint 1`, draft.Iteration)
	assert.Equal(t, "Assigned to: Ana Lee", draft.Description)

	assert.Equal(t, KindCounts{Created: 2}, env.counts(domain.KindSuite))
	assert.Equal(t, KindCounts{Created: 1}, env.counts(domain.KindPlan))
}

func TestMigratePlan_TransientReadsAreRetried(t *testing.T) {
	env := newTestEnv(t)
	plan := addNestedPlan(env.source)
	env.source.Transient["ListSuites"] = 2
	cfg := source.DefaultRetryConfig()
	cfg.Delay = time.Millisecond
	reader := source.NewRetrying(env.source, cfg, nil)

	require.NoError(t, env.migration(reader).MigratePlan(context.Background(), plan))

	assert.Equal(t, 3, env.source.Calls["ListSuites"])
	assert.Equal(t, []string{"A", "B"}, env.target.SuiteCreations())
}

func TestMigratePlan_ReadFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	plan := addNestedPlan(env.source)
	env.source.Errs["ListSuites"] = &domain.StatusError{Method: "GET", Path: "/suites", StatusCode: 500}

	err := env.migration(nil).MigratePlan(context.Background(), plan)

	var readErr *domain.ReadError
	require.True(t, errors.As(err, &readErr))
	assert.True(t, domain.IsFatal(err))
	assert.Empty(t, env.target.SuiteCreations())
}

func TestMigratePlan_MissingParentIsFatal(t *testing.T) {
	env := newTestEnv(t)
	plan := testutil.NewTestPlan(1, "Release", 10)
	env.source.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 13, "Orphan", testutil.WithParent(99)),
	)

	err := env.migration(nil).MigratePlan(context.Background(), plan)

	var structErr *domain.StructuralIntegrityError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, 99, structErr.MissingID)
	assert.Equal(t, 13, structErr.ReferencedBy)
	assert.Empty(t, env.target.SuiteCreations())
}

func TestMigratePlan_CycleIsFatal(t *testing.T) {
	env := newTestEnv(t)
	plan := testutil.NewTestPlan(1, "Release", 10)
	env.source.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 20, "X", testutil.WithParent(21)),
		testutil.NewTestSuite(1, 21, "Y", testutil.WithParent(20)),
	)

	err := env.migration(nil).MigratePlan(context.Background(), plan)

	var cycleErr *domain.CycleDetectedError
	require.True(t, errors.As(err, &cycleErr))
	assert.Empty(t, env.target.SuiteCreations())
}

func TestMigratePlans_RerunPerformsNoWrites(t *testing.T) {
	env := newTestEnv(t)
	addNestedPlan(env.source)
	env.source.AddCases(11,
		testutil.NewTestCaseItem(501, "Login works", "Jo Smith"),
		testutil.NewTestCaseItem(502, "Logout works", ""),
	)
	ctx := context.Background()

	require.NoError(t, env.migration(nil).MigratePlans(ctx))
	first, err := env.relations.List(ctx, repository.RelationFilter{})
	require.NoError(t, err)
	writes := env.target.Writes()
	require.Positive(t, writes)
	logged := len(env.target.Log)

	require.NoError(t, env.migration(nil).MigratePlans(ctx))

	assert.Equal(t, writes, env.target.Writes())
	// The second run only checks the plan and repeats the case links.
	assert.Equal(t, []string{
		fmt.Sprintf("GetPlan:%d", env.dest(t, domain.GlobalScope, domain.KindPlan, 1)),
		fmt.Sprintf("LinkCase:%d", env.dest(t, 1, domain.KindCase, 501)),
		fmt.Sprintf("LinkCase:%d", env.dest(t, 1, domain.KindCase, 502)),
	}, env.target.Log[logged:])
	second, err := env.relations.List(ctx, repository.RelationFilter{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMigratePlan_ResolvedTreeMakesNoSuiteCalls(t *testing.T) {
	env := newTestEnv(t)
	plan := addNestedPlan(env.source)
	ctx := context.Background()
	require.NoError(t, env.migration(nil).MigratePlan(ctx, plan))
	logged := len(env.target.Log)

	require.NoError(t, env.migration(nil).MigratePlan(ctx, plan))

	assert.Equal(t, []string{
		fmt.Sprintf("GetPlan:%d", env.dest(t, domain.GlobalScope, domain.KindPlan, 1)),
	}, env.target.Log[logged:])
}

func TestMigratePlan_ResumesAfterWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	plan := addNestedPlan(env.source)
	env.target.FailSuite["A"] = &domain.ValidationError{Entity: "suite", Reasons: []string{"name too long"}}
	ctx := context.Background()

	require.NoError(t, env.migration(nil).MigratePlan(ctx, plan))

	assert.Empty(t, env.target.SuiteCreations())
	assert.Equal(t, KindCounts{Skipped: 1, Failed: 1}, env.counts(domain.KindSuite))
	issues := env.rec.Summary().Issues
	require.Len(t, issues, 2)
	assert.Equal(t, 11, issues[0].SourceID)
	assert.Equal(t, domain.SeverityError, issues[0].Severity)
	assert.Equal(t, 12, issues[1].SourceID)
	assert.Equal(t, domain.SeverityWarning, issues[1].Severity)

	delete(env.target.FailSuite, "A")
	require.NoError(t, env.migration(nil).MigratePlan(ctx, plan))

	assert.Equal(t, []string{"A", "B"}, env.target.SuiteCreations())
	assert.Len(t, env.target.Plans, 1)
}

func TestMigratePlan_MissingDestinationParentLeavesSuiteUnattached(t *testing.T) {
	env := newTestEnv(t)
	plan := addNestedPlan(env.source)
	env.target.FailSuite["B"] = &domain.ParentNotFoundError{PlanID: 1, ParentID: 999}

	require.NoError(t, env.migration(nil).MigratePlan(context.Background(), plan))

	assert.Equal(t, []string{"A"}, env.target.SuiteCreations())
	assert.Equal(t, KindCounts{Created: 1, Skipped: 1}, env.counts(domain.KindSuite))
	issues := env.rec.Summary().Issues
	require.Len(t, issues, 1)
	assert.Equal(t, 12, issues[0].SourceID)
	assert.Equal(t, domain.SeverityWarning, issues[0].Severity)
}

func TestMigratePlan_AdoptsSuiteFoundByName(t *testing.T) {
	env := newTestEnv(t)
	plan := addNestedPlan(env.source)
	ctx := context.Background()
	require.NoError(t, env.migration(nil).MigratePlan(ctx, plan))

	// Only the plan relation survives; suites are found by name.
	fresh := newTestEnv(t)
	fresh.source, fresh.target = env.source, env.target
	destPlan := env.dest(t, domain.GlobalScope, domain.KindPlan, 1)
	require.NoError(t, fresh.relations.Create(ctx, &domain.Relation{Kind: domain.KindPlan, SourceID: 1, DestID: destPlan}))
	writes := env.target.Writes()

	require.NoError(t, fresh.migration(nil).MigratePlan(ctx, plan))

	assert.Equal(t, writes, env.target.Writes())
	assert.Equal(t, env.dest(t, 1, domain.KindSuite, 12), fresh.dest(t, 1, domain.KindSuite, 12))
	assert.Equal(t, KindCounts{Reused: 2}, fresh.counts(domain.KindSuite))
}

func sameNamePlan(src *testutil.FakeSource) domain.Plan {
	plan := testutil.NewTestPlan(1, "Release", 10)
	src.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 11, "Smoke", testutil.WithParent(10)),
		testutil.NewTestSuite(1, 12, "Smoke", testutil.WithParent(10)),
	)
	src.AddCases(12, testutil.NewTestCaseItem(501, "Login works", ""))
	return plan
}

func TestMigratePlan_SameNameSiblingsGetDistinctSuites(t *testing.T) {
	env := newTestEnv(t)
	plan := sameNamePlan(env.source)

	require.NoError(t, env.migration(nil).MigratePlan(context.Background(), plan))

	assert.Equal(t, []string{"Smoke", "Smoke"}, env.target.SuiteCreations())
	d11 := env.dest(t, 1, domain.KindSuite, 11)
	d12 := env.dest(t, 1, domain.KindSuite, 12)
	assert.NotEqual(t, d11, d12)
	assert.Empty(t, env.target.Suites[d11].Cases)
	assert.Equal(t, []int{env.dest(t, 1, domain.KindCase, 501)}, env.target.Suites[d12].Cases)
	assert.Empty(t, env.rec.Summary().Issues)
}

func TestMigratePlan_SameNameAtOtherDepthIsNotAdopted(t *testing.T) {
	env := newTestEnv(t)
	plan := testutil.NewTestPlan(1, "Release", 10)
	env.source.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 11, "Web", testutil.WithParent(10)),
		testutil.NewTestSuite(1, 12, "Smoke", testutil.WithParent(11)),
		testutil.NewTestSuite(1, 13, "Smoke", testutil.WithParent(10)),
	)
	env.source.AddCases(13, testutil.NewTestCaseItem(501, "Login works", ""))

	require.NoError(t, env.migration(nil).MigratePlan(context.Background(), plan))

	assert.Equal(t, []string{"Web", "Smoke", "Smoke"}, env.target.SuiteCreations())
	destPlan := env.dest(t, domain.GlobalScope, domain.KindPlan, 1)
	d12 := env.dest(t, 1, domain.KindSuite, 12)
	d13 := env.dest(t, 1, domain.KindSuite, 13)
	require.NotEqual(t, d12, d13)
	assert.Equal(t, env.dest(t, 1, domain.KindSuite, 11), env.target.Suites[d12].ParentID)
	assert.Equal(t, env.target.Roots[destPlan], env.target.Suites[d13].ParentID)
	assert.Empty(t, env.target.Suites[d12].Cases)
	assert.Equal(t, []int{env.dest(t, 1, domain.KindCase, 501)}, env.target.Suites[d13].Cases)
}

func TestMigratePlan_AdoptsSameNameSiblingsOncePerSuite(t *testing.T) {
	env := newTestEnv(t)
	plan := sameNamePlan(env.source)
	ctx := context.Background()
	require.NoError(t, env.migration(nil).MigratePlan(ctx, plan))

	// Only the plan and case relations survive; suites are found by name.
	fresh := newTestEnv(t)
	fresh.source, fresh.target = env.source, env.target
	destPlan := env.dest(t, domain.GlobalScope, domain.KindPlan, 1)
	require.NoError(t, fresh.relations.Create(ctx, &domain.Relation{Kind: domain.KindPlan, SourceID: 1, DestID: destPlan}))
	require.NoError(t, fresh.relations.Create(ctx, &domain.Relation{
		Scope: 1, Kind: domain.KindCase, SourceID: 501, DestID: env.dest(t, 1, domain.KindCase, 501),
	}))
	writes := env.target.Writes()

	require.NoError(t, fresh.migration(nil).MigratePlan(ctx, plan))

	assert.Equal(t, writes, env.target.Writes())
	assert.Equal(t, env.dest(t, 1, domain.KindSuite, 11), fresh.dest(t, 1, domain.KindSuite, 11))
	assert.Equal(t, env.dest(t, 1, domain.KindSuite, 12), fresh.dest(t, 1, domain.KindSuite, 12))
	assert.Equal(t, KindCounts{Reused: 2}, fresh.counts(domain.KindSuite))
}

func TestMigratePlan_DynamicSuiteQueryTranslated(t *testing.T) {
	env := newTestEnv(t)
	plan := testutil.NewTestPlan(1, "Release", 10)
	env.source.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 11, "Web cases", testutil.WithParent(10),
			testutil.WithQuery(`SELECT * FROM WorkItems WHERE [System.AreaPath] UNDER 'Source\Web'`)),
	)

	require.NoError(t, env.migration(nil).MigratePlan(context.Background(), plan))

	got := env.target.Suites[env.dest(t, 1, domain.KindSuite, 11)]
	assert.Equal(t, domain.SuiteDynamic, got.Kind)
	assert.Equal(t, `SELECT * FROM WorkItems WHERE [System.AreaPath] UNDER 'Target\Web'`, got.Query)
	assert.Zero(t, env.source.Calls["ListCases"])
}

func TestMigratePlan_CasesCreatedOnceAndLinked(t *testing.T) {
	env := newTestEnv(t)
	plan := testutil.NewTestPlan(1, "Release", 10)
	env.source.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 11, "Web", testutil.WithParent(10)),
		testutil.NewTestSuite(1, 12, "Regression", testutil.WithParent(10)),
	)
	login := testutil.NewTestCaseItem(501, "Login works", "Jo Smith")
	env.source.AddCases(11, login, testutil.NewTestCaseItem(502, "Logout works", ""))
	env.source.AddCases(12, login)

	require.NoError(t, env.migration(nil).MigratePlan(context.Background(), plan))

	destLogin := env.dest(t, 1, domain.KindCase, 501)
	assert.Equal(t, domain.CaseDraft{
		Title:       "Login works",
		AreaPath:    `Target\Web`,
		Description: "Assigned to: Jo Smith",
		Steps:       `<steps id="0"/>`,
	}, env.target.Cases[destLogin])
	assert.Equal(t, "Created by: Creator", env.target.Cases[env.dest(t, 1, domain.KindCase, 502)].Description)
	assert.Len(t, env.target.Cases, 2)
	assert.Equal(t, []int{destLogin, env.dest(t, 1, domain.KindCase, 502)},
		env.target.Suites[env.dest(t, 1, domain.KindSuite, 11)].Cases)
	assert.Equal(t, []int{destLogin}, env.target.Suites[env.dest(t, 1, domain.KindSuite, 12)].Cases)
	assert.Equal(t, KindCounts{Created: 2, Reused: 1}, env.counts(domain.KindCase))
}

func TestMigratePlan_CaseWithoutDetailsIsFatal(t *testing.T) {
	env := newTestEnv(t)
	plan := testutil.NewTestPlan(1, "Release", 10)
	env.source.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 11, "Web", testutil.WithParent(10)),
	)
	env.source.Cases[11] = []int{777}

	err := env.migration(nil).MigratePlan(context.Background(), plan)

	var structErr *domain.StructuralIntegrityError
	require.True(t, errors.As(err, &structErr))
	assert.Equal(t, domain.KindCase, structErr.Kind)
	assert.Equal(t, 777, structErr.MissingID)
}

func TestMigratePlan_CaseFailureSkipsOnlyThatCase(t *testing.T) {
	env := newTestEnv(t)
	plan := testutil.NewTestPlan(1, "Release", 10)
	env.source.AddPlan(plan,
		testutil.NewTestSuite(1, 10, "Release"),
		testutil.NewTestSuite(1, 11, "Web", testutil.WithParent(10)),
	)
	env.source.AddCases(11,
		testutil.NewTestCaseItem(501, "Broken", ""),
		testutil.NewTestCaseItem(502, "Fine", ""),
	)
	env.target.FailCase["Broken"] = domain.ErrTransientTransport

	require.NoError(t, env.migration(nil).MigratePlan(context.Background(), plan))

	assert.Equal(t, KindCounts{Created: 1, Failed: 1}, env.counts(domain.KindCase))
	assert.Len(t, env.target.Suites[env.dest(t, 1, domain.KindSuite, 11)].Cases, 1)
}

func TestMigratePlans_PlanFailureDoesNotStopOthers(t *testing.T) {
	env := newTestEnv(t)
	env.source.AddPlan(testutil.NewTestPlan(1, "P1", 10), testutil.NewTestSuite(1, 10, "P1"))
	env.source.AddPlan(testutil.NewTestPlan(2, "P2", 20),
		testutil.NewTestSuite(2, 20, "P2"),
		testutil.NewTestSuite(2, 21, "Smoke", testutil.WithParent(20)),
	)
	env.target.FailPlan["P1"] = &domain.ValidationError{Entity: "plan"}

	require.NoError(t, env.migration(nil).MigratePlans(context.Background()))

	assert.Equal(t, KindCounts{Created: 1, Failed: 1}, env.counts(domain.KindPlan))
	assert.Equal(t, []string{"Smoke"}, env.target.SuiteCreations())
}

func TestMigratePlans_AllowList(t *testing.T) {
	env := newTestEnv(t)
	env.source.AddPlan(testutil.NewTestPlan(1, "P1", 10), testutil.NewTestSuite(1, 10, "P1"))
	env.source.AddPlan(testutil.NewTestPlan(2, "P2", 20), testutil.NewTestSuite(2, 20, "P2"))
	env.settings.PlanIDs = []int{2}

	require.NoError(t, env.migration(nil).MigratePlans(context.Background()))

	assert.Equal(t, []string{"CreatePlan:P2"}, env.target.Calls)
}

func TestMigratePlans_OwnerFromDetails(t *testing.T) {
	env := newTestEnv(t)
	env.source.AddPlan(testutil.NewTestPlan(1, "P1", 10), testutil.NewTestSuite(1, 10, "P1"))
	env.source.AddItems(domain.WorkItem{ID: 1, Fields: map[string]string{domain.FieldAssignedTo: "Kim Park"}})

	require.NoError(t, env.migration(nil).MigratePlans(context.Background()))

	destPlan := env.dest(t, domain.GlobalScope, domain.KindPlan, 1)
	assert.Equal(t, "Assigned to: Kim Park", env.target.Plans[destPlan].Description)
}
