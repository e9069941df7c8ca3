package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	assert.Equal(t,
		"SELECT [System.Id] FROM WorkItems WHERE ([System.State] = 'Active' OR [System.State] = 'Resolved')"+
			" AND [System.WorkItemType] = 'Task' ORDER BY [System.Id]",
		BuildQuery("Source", TypeTask, nil))

	assert.Equal(t,
		"SELECT [System.Id] FROM WorkItems WHERE ([System.State] = 'Active' OR [System.State] = 'Resolved')"+
			` AND [System.WorkItemType] = 'User Story' AND [System.IterationPath] IN ('Source\Sprint 1', 'Source\Kim''s sprint')`+
			" ORDER BY [System.Id]",
		BuildQuery("Source", TypeUserStory, []string{"Sprint 1", "Kim's sprint"}))
}

func withFields(it domain.WorkItem, kv ...string) domain.WorkItem {
	for i := 0; i+1 < len(kv); i += 2 {
		it.Fields[kv[i]] = kv[i+1]
	}
	return it
}

func TestMigrateWorkItems_Tasks(t *testing.T) {
	env := newTestEnv(t)
	env.settings.Users = map[string]string{"Jo Smith": "Joanna Smith"}
	env.settings.FallbackUser = "Team Lead"
	env.source.AddItems(
		withFields(testutil.NewTestWorkItem(1, TypeTask, domain.StateActive, "Implement search"),
			domain.FieldAssignedTo, "Jo Smith",
			"Microsoft.VSTS.Scheduling.RemainingWork", "4",
			"Custom.Unrelated", "dropped"),
		testutil.NewTestWorkItem(2, TypeTask, domain.StateResolved, "Fix 12 crash on save"),
		withFields(testutil.NewTestWorkItem(3, TypeTask, domain.StateResolved, "Write docs"),
			domain.FieldAssignedTo, "Unknown Person"),
		testutil.NewTestWorkItem(4, TypeBug, domain.StateActive, "Crash on save"),
		testutil.NewTestWorkItem(5, TypeTask, "Closed", "Old work"),
	)

	require.NoError(t, env.workItems().MigrateWorkItems(context.Background()))

	search := env.target.WorkItems[env.dest(t, domain.GlobalScope, domain.KindWorkItem, 1)]
	assert.Equal(t, TypeTask, search.Type)
	assert.Equal(t, map[string]string{
		domain.FieldTitle:                         "Implement search",
		domain.FieldAreaPath:                      `Target\Web`,
		domain.FieldIterationPath:                 `Target\Sprint 1`,
		domain.FieldAssignedTo:                    "Joanna Smith",
		"Microsoft.VSTS.Scheduling.RemainingWork": "4",
	}, search.Fields)

	docsID := env.dest(t, domain.GlobalScope, domain.KindWorkItem, 3)
	docs := env.target.WorkItems[docsID]
	assert.Equal(t, "Team Lead", docs.Fields[domain.FieldAssignedTo])
	require.Len(t, docs.Updates, 1)
	assert.Equal(t, map[string]string{domain.FieldState: domain.StateActive}, docs.Updates[0])

	assert.Len(t, env.target.WorkItems, 2)
	assert.Equal(t, KindCounts{Created: 2, Skipped: 1}, env.counts(domain.KindWorkItem))

	issues := env.rec.Summary().Issues
	require.Len(t, issues, 2)
	assert.Equal(t, 2, issues[0].SourceID)
	assert.Equal(t, 3, issues[1].SourceID)
	assert.Contains(t, issues[1].Reason, "Unknown Person")
}

func TestMigrateWorkItems_ResolvedBugKeepsReason(t *testing.T) {
	env := newTestEnv(t)
	env.settings.WorkItemTypes = []string{TypeBug}
	env.source.AddItems(withFields(testutil.NewTestWorkItem(7, TypeBug, domain.StateResolved, "Crash on save"),
		domain.FieldReason, "Fixed",
		"Microsoft.VSTS.TCM.ReproSteps", "click save",
		domain.FieldDescription, "not copied for bugs"))

	require.NoError(t, env.workItems().MigrateWorkItems(context.Background()))

	bug := env.target.WorkItems[env.dest(t, domain.GlobalScope, domain.KindWorkItem, 7)]
	assert.Equal(t, "click save", bug.Fields["Microsoft.VSTS.TCM.ReproSteps"])
	assert.NotContains(t, bug.Fields, domain.FieldDescription)
	require.Len(t, bug.Updates, 1)
	assert.Equal(t, map[string]string{
		domain.FieldState:  domain.StateResolved,
		domain.FieldReason: "Fixed",
	}, bug.Updates[0])
}

func TestMigrateWorkItems_IterationAllowList(t *testing.T) {
	env := newTestEnv(t)
	env.settings.Iterations = []string{"Sprint 2"}
	env.source.AddItems(
		testutil.NewTestWorkItem(1, TypeTask, domain.StateActive, "In sprint 1"),
		withFields(testutil.NewTestWorkItem(2, TypeTask, domain.StateActive, "In sprint 2"),
			domain.FieldIterationPath, `Source\Sprint 2`),
	)

	require.NoError(t, env.workItems().MigrateWorkItems(context.Background()))

	assert.Equal(t, []string{"CreateWorkItem:In sprint 2"}, env.target.Calls)
}

func TestMigrateWorkItems_RerunPerformsNoWrites(t *testing.T) {
	env := newTestEnv(t)
	env.source.AddItems(testutil.NewTestWorkItem(1, TypeTask, domain.StateResolved, "Write docs"))
	ctx := context.Background()

	require.NoError(t, env.workItems().MigrateWorkItems(ctx))
	assert.Equal(t, 2, env.target.Writes())
	require.NoError(t, env.workItems().MigrateWorkItems(ctx))

	assert.Equal(t, 2, env.target.Writes())
}

func TestMigrateWorkItems_CreateFailureContinues(t *testing.T) {
	env := newTestEnv(t)
	env.source.AddItems(
		testutil.NewTestWorkItem(1, TypeTask, domain.StateActive, "Rejected"),
		testutil.NewTestWorkItem(2, TypeTask, domain.StateActive, "Accepted"),
	)
	env.target.FailWorkItem["Rejected"] = &domain.ValidationError{Entity: "work item"}

	require.NoError(t, env.workItems().MigrateWorkItems(context.Background()))

	assert.Equal(t, []string{"CreateWorkItem:Accepted"}, env.target.Calls)
	assert.Equal(t, KindCounts{Created: 1, Failed: 1}, env.counts(domain.KindWorkItem))
}

func TestMigrateWorkItems_UnsupportedType(t *testing.T) {
	env := newTestEnv(t)
	env.settings.WorkItemTypes = []string{"Epic"}

	err := env.workItems().MigrateWorkItems(context.Background())

	assert.ErrorContains(t, err, `unsupported work item type "Epic"`)
}
