package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepo_Lifecycle(t *testing.T) {
	database := testutil.NewTestDB(t)
	runs := NewSQLiteRunRepo(database)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	run := &domain.Run{ID: "run-1", StartedAt: started, Status: domain.RunRunning}
	require.NoError(t, runs.Create(ctx, run))

	got, err := runs.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunRunning, got.Status)
	assert.Nil(t, got.FinishedAt)

	finished := started.Add(3 * time.Minute)
	run.FinishedAt = &finished
	run.Status = domain.RunFinished
	run.Created, run.Reused, run.Skipped, run.Failed = 4, 2, 1, 1
	require.NoError(t, runs.Finish(ctx, run))

	got, err = runs.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunFinished, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))
	assert.Equal(t, 4, got.Created)
	assert.Equal(t, 2, got.Reused)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, 1, got.Failed)
}

func TestRunRepo_FinishUnknown(t *testing.T) {
	runs := NewSQLiteRunRepo(testutil.NewTestDB(t))
	err := runs.Finish(context.Background(), &domain.Run{ID: "missing", Status: domain.RunFailed})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRunRepo_ListNewestFirst(t *testing.T) {
	runs := NewSQLiteRunRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, runs.Create(ctx, &domain.Run{
			ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour), Status: domain.RunRunning,
		}))
	}

	all, err := runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	limited, err := runs.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestIssueRepo_CreateBatchAndList(t *testing.T) {
	database := testutil.NewTestDB(t)
	runs := NewSQLiteRunRepo(database)
	issues := NewSQLiteIssueRepo(database)
	ctx := context.Background()

	require.NoError(t, runs.Create(ctx, &domain.Run{ID: "r", StartedAt: time.Now(), Status: domain.RunRunning}))

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, issues.CreateBatch(ctx, []domain.Issue{
		{RunID: "r", Kind: domain.KindSuite, SourceID: 4, Name: "Smoke", Severity: domain.SeverityError, Reason: "rejected", At: at},
		{RunID: "r", Kind: domain.KindWorkItem, SourceID: 9, Name: "Login", Severity: domain.SeverityWarning, Reason: "user not mapped", At: at},
	}))

	got, err := issues.ListByRun(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Smoke", got[0].Name)
	assert.Equal(t, domain.SeverityError, got[0].Severity)
	assert.Equal(t, domain.KindWorkItem, got[1].Kind)
	assert.True(t, at.Equal(got[1].At))

	none, err := issues.ListByRun(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}
