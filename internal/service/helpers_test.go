package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/repository"
	"github.com/alexanderramin/planmigrate/internal/testutil"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	source    *testutil.FakeSource
	target    *testutil.FakeTarget
	relations *repository.SQLiteRelationRepo
	rec       *Recorder
	settings  Settings
	released  bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		source:    testutil.NewFakeSource(),
		target:    testutil.NewFakeTarget(),
		relations: repository.NewSQLiteRelationRepo(testutil.NewTestDB(t)),
		rec:       NewRecorder(),
		settings:  Settings{SourceProject: "Source", TargetProject: "Target"},
	}
}

func (e *testEnv) stores() RelationStores {
	return NewRelationStores(e.relations, e.rec)
}

func (e *testEnv) migration(source SourceReader) MigrationService {
	if source == nil {
		source = e.source
	}
	return NewMigrationService(source, e.target, e.stores(), e.rec, e.settings)
}

func (e *testEnv) areas() AreaService {
	return NewAreaService(e.source, e.target, e.stores(), e.rec, e.settings)
}

func (e *testEnv) workItems() WorkItemService {
	return NewWorkItemService(e.source, e.target, e.stores(), e.rec, e.settings)
}

// dest returns the persisted destination id of a source entity.
func (e *testEnv) dest(t *testing.T, scope int, kind domain.EntityKind, sourceID int) int {
	t.Helper()
	rel, err := e.relations.Get(context.Background(), scope, kind, sourceID)
	require.NoError(t, err)
	return rel.DestID
}

func (e *testEnv) counts(kind domain.EntityKind) KindCounts {
	return e.rec.Summary().Counts[kind]
}
