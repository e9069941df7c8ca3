package service

import (
	"context"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/relation"
	"github.com/alexanderramin/planmigrate/internal/repository"
)

// SourceReader is the read-only origin server.
type SourceReader interface {
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	ListSuites(ctx context.Context, planID int) ([]domain.Suite, error)
	GetSuiteWithChildren(ctx context.Context, planID, suiteID int) (*domain.Suite, error)
	ListCases(ctx context.Context, planID, suiteID int) ([]int, error)
	GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error)
	GetAreaTree(ctx context.Context, structure domain.StructureType) (*domain.Node, error)
	QueryWorkItems(ctx context.Context, wiql string) ([]int, error)
}

// PlanWriter creates plans, suites and cases at the destination.
type PlanWriter interface {
	CreatePlan(ctx context.Context, draft domain.PlanDraft) (domain.DestPlan, error)
	GetPlan(ctx context.Context, planID int) (domain.DestPlan, error)
	FindSuiteIDsByName(ctx context.Context, planID, parentID int, name string) ([]int, error)
	CreateSuite(ctx context.Context, planID int, draft domain.SuiteDraft, parentID int) (int, error)
	CreateCase(ctx context.Context, draft domain.CaseDraft) (int, error)
	LinkCaseToSuite(ctx context.Context, planID, suiteID, caseID int) error
}

// NodeWriter creates area and iteration nodes at the destination.
type NodeWriter interface {
	CreateNode(ctx context.Context, structure domain.StructureType, parentPath, name string) (*domain.Node, error)
	GetNode(ctx context.Context, structure domain.StructureType, path string) (*domain.Node, error)
}

// WorkItemWriter creates and updates plain work items at the destination.
type WorkItemWriter interface {
	CreateWorkItem(ctx context.Context, wiType string, fields map[string]string) (int, error)
	UpdateWorkItem(ctx context.Context, id int, fields map[string]string) error
}

// TargetWriter is the whole destination surface.
type TargetWriter interface {
	PlanWriter
	NodeWriter
	WorkItemWriter
}

// RelationStores opens the relation store of one scope.
type RelationStores interface {
	Open(ctx context.Context, scope int) (*relation.Store, error)
}

type MigrationService interface {
	MigratePlans(ctx context.Context) error
	MigratePlan(ctx context.Context, plan domain.Plan) error
}

type AreaService interface {
	MigrateAreas(ctx context.Context) error
	MigrateIterations(ctx context.Context) error
}

type WorkItemService interface {
	MigrateWorkItems(ctx context.Context) error
}

type RunService interface {
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
	List(ctx context.Context, limit int) ([]*domain.Run, error)
	Issues(ctx context.Context, runID string) ([]domain.Issue, error)
}

type RelationService interface {
	List(ctx context.Context, filter repository.RelationFilter) ([]domain.Relation, error)
	Import(ctx context.Context, rels []domain.Relation) (int, error)
}

type InspectService interface {
	Plans(ctx context.Context) ([]domain.Plan, error)
	SuiteTree(ctx context.Context, planID int) (*SuiteNode, error)
	Tree(ctx context.Context, structure domain.StructureType) (*domain.Node, error)
}
