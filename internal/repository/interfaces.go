package repository

import (
	"context"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// ErrNotFound is returned by Get methods when no row matches.
var ErrNotFound = domain.ErrNotFound

// RelationFilter narrows a relation listing. Zero values match everything.
type RelationFilter struct {
	Kind  domain.EntityKind
	Scope *int
}

type RelationRepo interface {
	Create(ctx context.Context, r *domain.Relation) error
	Get(ctx context.Context, scope int, kind domain.EntityKind, sourceID int) (*domain.Relation, error)
	ListByScope(ctx context.Context, scope int) ([]domain.Relation, error)
	List(ctx context.Context, filter RelationFilter) ([]domain.Relation, error)
}

type RunRepo interface {
	Create(ctx context.Context, r *domain.Run) error
	Finish(ctx context.Context, r *domain.Run) error
	GetByID(ctx context.Context, id string) (*domain.Run, error)
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}

type IssueRepo interface {
	CreateBatch(ctx context.Context, issues []domain.Issue) error
	ListByRun(ctx context.Context, runID string) ([]domain.Issue, error)
}
