package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/planmigrate/internal/db"
	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/relation"
	"github.com/alexanderramin/planmigrate/internal/repository"
)

type persistentStores struct {
	relations repository.RelationRepo
	reporter  Reporter
}

// NewRelationStores opens relation stores backed by the relations table.
// Injectivity violations are reported as warnings.
func NewRelationStores(relations repository.RelationRepo, reporter Reporter) RelationStores {
	return &persistentStores{relations: relations, reporter: reporterOrNoop(reporter)}
}

func (p *persistentStores) Open(ctx context.Context, scope int) (*relation.Store, error) {
	return relation.Open(ctx, p.relations, scope, relation.WithCollisionFunc(
		func(kind domain.EntityKind, dest, existing, newer int) {
			p.reporter.Warning(ctx, WarningEvent{
				Kind:     kind,
				SourceID: newer,
				Message: fmt.Sprintf("destination %s %d is already related to source %d in scope %d",
					kind, dest, existing, scope),
			})
		}))
}

type relationService struct {
	relations repository.RelationRepo
	uow       db.UnitOfWork
	now       func() time.Time
}

func NewRelationService(relations repository.RelationRepo, uow db.UnitOfWork) RelationService {
	return &relationService{
		relations: relations,
		uow:       uow,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *relationService) List(ctx context.Context, filter repository.RelationFilter) ([]domain.Relation, error) {
	return s.relations.List(ctx, filter)
}

// Import stores relations read from an export in one transaction and
// returns how many were new. A relation already stored with the same
// destination is left alone; one stored with another destination aborts the
// whole import.
func (s *relationService) Import(ctx context.Context, rels []domain.Relation) (int, error) {
	added := 0
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteRelationRepo(tx)
		for _, rel := range rels {
			existing, err := repo.Get(ctx, rel.Scope, rel.Kind, rel.SourceID)
			if err == nil {
				if existing.DestID != rel.DestID {
					return &domain.DuplicateRelationError{
						Kind: rel.Kind, SourceID: rel.SourceID, Existing: existing.DestID, Attempted: rel.DestID,
					}
				}
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if rel.CreatedAt.IsZero() {
				rel.CreatedAt = s.now()
			}
			if err := repo.Create(ctx, &rel); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("importing relations: %w", err)
	}
	return added, nil
}
