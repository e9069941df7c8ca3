// Package resolver orders suite creation so that a suite's parent always
// exists at the destination before the suite itself.
package resolver

import (
	"context"
	"fmt"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/relation"
)

// MigrateFunc migrates one suite under an already resolved parent
// destination id. It records the suite's relation on success. It returns
// only errors that must abort the run; a suite it could not create is left
// unrelated.
type MigrateFunc func(ctx context.Context, s *domain.Suite, parentDest int) error

// Resolver finds, and if needed creates, the destination parent of a suite.
// It consults the suites fetched for the plan before migration started.
type Resolver struct {
	suites  map[int]*domain.Suite
	store   *relation.Store
	skipped map[int]bool
}

func New(suites []domain.Suite, store *relation.Store) *Resolver {
	r := &Resolver{
		suites:  make(map[int]*domain.Suite, len(suites)),
		store:   store,
		skipped: make(map[int]bool),
	}
	for i := range suites {
		r.suites[suites[i].ID] = &suites[i]
	}
	return r
}

// Suite returns a fetched suite by id.
func (r *Resolver) Suite(id int) (*domain.Suite, bool) {
	s, ok := r.suites[id]
	return s, ok
}

// MarkSkipped records that a suite could not be migrated in this run, so
// its descendants fail fast with domain.ErrAncestorNotMigrated.
func (r *Resolver) MarkSkipped(id int) {
	r.skipped[id] = true
}

func (r *Resolver) Skipped(id int) bool {
	return r.skipped[id]
}

// ParentDestination returns the destination id of s's parent. Unrelated
// ancestors are collected walking up until a related one is found, then
// migrated top-down through migrate.
func (r *Resolver) ParentDestination(ctx context.Context, s *domain.Suite, migrate MigrateFunc) (int, error) {
	var (
		unresolved []*domain.Suite // nearest ancestor first
		parentDest int
		path       = []int{s.ID}
		resolving  = map[int]bool{s.ID: true}
		cur        = s
	)

	for {
		pid, ok := cur.Parent()
		if !ok {
			return 0, fmt.Errorf("root suite %d has no destination: %w", cur.ID, domain.ErrAncestorNotMigrated)
		}
		if dest, ok := r.store.Lookup(domain.KindSuite, pid); ok {
			parentDest = dest
			break
		}
		if resolving[pid] {
			return 0, &domain.CycleDetectedError{Chain: append(path, pid)}
		}
		if r.skipped[pid] {
			return 0, fmt.Errorf("suite %d: %w", pid, domain.ErrAncestorNotMigrated)
		}
		parent, ok := r.suites[pid]
		if !ok {
			return 0, &domain.StructuralIntegrityError{Kind: domain.KindSuite, MissingID: pid, ReferencedBy: cur.ID}
		}
		resolving[pid] = true
		path = append(path, pid)
		unresolved = append(unresolved, parent)
		cur = parent
	}

	for i := len(unresolved) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		anc := unresolved[i]
		if err := migrate(ctx, anc, parentDest); err != nil {
			return 0, err
		}
		dest, ok := r.store.Lookup(domain.KindSuite, anc.ID)
		if !ok {
			return 0, fmt.Errorf("suite %d: %w", anc.ID, domain.ErrAncestorNotMigrated)
		}
		parentDest = dest
	}
	return parentDest, nil
}
