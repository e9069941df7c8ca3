// Package relation tracks which source entities already exist at the
// destination, and under which id.
package relation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// Persister stores relations beyond the lifetime of a Store.
// repository.RelationRepo satisfies it.
type Persister interface {
	Create(ctx context.Context, r *domain.Relation) error
	ListByScope(ctx context.Context, scope int) ([]domain.Relation, error)
}

// CollisionFunc is called when two source ids of one kind end up related to
// the same destination id. The store still records the relation.
type CollisionFunc func(kind domain.EntityKind, dest, existingSource, newSource int)

type key struct {
	kind domain.EntityKind
	id   int
}

// Store is an append-only source id -> destination id mapping per entity
// kind, bound to one scope. It is not safe for concurrent use.
type Store struct {
	scope     int
	forward   map[key]int
	reverse   map[key]int
	persist   Persister
	onCollide CollisionFunc
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCollisionFunc installs the injectivity warning callback.
func WithCollisionFunc(fn CollisionFunc) Option {
	return func(s *Store) { s.onCollide = fn }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty memory-only store for scope.
func New(scope int, opts ...Option) *Store {
	s := &Store{
		scope:   scope,
		forward: make(map[key]int),
		reverse: make(map[key]int),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a store for scope that writes every new relation through to
// p, preloaded with what p already holds for that scope.
func Open(ctx context.Context, p Persister, scope int, opts ...Option) (*Store, error) {
	s := New(scope, opts...)
	rels, err := p.ListByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: loading scope %d: %v", domain.ErrStorage, scope, err)
	}
	for _, r := range rels {
		s.put(r.Kind, r.SourceID, r.DestID)
	}
	s.persist = p
	return s, nil
}

// Scope returns the scope the store is bound to.
func (s *Store) Scope() int { return s.scope }

// Lookup returns the destination id recorded for a source id.
func (s *Store) Lookup(kind domain.EntityKind, sourceID int) (int, bool) {
	dest, ok := s.forward[key{kind, sourceID}]
	return dest, ok
}

// Record stores sourceID -> destID. Recording an identical pair again is a
// no-op. A different destination for an already related source id fails
// with *domain.DuplicateRelationError. Persistence failures wrap
// domain.ErrStorage and leave the store unchanged.
func (s *Store) Record(ctx context.Context, kind domain.EntityKind, sourceID, destID int) error {
	if existing, ok := s.Lookup(kind, sourceID); ok {
		if existing == destID {
			return nil
		}
		return &domain.DuplicateRelationError{Kind: kind, SourceID: sourceID, Existing: existing, Attempted: destID}
	}

	if s.persist != nil {
		rel := &domain.Relation{
			Scope:     s.scope,
			Kind:      kind,
			SourceID:  sourceID,
			DestID:    destID,
			CreatedAt: s.now(),
		}
		if err := s.persist.Create(ctx, rel); err != nil {
			return fmt.Errorf("%w: %s %d -> %d: %v", domain.ErrStorage, kind, sourceID, destID, err)
		}
	}

	if other, ok := s.reverse[key{kind, destID}]; ok && s.onCollide != nil {
		s.onCollide(kind, destID, other, sourceID)
	}
	s.put(kind, sourceID, destID)
	return nil
}

func (s *Store) put(kind domain.EntityKind, sourceID, destID int) {
	s.forward[key{kind, sourceID}] = destID
	if _, taken := s.reverse[key{kind, destID}]; !taken {
		s.reverse[key{kind, destID}] = sourceID
	}
}

// Owner returns the source id first related to destID.
func (s *Store) Owner(kind domain.EntityKind, destID int) (int, bool) {
	src, ok := s.reverse[key{kind, destID}]
	return src, ok
}

// Len returns the number of relations of kind.
func (s *Store) Len(kind domain.EntityKind) int {
	n := 0
	for k := range s.forward {
		if k.kind == kind {
			n++
		}
	}
	return n
}

// Relations returns a snapshot of every relation, ordered by kind then
// source id.
func (s *Store) Relations() []domain.Relation {
	out := make([]domain.Relation, 0, len(s.forward))
	for k, dest := range s.forward {
		out = append(out, domain.Relation{Scope: s.scope, Kind: k.kind, SourceID: k.id, DestID: dest})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out
}
