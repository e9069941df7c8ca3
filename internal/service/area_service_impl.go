package service

import (
	"context"
	"errors"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/relation"
)

type areaService struct {
	source     SourceReader
	target     NodeWriter
	stores     RelationStores
	reporter   Reporter
	tr         Translator
	iterations []string
}

func NewAreaService(source SourceReader, target NodeWriter, stores RelationStores, reporter Reporter, settings Settings) AreaService {
	return &areaService{
		source:     source,
		target:     target,
		stores:     stores,
		reporter:   reporterOrNoop(reporter),
		tr:         Translator{Source: settings.SourceProject, Target: settings.TargetProject},
		iterations: settings.Iterations,
	}
}

func (s *areaService) MigrateAreas(ctx context.Context) error {
	return s.migrateTree(ctx, domain.StructureAreas, nil)
}

// MigrateIterations mirrors the iteration tree, restricted to the configured
// iterations and the nodes above them.
func (s *areaService) MigrateIterations(ctx context.Context) error {
	return s.migrateTree(ctx, domain.StructureIterations, s.iterations)
}

type nodeItem struct {
	node       *domain.Node
	parentPath string // destination path of the parent
}

func (s *areaService) migrateTree(ctx context.Context, structure domain.StructureType, allow []string) error {
	tree, err := s.source.GetAreaTree(ctx, structure)
	if err != nil {
		return readFailure(string(structure)+" tree", err)
	}
	store, err := s.stores.Open(ctx, domain.GlobalScope)
	if err != nil {
		return err
	}

	total := countNodes(tree) - 1
	done := 0
	stack := pushChildren(nil, tree, s.tr.Target)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !allowed(Relative(it.node.Path), allow) {
			done += countNodes(it.node)
			continue
		}
		path, err := s.migrateNode(ctx, store, structure, it)
		if err != nil {
			if domain.IsFatal(err) {
				return err
			}
			s.reporter.EntitySkipped(ctx, SkipEvent{
				Kind:     structure.Kind(),
				SourceID: it.node.ID,
				Name:     it.node.Path,
				Err:      err,
			})
			done += countNodes(it.node)
			continue
		}
		done++
		s.reporter.Progress(ctx, ProgressEvent{Phase: string(structure), Done: done, Total: total})
		stack = pushChildren(stack, it.node, path)
	}
	return nil
}

// migrateNode returns the destination path of the node. An existing node at
// the destination is adopted.
func (s *areaService) migrateNode(ctx context.Context, store *relation.Store, structure domain.StructureType, it nodeItem) (string, error) {
	kind := structure.Kind()
	name := domain.NodeName(it.node.Name)
	path := domain.JoinNodePath(it.parentPath, name)
	event := EntityEvent{Kind: kind, SourceID: it.node.ID, Name: path}

	if dest, ok := store.Lookup(kind, it.node.ID); ok {
		event.DestID = dest
		s.reporter.EntityReused(ctx, event)
		return path, nil
	}

	created := true
	node, err := s.target.CreateNode(ctx, structure, it.parentPath, name)
	var dup *domain.DuplicateNodeError
	if errors.As(err, &dup) {
		created = false
		node, err = s.target.GetNode(ctx, structure, path)
	}
	if err != nil {
		return "", err
	}
	if err := store.Record(ctx, kind, it.node.ID, node.ID); err != nil {
		return "", err
	}

	event.DestID = node.ID
	if created {
		s.reporter.EntityCreated(ctx, event)
	} else {
		s.reporter.EntityReused(ctx, event)
	}
	return path, nil
}

// pushChildren appends n's children so that they pop in source order.
func pushChildren(stack []nodeItem, n *domain.Node, path string) []nodeItem {
	for i := len(n.Children) - 1; i >= 0; i-- {
		stack = append(stack, nodeItem{node: n.Children[i], parentPath: path})
	}
	return stack
}

func countNodes(n *domain.Node) int {
	count := 0
	stack := []*domain.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++
		stack = append(stack, cur.Children...)
	}
	return count
}

// allowed reports whether a relative path is in the allow list, above an
// entry, or below one. An empty list allows everything.
func allowed(rel string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if rel == a || strings.HasPrefix(a, rel+`\`) || strings.HasPrefix(rel, a+`\`) {
			return true
		}
	}
	return false
}
