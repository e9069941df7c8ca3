package service

import (
	"context"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// SuiteNode is one suite of a source plan with its child suites resolved.
type SuiteNode struct {
	Suite    *domain.Suite
	Children []*SuiteNode
}

type inspectService struct {
	source SourceReader
}

// NewInspectService reads the source without writing anything.
func NewInspectService(source SourceReader) InspectService {
	return &inspectService{source: source}
}

func (s *inspectService) Plans(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.source.ListPlans(ctx)
	if err != nil {
		return nil, readFailure("plans", err)
	}
	return plans, nil
}

// SuiteTree fetches the plan's suite tree top-down through the child lists
// of static suites.
func (s *inspectService) SuiteTree(ctx context.Context, planID int) (*SuiteNode, error) {
	plans, err := s.Plans(ctx)
	if err != nil {
		return nil, err
	}
	rootID := 0
	for _, p := range plans {
		if p.ID == planID {
			rootID = p.RootSuiteID
			break
		}
	}
	if rootID == 0 {
		return nil, &domain.ReadError{Op: "plan", Err: domain.ErrNotFound}
	}

	seen := make(map[int]bool)
	var load func(id int) (*SuiteNode, error)
	load = func(id int) (*SuiteNode, error) {
		if seen[id] {
			return nil, &domain.CycleDetectedError{Chain: []int{id, id}}
		}
		seen[id] = true
		suite, err := s.source.GetSuiteWithChildren(ctx, planID, id)
		if err != nil {
			return nil, readFailure("suite", err)
		}
		node := &SuiteNode{Suite: suite}
		static, ok := suite.Content.(domain.StaticContent)
		if !ok {
			return node, nil
		}
		for _, childID := range static.ChildIDs {
			child, err := load(childID)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
		return node, nil
	}
	return load(rootID)
}

func (s *inspectService) Tree(ctx context.Context, structure domain.StructureType) (*domain.Node, error) {
	tree, err := s.source.GetAreaTree(ctx, structure)
	if err != nil {
		return nil, readFailure(string(structure)+" tree", err)
	}
	return tree, nil
}
