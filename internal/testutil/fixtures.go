package testutil

import (
	"github.com/alexanderramin/planmigrate/internal/domain"
)

// Suite options
type SuiteOption func(*domain.Suite)

func WithParent(id int) SuiteOption {
	return func(s *domain.Suite) {
		s.ParentID = &id
	}
}

func WithChildren(ids ...int) SuiteOption {
	return func(s *domain.Suite) {
		s.Content = domain.StaticContent{ChildIDs: ids}
	}
}

func WithQuery(q string) SuiteOption {
	return func(s *domain.Suite) {
		s.Content = domain.DynamicContent{Query: q}
	}
}

func WithSuiteOwner(who string) SuiteOption {
	return func(s *domain.Suite) {
		s.AssignedTo = who
	}
}

func NewTestSuite(planID, id int, name string, opts ...SuiteOption) domain.Suite {
	s := domain.Suite{
		ID:      id,
		PlanID:  planID,
		Name:    name,
		Content: domain.StaticContent{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Plan options
type PlanOption func(*domain.Plan)

func WithArea(path string) PlanOption {
	return func(p *domain.Plan) {
		p.AreaPath = path
	}
}

func WithPlanOwner(who string) PlanOption {
	return func(p *domain.Plan) {
		p.AssignedTo = who
	}
}

func NewTestPlan(id int, name string, rootSuiteID int, opts ...PlanOption) domain.Plan {
	p := domain.Plan{
		ID:          id,
		Name:        name,
		AreaPath:    "Source",
		Iteration:   `Source\Sprint 1`,
		State:       "Active",
		RootSuiteID: rootSuiteID,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// NewTestCaseItem builds the detail fetch result of a test case.
func NewTestCaseItem(id int, title, assignedTo string) domain.WorkItem {
	return domain.WorkItem{
		ID: id,
		Fields: map[string]string{
			domain.FieldWorkItemType: "Test Case",
			domain.FieldTitle:        title,
			domain.FieldAreaPath:     `Source\Web`,
			domain.FieldAssignedTo:   assignedTo,
			domain.FieldCreatedBy:    "Creator",
			domain.FieldSteps:        "<steps id=\"0\"/>",
		},
	}
}

// NewTestWorkItem builds a generic work item with the given type, state and
// title in iteration Source\Sprint 1.
func NewTestWorkItem(id int, wiType, state, title string) domain.WorkItem {
	return domain.WorkItem{
		ID: id,
		Fields: map[string]string{
			domain.FieldWorkItemType:  wiType,
			domain.FieldState:         state,
			domain.FieldTitle:         title,
			domain.FieldAreaPath:      `Source\Web`,
			domain.FieldIterationPath: `Source\Sprint 1`,
		},
	}
}

// NewTestTree builds a classification tree from backslash separated paths
// relative to the root, e.g. NewTestTree("Source", "Web", `Web\Front+End`).
func NewTestTree(root string, paths ...string) *domain.Node {
	rootNode := &domain.Node{Name: root, Path: root}
	index := map[string]*domain.Node{"": rootNode}
	nextID := 1
	for _, p := range paths {
		parent := ""
		name := p
		for i := len(p) - 1; i >= 0; i-- {
			if p[i] == '\\' {
				parent, name = p[:i], p[i+1:]
				break
			}
		}
		pn, ok := index[parent]
		if !ok {
			panic("NewTestTree: parent " + parent + " must be listed before " + p)
		}
		n := &domain.Node{ID: nextID, Name: name, Path: domain.JoinNodePath(pn.Path, name)}
		nextID++
		pn.Children = append(pn.Children, n)
		index[p] = n
	}
	return rootNode
}
