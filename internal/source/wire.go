package source

import (
	"fmt"
	"strconv"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/transport"
)

type planJSON struct {
	ID        transport.FlexInt `json:"id"`
	Name      string            `json:"name"`
	Area      *transport.Ref    `json:"area"`
	Iteration string            `json:"iteration"`
	State     string            `json:"state"`
	RootSuite *transport.Ref    `json:"rootSuite"`
	Owner     *identityJSON     `json:"owner"`
}

type identityJSON struct {
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

func (p planJSON) toDomain() domain.Plan {
	plan := domain.Plan{
		ID:        int(p.ID),
		Name:      p.Name,
		Iteration: p.Iteration,
		State:     p.State,
	}
	if p.Area != nil {
		plan.AreaPath = p.Area.Name
	}
	if p.RootSuite != nil {
		plan.RootSuiteID = int(p.RootSuite.ID)
	}
	if p.Owner != nil {
		plan.AssignedTo = p.Owner.DisplayName
	}
	return plan
}

type suiteJSON struct {
	ID          transport.FlexInt `json:"id"`
	Name        string            `json:"name"`
	Plan        *transport.Ref    `json:"plan"`
	Parent      *transport.Ref    `json:"parent"`
	SuiteType   string            `json:"suiteType"`
	QueryString string            `json:"queryString"`
	Suites      []transport.Ref   `json:"suites"`
	CaseCount   int               `json:"testCaseCount"`
}

func (s suiteJSON) toDomain(planID int) domain.Suite {
	suite := domain.Suite{
		ID:     int(s.ID),
		PlanID: planID,
		Name:   s.Name,
	}
	if s.Parent != nil && s.Parent.ID != 0 {
		pid := int(s.Parent.ID)
		suite.ParentID = &pid
	}
	if domain.SuiteKind(s.SuiteType) == domain.SuiteDynamic {
		suite.Content = domain.DynamicContent{Query: s.QueryString}
		return suite
	}
	static := domain.StaticContent{}
	for _, c := range s.Suites {
		static.ChildIDs = append(static.ChildIDs, int(c.ID))
	}
	suite.Content = static
	return suite
}

type suiteCaseJSON struct {
	TestCase transport.Ref `json:"testCase"`
}

type workItemJSON struct {
	ID     transport.FlexInt `json:"id"`
	Fields map[string]any    `json:"fields"`
}

func (w workItemJSON) toDomain() domain.WorkItem {
	item := domain.WorkItem{ID: int(w.ID), Fields: make(map[string]string, len(w.Fields))}
	for name, v := range w.Fields {
		item.Fields[name] = fieldString(v)
	}
	return item
}

// fieldString flattens a field value to the string form the destination
// accepts. Identity fields arrive as objects on newer servers.
func fieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		if name, ok := val["displayName"].(string); ok {
			return name
		}
		return fmt.Sprint(val)
	default:
		return fmt.Sprint(val)
	}
}

type nodeJSON struct {
	ID       transport.FlexInt `json:"id"`
	Name     string            `json:"name"`
	Children []nodeJSON        `json:"children"`
}

func (n nodeJSON) toDomain(parentPath string) *domain.Node {
	node := &domain.Node{
		ID:   int(n.ID),
		Name: n.Name,
		Path: domain.JoinNodePath(parentPath, n.Name),
	}
	for _, c := range n.Children {
		node.Children = append(node.Children, c.toDomain(node.Path))
	}
	return node
}

type wiqlResultJSON struct {
	WorkItems []transport.Ref `json:"workItems"`
}
