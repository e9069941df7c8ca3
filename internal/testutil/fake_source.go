package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// FakeSource is an in-memory source repository. Transient lists how many
// more times an operation fails with ErrTransientTransport before it
// succeeds; Errs makes an operation fail permanently.
type FakeSource struct {
	Plans  []domain.Plan
	Suites map[int][]domain.Suite // by plan id
	Cases  map[int][]int          // by suite id
	Items  map[int]domain.WorkItem
	Trees  map[domain.StructureType]*domain.Node

	Transient map[string]int
	Errs      map[string]error
	Calls     map[string]int
}

func NewFakeSource() *FakeSource {
	return &FakeSource{
		Suites:    make(map[int][]domain.Suite),
		Cases:     make(map[int][]int),
		Items:     make(map[int]domain.WorkItem),
		Trees:     make(map[domain.StructureType]*domain.Node),
		Transient: make(map[string]int),
		Errs:      make(map[string]error),
		Calls:     make(map[string]int),
	}
}

// AddPlan registers a plan with its suites, root suite included.
func (f *FakeSource) AddPlan(p domain.Plan, suites ...domain.Suite) {
	f.Plans = append(f.Plans, p)
	f.Suites[p.ID] = append(f.Suites[p.ID], suites...)
}

// AddCases links test cases to a suite and registers their details.
func (f *FakeSource) AddCases(suiteID int, items ...domain.WorkItem) {
	for _, it := range items {
		f.Cases[suiteID] = append(f.Cases[suiteID], it.ID)
		f.Items[it.ID] = it
	}
}

func (f *FakeSource) AddItems(items ...domain.WorkItem) {
	for _, it := range items {
		f.Items[it.ID] = it
	}
}

func (f *FakeSource) call(op string) error {
	f.Calls[op]++
	if err, ok := f.Errs[op]; ok {
		return err
	}
	if f.Transient[op] > 0 {
		f.Transient[op]--
		return fmt.Errorf("%w: fake %s", domain.ErrTransientTransport, op)
	}
	return nil
}

func (f *FakeSource) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	if err := f.call("ListPlans"); err != nil {
		return nil, err
	}
	out := make([]domain.Plan, len(f.Plans))
	copy(out, f.Plans)
	return out, nil
}

func (f *FakeSource) ListSuites(ctx context.Context, planID int) ([]domain.Suite, error) {
	if err := f.call("ListSuites"); err != nil {
		return nil, err
	}
	out := make([]domain.Suite, len(f.Suites[planID]))
	copy(out, f.Suites[planID])
	return out, nil
}

func (f *FakeSource) GetSuiteWithChildren(ctx context.Context, planID, suiteID int) (*domain.Suite, error) {
	if err := f.call("GetSuiteWithChildren"); err != nil {
		return nil, err
	}
	for _, s := range f.Suites[planID] {
		if s.ID != suiteID {
			continue
		}
		found := s
		if st, ok := s.Content.(domain.StaticContent); ok && len(st.ChildIDs) == 0 {
			var children []int
			for _, c := range f.Suites[planID] {
				if pid, ok := c.Parent(); ok && pid == suiteID {
					children = append(children, c.ID)
				}
			}
			found.Content = domain.StaticContent{ChildIDs: children}
		}
		return &found, nil
	}
	return nil, fmt.Errorf("suite %d in plan %d: %w", suiteID, planID, domain.ErrNotFound)
}

func (f *FakeSource) ListCases(ctx context.Context, planID, suiteID int) ([]int, error) {
	if err := f.call("ListCases"); err != nil {
		return nil, err
	}
	return append([]int(nil), f.Cases[suiteID]...), nil
}

// GetWorkItems omits ids it does not know.
func (f *FakeSource) GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	if err := f.call("GetWorkItems"); err != nil {
		return nil, err
	}
	var out []domain.WorkItem
	for _, id := range ids {
		if it, ok := f.Items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *FakeSource) GetAreaTree(ctx context.Context, structure domain.StructureType) (*domain.Node, error) {
	if err := f.call("GetAreaTree"); err != nil {
		return nil, err
	}
	tree, ok := f.Trees[structure]
	if !ok {
		return nil, fmt.Errorf("%s tree: %w", structure, domain.ErrNotFound)
	}
	return tree, nil
}

// QueryWorkItems matches items whose type and state appear quoted in the
// query text, and whose iteration path does too when the query filters on
// iterations. Ids come back in ascending order.
func (f *FakeSource) QueryWorkItems(ctx context.Context, wiql string) ([]int, error) {
	if err := f.call("QueryWorkItems"); err != nil {
		return nil, err
	}
	var ids []int
	for id, it := range f.Items {
		if it.Type() == "" || it.Type() == "Test Case" {
			continue
		}
		if !strings.Contains(wiql, "'"+it.Type()+"'") || !strings.Contains(wiql, "'"+it.State()+"'") {
			continue
		}
		if strings.Contains(wiql, domain.FieldIterationPath) &&
			!strings.Contains(wiql, "'"+it.Field(domain.FieldIterationPath)+"'") {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}
