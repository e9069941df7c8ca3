package testutil

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// FakeSuite is a suite as the fake destination stores it.
type FakeSuite struct {
	ID          int
	PlanID      int
	ParentID    int // 0 for a plan root
	Name        string
	Kind        domain.SuiteKind
	Query       string
	Description string
	Children    []int
	Cases       []int
}

// FakeWorkItem is a work item as the fake destination stores it.
type FakeWorkItem struct {
	ID      int
	Type    string
	Fields  map[string]string
	Updates []map[string]string
}

// FakeTarget is an in-memory destination. Every write appends to Calls in
// the form "Op:name". Log holds every plan, suite and case call, reads and
// no-op links included. Fail* maps inject a write error by entity name.
type FakeTarget struct {
	Plans     map[int]domain.PlanDraft
	Roots     map[int]int // plan id -> root suite id
	Suites    map[int]*FakeSuite
	Cases     map[int]domain.CaseDraft
	Nodes     map[domain.StructureType]map[string]*domain.Node
	WorkItems map[int]*FakeWorkItem
	Calls     []string
	Log       []string

	FailPlan     map[string]error
	FailSuite    map[string]error
	FailCase     map[string]error
	FailNode     map[string]error
	FailWorkItem map[string]error
	FailLink     error

	nextID int
}

func NewFakeTarget() *FakeTarget {
	return &FakeTarget{
		Plans:        make(map[int]domain.PlanDraft),
		Roots:        make(map[int]int),
		Suites:       make(map[int]*FakeSuite),
		Cases:        make(map[int]domain.CaseDraft),
		Nodes:        map[domain.StructureType]map[string]*domain.Node{},
		WorkItems:    make(map[int]*FakeWorkItem),
		FailPlan:     make(map[string]error),
		FailSuite:    make(map[string]error),
		FailCase:     make(map[string]error),
		FailNode:     make(map[string]error),
		FailWorkItem: make(map[string]error),
		nextID:       1000,
	}
}

func (f *FakeTarget) newID() int {
	f.nextID++
	return f.nextID
}

// SuiteCreations returns the names passed to CreateSuite in call order.
func (f *FakeTarget) SuiteCreations() []string {
	var names []string
	for _, c := range f.Calls {
		if name, ok := strings.CutPrefix(c, "CreateSuite:"); ok {
			names = append(names, name)
		}
	}
	return names
}

// Writes counts calls that created or changed something.
func (f *FakeTarget) Writes() int {
	return len(f.Calls)
}

// SeedNode registers an existing classification node at path.
func (f *FakeTarget) SeedNode(structure domain.StructureType, path, name string) *domain.Node {
	if f.Nodes[structure] == nil {
		f.Nodes[structure] = make(map[string]*domain.Node)
	}
	n := &domain.Node{ID: f.newID(), Name: name, Path: path}
	f.Nodes[structure][path] = n
	return n
}

func (f *FakeTarget) CreatePlan(ctx context.Context, draft domain.PlanDraft) (domain.DestPlan, error) {
	if err, ok := f.FailPlan[draft.Name]; ok {
		return domain.DestPlan{}, err
	}
	f.Log = append(f.Log, "CreatePlan:"+draft.Name)
	f.Calls = append(f.Calls, "CreatePlan:"+draft.Name)
	id := f.newID()
	root := f.newID()
	f.Plans[id] = draft
	f.Roots[id] = root
	f.Suites[root] = &FakeSuite{ID: root, PlanID: id, Name: draft.Name, Kind: domain.SuiteStatic}
	return domain.DestPlan{ID: id, RootSuiteID: root}, nil
}

func (f *FakeTarget) GetPlan(ctx context.Context, planID int) (domain.DestPlan, error) {
	f.Log = append(f.Log, fmt.Sprintf("GetPlan:%d", planID))
	root, ok := f.Roots[planID]
	if !ok {
		return domain.DestPlan{}, fmt.Errorf("plan %d: %w", planID, domain.ErrNotFound)
	}
	return domain.DestPlan{ID: planID, RootSuiteID: root}, nil
}

// FindSuiteIDsByName returns the children of parentID called name.
func (f *FakeTarget) FindSuiteIDsByName(ctx context.Context, planID, parentID int, name string) ([]int, error) {
	f.Log = append(f.Log, fmt.Sprintf("FindSuites:%s", name))
	parent, ok := f.Suites[parentID]
	if !ok || parent.PlanID != planID {
		return nil, nil
	}
	var ids []int
	for _, id := range parent.Children {
		if f.Suites[id].Name == name {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *FakeTarget) CreateSuite(ctx context.Context, planID int, draft domain.SuiteDraft, parentID int) (int, error) {
	if err, ok := f.FailSuite[draft.Name]; ok {
		return 0, err
	}
	parent, ok := f.Suites[parentID]
	if !ok || parent.PlanID != planID {
		return 0, &domain.ParentNotFoundError{PlanID: planID, ParentID: parentID}
	}
	f.Log = append(f.Log, "CreateSuite:"+draft.Name)
	f.Calls = append(f.Calls, "CreateSuite:"+draft.Name)
	s := &FakeSuite{
		ID:          f.newID(),
		PlanID:      planID,
		ParentID:    parentID,
		Name:        draft.Name,
		Kind:        draft.Kind(),
		Description: draft.Description,
	}
	if dyn, ok := draft.Content.(domain.DynamicContent); ok {
		s.Query = dyn.Query
	}
	f.Suites[s.ID] = s
	parent.Children = append(parent.Children, s.ID)
	return s.ID, nil
}

func (f *FakeTarget) CreateCase(ctx context.Context, draft domain.CaseDraft) (int, error) {
	if err, ok := f.FailCase[draft.Title]; ok {
		return 0, err
	}
	f.Log = append(f.Log, "CreateCase:"+draft.Title)
	f.Calls = append(f.Calls, "CreateCase:"+draft.Title)
	id := f.newID()
	f.Cases[id] = draft
	return id, nil
}

func (f *FakeTarget) LinkCaseToSuite(ctx context.Context, planID, suiteID, caseID int) error {
	f.Log = append(f.Log, fmt.Sprintf("LinkCase:%d", caseID))
	if f.FailLink != nil {
		return f.FailLink
	}
	s, ok := f.Suites[suiteID]
	if !ok || s.PlanID != planID {
		return fmt.Errorf("suite %d: %w", suiteID, domain.ErrNotFound)
	}
	for _, c := range s.Cases {
		if c == caseID {
			return nil
		}
	}
	f.Calls = append(f.Calls, fmt.Sprintf("LinkCase:%d", caseID))
	s.Cases = append(s.Cases, caseID)
	return nil
}

func (f *FakeTarget) CreateNode(ctx context.Context, structure domain.StructureType, parentPath, name string) (*domain.Node, error) {
	path := domain.JoinNodePath(parentPath, name)
	if err, ok := f.FailNode[path]; ok {
		return nil, err
	}
	if _, exists := f.Nodes[structure][path]; exists {
		return nil, &domain.DuplicateNodeError{Structure: structure, Path: path}
	}
	f.Calls = append(f.Calls, "CreateNode:"+path)
	return f.SeedNode(structure, path, name), nil
}

func (f *FakeTarget) GetNode(ctx context.Context, structure domain.StructureType, path string) (*domain.Node, error) {
	n, ok := f.Nodes[structure][path]
	if !ok {
		return nil, fmt.Errorf("%s node %q: %w", structure, path, domain.ErrNotFound)
	}
	return n, nil
}

func (f *FakeTarget) CreateWorkItem(ctx context.Context, wiType string, fields map[string]string) (int, error) {
	title := fields[domain.FieldTitle]
	if err, ok := f.FailWorkItem[title]; ok {
		return 0, err
	}
	f.Calls = append(f.Calls, "CreateWorkItem:"+title)
	id := f.newID()
	f.WorkItems[id] = &FakeWorkItem{ID: id, Type: wiType, Fields: maps.Clone(fields)}
	return id, nil
}

func (f *FakeTarget) UpdateWorkItem(ctx context.Context, id int, fields map[string]string) error {
	wi, ok := f.WorkItems[id]
	if !ok {
		return fmt.Errorf("work item %d: %w", id, domain.ErrNotFound)
	}
	f.Calls = append(f.Calls, fmt.Sprintf("UpdateWorkItem:%d", id))
	wi.Updates = append(wi.Updates, maps.Clone(fields))
	maps.Copy(wi.Fields, fields)
	return nil
}
