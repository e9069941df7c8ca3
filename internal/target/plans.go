package target

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/transport"
)

type planJSON struct {
	ID        transport.FlexInt `json:"id"`
	Name      string            `json:"name"`
	RootSuite transport.Ref     `json:"rootSuite"`
}

type suiteJSON struct {
	ID     transport.FlexInt `json:"id"`
	Name   string            `json:"name"`
	Parent *transport.Ref    `json:"parent"`
}

// CreatePlan creates a plan. The destination creates its root suite along
// with it.
func (s *Session) CreatePlan(ctx context.Context, draft domain.PlanDraft) (domain.DestPlan, error) {
	body := map[string]any{
		"name":        draft.Name,
		"description": draft.Description,
	}
	if draft.AreaPath != "" {
		body["area"] = map[string]string{"name": draft.AreaPath}
	}
	if draft.Iteration != "" {
		body["iteration"] = draft.Iteration
	}

	var out planJSON
	err := s.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   s.projectPath("test", "plans"),
		Body:   body,
	}, &out)
	if err != nil {
		return domain.DestPlan{}, classify("plan "+draft.Name, err)
	}
	return domain.DestPlan{ID: int(out.ID), RootSuiteID: int(out.RootSuite.ID)}, nil
}

func (s *Session) GetPlan(ctx context.Context, planID int) (domain.DestPlan, error) {
	var out planJSON
	err := s.do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   s.projectPath("test", "plans", strconv.Itoa(planID)),
	}, &out)
	if err != nil {
		if transport.StatusCode(err) == http.StatusNotFound {
			return domain.DestPlan{}, fmt.Errorf("destination plan %d: %w", planID, domain.ErrNotFound)
		}
		return domain.DestPlan{}, err
	}
	return domain.DestPlan{ID: int(out.ID), RootSuiteID: int(out.RootSuite.ID)}, nil
}

func (s *Session) listSuites(ctx context.Context, planID int) ([]suiteJSON, error) {
	var out transport.Collection[suiteJSON]
	err := s.do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   s.projectPath("test", "plans", strconv.Itoa(planID), "suites"),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

// FindSuiteIDsByName returns the direct children of parentID called name,
// in destination order.
func (s *Session) FindSuiteIDsByName(ctx context.Context, planID, parentID int, name string) ([]int, error) {
	suites, err := s.listSuites(ctx, planID)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, st := range suites {
		if st.Parent != nil && int(st.Parent.ID) == parentID && st.Name == name {
			ids = append(ids, int(st.ID))
		}
	}
	return ids, nil
}

// CreateSuite creates a suite under parentID, which may be the plan's root
// suite. A parent missing from the destination plan yields
// *domain.ParentNotFoundError.
func (s *Session) CreateSuite(ctx context.Context, planID int, draft domain.SuiteDraft, parentID int) (int, error) {
	body := map[string]any{
		"suiteType":   string(draft.Kind()),
		"name":        draft.Name,
		"description": draft.Description,
	}
	if dyn, ok := draft.Content.(domain.DynamicContent); ok {
		body["queryString"] = dyn.Query
	}

	var out transport.Collection[suiteJSON]
	err := s.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   s.projectPath("test", "plans", strconv.Itoa(planID), "suites", strconv.Itoa(parentID)),
		Body:   body,
	}, &out)
	if err != nil {
		if transport.StatusCode(err) == http.StatusNotFound {
			return 0, &domain.ParentNotFoundError{PlanID: planID, ParentID: parentID}
		}
		return 0, classify("suite "+draft.Name, err)
	}
	if len(out.Value) == 0 {
		return 0, fmt.Errorf("creating suite %q: empty response", draft.Name)
	}
	return int(out.Value[0].ID), nil
}

// LinkCaseToSuite adds a test case to a static suite. Linking a case that is
// already in the suite succeeds.
func (s *Session) LinkCaseToSuite(ctx context.Context, planID, suiteID, caseID int) error {
	err := s.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path: s.projectPath("test", "plans", strconv.Itoa(planID), "suites", strconv.Itoa(suiteID),
			"testcases", strconv.Itoa(caseID)),
	}, nil)
	if transport.StatusCode(err) == http.StatusConflict {
		return nil
	}
	return classify(fmt.Sprintf("link of case %d", caseID), err)
}
