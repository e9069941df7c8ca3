// Package source reads test plans, suites, cases and work items from the
// origin server.
package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/transport"
)

const (
	apiVersion = "1.0"

	// DefaultPageSize is the $top used for paged list endpoints.
	DefaultPageSize = 200

	// workItemBatch is the most ids the work item endpoint accepts at once.
	workItemBatch = 200
)

// Reader is the read-only view of the origin server.
type Reader interface {
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	ListSuites(ctx context.Context, planID int) ([]domain.Suite, error)
	GetSuiteWithChildren(ctx context.Context, planID, suiteID int) (*domain.Suite, error)
	ListCases(ctx context.Context, planID, suiteID int) ([]int, error)
	GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error)
	GetAreaTree(ctx context.Context, structure domain.StructureType) (*domain.Node, error)
	QueryWorkItems(ctx context.Context, wiql string) ([]int, error)
}

// Client is the plain HTTP implementation of Reader. Failures come back
// unclassified; wrap it in Retrying for the retry budget.
type Client struct {
	http     *transport.Client
	project  string
	pageSize int
}

func NewClient(tc *transport.Client, project string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{http: tc, project: project, pageSize: pageSize}
}

func (c *Client) projectPath(parts ...string) string {
	return "/" + url.PathEscape(c.project) + "/_apis/" + strings.Join(parts, "/")
}

func query(kv ...string) url.Values {
	q := url.Values{"api-version": {apiVersion}}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q
}

// listAll follows $top/$skip paging until a short page is returned.
func listAll[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, error) {
	var all []T
	for skip := 0; ; skip += c.pageSize {
		q.Set("$top", strconv.Itoa(c.pageSize))
		q.Set("$skip", strconv.Itoa(skip))
		var page transport.Collection[T]
		if err := c.http.Do(ctx, transport.Request{Method: http.MethodGet, Path: path, Query: q}, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Value...)
		if len(page.Value) < c.pageSize {
			return all, nil
		}
	}
}

func (c *Client) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	raw, err := listAll[planJSON](ctx, c, c.projectPath("test", "plans"), query())
	if err != nil {
		return nil, err
	}
	plans := make([]domain.Plan, 0, len(raw))
	for _, p := range raw {
		plans = append(plans, p.toDomain())
	}
	return plans, nil
}

func (c *Client) ListSuites(ctx context.Context, planID int) ([]domain.Suite, error) {
	path := c.projectPath("test", "plans", strconv.Itoa(planID), "suites")
	raw, err := listAll[suiteJSON](ctx, c, path, query())
	if err != nil {
		return nil, err
	}
	suites := make([]domain.Suite, 0, len(raw))
	for _, s := range raw {
		suites = append(suites, s.toDomain(planID))
	}
	return suites, nil
}

func (c *Client) GetSuiteWithChildren(ctx context.Context, planID, suiteID int) (*domain.Suite, error) {
	path := c.projectPath("test", "plans", strconv.Itoa(planID), "suites", strconv.Itoa(suiteID))
	var raw suiteJSON
	err := c.http.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query("includeChildSuites", "true"),
	}, &raw)
	if err != nil {
		return nil, err
	}
	s := raw.toDomain(planID)
	return &s, nil
}

func (c *Client) ListCases(ctx context.Context, planID, suiteID int) ([]int, error) {
	path := c.projectPath("test", "plans", strconv.Itoa(planID), "suites", strconv.Itoa(suiteID), "testcases")
	var raw transport.Collection[suiteCaseJSON]
	if err := c.http.Do(ctx, transport.Request{Method: http.MethodGet, Path: path, Query: query()}, &raw); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(raw.Value))
	for _, v := range raw.Value {
		if v.TestCase.ID != 0 {
			ids = append(ids, int(v.TestCase.ID))
		}
	}
	return ids, nil
}

// GetWorkItems fetches details in batches. Ids the server does not return
// are omitted from the result.
func (c *Client) GetWorkItems(ctx context.Context, ids []int) ([]domain.WorkItem, error) {
	var items []domain.WorkItem
	for start := 0; start < len(ids); start += workItemBatch {
		end := min(start+workItemBatch, len(ids))
		strs := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			strs = append(strs, strconv.Itoa(id))
		}
		q := query("ids", strings.Join(strs, ","), "$expand", "all", "errorPolicy", "omit")
		var raw transport.Collection[*workItemJSON]
		if err := c.http.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/_apis/wit/workitems", Query: q}, &raw); err != nil {
			return nil, err
		}
		for _, w := range raw.Value {
			if w != nil {
				items = append(items, w.toDomain())
			}
		}
	}
	return items, nil
}

func (c *Client) GetAreaTree(ctx context.Context, structure domain.StructureType) (*domain.Node, error) {
	var raw nodeJSON
	err := c.http.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   c.projectPath("wit", "classificationnodes", string(structure)),
		Query:  query("$depth", "20"),
	}, &raw)
	if err != nil {
		return nil, err
	}
	return raw.toDomain(""), nil
}

func (c *Client) QueryWorkItems(ctx context.Context, wiql string) ([]int, error) {
	var raw wiqlResultJSON
	err := c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   c.projectPath("wit", "wiql"),
		Query:  query(),
		Body:   map[string]string{"query": wiql},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	ids := make([]int, 0, len(raw.WorkItems))
	for _, r := range raw.WorkItems {
		ids = append(ids, int(r.ID))
	}
	return ids, nil
}
