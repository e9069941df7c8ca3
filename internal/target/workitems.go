package target

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/transport"
)

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// patchFields builds "add" operations in field name order so requests are
// reproducible.
func patchFields(fields map[string]string) []patchOp {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	ops := make([]patchOp, 0, len(names))
	for _, name := range names {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/" + name, Value: fields[name]})
	}
	return ops
}

type createdJSON struct {
	ID transport.FlexInt `json:"id"`
}

// CreateWorkItem creates a work item of wiType with the given fields.
func (s *Session) CreateWorkItem(ctx context.Context, wiType string, fields map[string]string) (int, error) {
	var out createdJSON
	err := s.do(ctx, transport.Request{
		Method:      http.MethodPost,
		Path:        s.projectPath("wit", "workitems", "$"+url.PathEscape(wiType)),
		Body:        patchFields(fields),
		ContentType: transport.ContentTypeJSONPatch,
	}, &out)
	if err != nil {
		return 0, classify(wiType+" "+fields[domain.FieldTitle], err)
	}
	return int(out.ID), nil
}

func (s *Session) UpdateWorkItem(ctx context.Context, id int, fields map[string]string) error {
	err := s.do(ctx, transport.Request{
		Method:      http.MethodPatch,
		Path:        "/_apis/wit/workitems/" + strconv.Itoa(id),
		Body:        patchFields(fields),
		ContentType: transport.ContentTypeJSONPatch,
	}, nil)
	return classify("work item "+strconv.Itoa(id), err)
}

// CreateCase creates a Test Case work item.
func (s *Session) CreateCase(ctx context.Context, draft domain.CaseDraft) (int, error) {
	fields := map[string]string{
		domain.FieldTitle: draft.Title,
	}
	if draft.AreaPath != "" {
		fields[domain.FieldAreaPath] = draft.AreaPath
	}
	if draft.Description != "" {
		fields[domain.FieldDescription] = draft.Description
	}
	if draft.Steps != "" {
		fields[domain.FieldSteps] = draft.Steps
	}
	return s.CreateWorkItem(ctx, "Test Case", fields)
}
