package target

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestSession serves the project check itself and hands every other
// request to handler.
func openTestSession(t *testing.T, handler http.HandlerFunc) *Session {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/_apis/projects/Target", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"abc","name":"Target"}`)
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s, err := Open(context.Background(), Config{
		Config:  transport.Config{BaseURL: srv.URL, User: "u", Token: "t"},
		Project: "Target",
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), Config{Config: transport.Config{BaseURL: srv.URL}, Project: "Target"})
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.True(t, domain.IsFatal(err))
}

func TestOpen_UnknownProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), Config{Config: transport.Config{BaseURL: srv.URL}, Project: "Nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSession_CloseRejectsCalls(t *testing.T) {
	s := openTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.CreatePlan(context.Background(), domain.PlanDraft{Name: "x"})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_CreatePlan(t *testing.T) {
	s := openTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Target/_apis/test/plans", r.URL.Path)
		assert.Equal(t, "5.0", r.URL.Query().Get("api-version"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Release", body["name"])
		assert.Equal(t, map[string]any{"name": `Target\Web`}, body["area"])
		fmt.Fprint(w, `{"id":70,"name":"Release","rootSuite":{"id":"71"}}`)
	})

	plan, err := s.CreatePlan(context.Background(), domain.PlanDraft{Name: "Release", AreaPath: `Target\Web`})
	require.NoError(t, err)
	assert.Equal(t, domain.DestPlan{ID: 70, RootSuiteID: 71}, plan)
}

func TestSession_FindSuiteIDsByName(t *testing.T) {
	s := openTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Target/_apis/test/plans/70/suites", r.URL.Path)
		fmt.Fprint(w, `{"count":6,"value":[
			{"id":71,"name":"Release"},
			{"id":72,"name":"Smoke","parent":{"id":"71"}},
			{"id":73,"name":"Login","parent":{"id":"72"}},
			{"id":74,"name":"Login","parent":{"id":"71"}},
			{"id":75,"name":"Other","parent":{"id":"71"}},
			{"id":76,"name":"Login","parent":{"id":"71"}}]}`)
	})
	ctx := context.Background()

	ids, err := s.FindSuiteIDsByName(ctx, 70, 71, "Login")
	require.NoError(t, err)
	assert.Equal(t, []int{74, 76}, ids)

	ids, err = s.FindSuiteIDsByName(ctx, 70, 72, "Login")
	require.NoError(t, err)
	assert.Equal(t, []int{73}, ids)

	ids, err = s.FindSuiteIDsByName(ctx, 70, 75, "Login")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSession_CreateSuite(t *testing.T) {
	s := openTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Target/_apis/test/plans/70/suites/71":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "DynamicTestSuite", body["suiteType"])
			assert.Equal(t, "select 1", body["queryString"])
			fmt.Fprint(w, `{"count":1,"value":[{"id":80,"name":"Dyn"}]}`)
		case "/Target/_apis/test/plans/70/suites/99":
			w.WriteHeader(http.StatusNotFound)
		case "/Target/_apis/test/plans/70/suites/72":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"name is too long"}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	id, err := s.CreateSuite(ctx, 70, domain.SuiteDraft{Name: "Dyn", Content: domain.DynamicContent{Query: "select 1"}}, 71)
	require.NoError(t, err)
	assert.Equal(t, 80, id)

	_, err = s.CreateSuite(ctx, 70, domain.SuiteDraft{Name: "x"}, 99)
	var pnf *domain.ParentNotFoundError
	require.True(t, errors.As(err, &pnf))
	assert.Equal(t, 99, pnf.ParentID)

	_, err = s.CreateSuite(ctx, 70, domain.SuiteDraft{Name: "y"}, 72)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"name is too long"}, ve.Reasons)
	assert.False(t, domain.IsFatal(err))
}

func TestSession_LinkCaseToSuite_AlreadyLinked(t *testing.T) {
	s := openTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Target/_apis/test/plans/70/suites/72/testcases/900", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
	})
	assert.NoError(t, s.LinkCaseToSuite(context.Background(), 70, 72, 900))
}

func TestSession_CreateCase(t *testing.T) {
	s := openTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Target/_apis/wit/workitems/$Test%20Case", r.URL.EscapedPath())
		assert.Equal(t, transport.ContentTypeJSONPatch, r.Header.Get("Content-Type"))
		var ops []patchOp
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ops))
		assert.Equal(t, []patchOp{
			{Op: "add", Path: "/fields/Microsoft.VSTS.TCM.Steps", Value: "<steps/>"},
			{Op: "add", Path: "/fields/System.AreaPath", Value: `Target\Web`},
			{Op: "add", Path: "/fields/System.Description", Value: "Assigned to: Jo"},
			{Op: "add", Path: "/fields/System.Title", Value: "Login"},
		}, ops)
		fmt.Fprint(w, `{"id":900}`)
	})

	id, err := s.CreateCase(context.Background(), domain.CaseDraft{
		Title: "Login", AreaPath: `Target\Web`, Description: "Assigned to: Jo", Steps: "<steps/>",
	})
	require.NoError(t, err)
	assert.Equal(t, 900, id)
}

func TestSession_UpdateWorkItem(t *testing.T) {
	s := openTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/_apis/wit/workitems/55", r.URL.Path)
		fmt.Fprint(w, `{"id":55}`)
	})
	assert.NoError(t, s.UpdateWorkItem(context.Background(), 55, map[string]string{domain.FieldState: "Resolved"}))
}

func TestSession_Nodes(t *testing.T) {
	s := openTestSession(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/Target/_apis/wit/classificationnodes/areas/Web":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["name"] == "Front End" {
				w.WriteHeader(http.StatusConflict)
				return
			}
			fmt.Fprintf(w, `{"id":5,"name":%q}`, body["name"])
		case r.Method == http.MethodGet && r.URL.Path == "/Target/_apis/wit/classificationnodes/areas/Web/Front End":
			fmt.Fprint(w, `{"id":6,"name":"Front End"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	n, err := s.CreateNode(ctx, domain.StructureAreas, `Target\Web`, "API")
	require.NoError(t, err)
	assert.Equal(t, `Target\Web\API`, n.Path)

	_, err = s.CreateNode(ctx, domain.StructureAreas, `Target\Web`, "Front End")
	var dup *domain.DuplicateNodeError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, `Target\Web\Front End`, dup.Path)

	n, err = s.GetNode(ctx, domain.StructureAreas, `Target\Web\Front End`)
	require.NoError(t, err)
	assert.Equal(t, 6, n.ID)

	_, err = s.GetNode(ctx, domain.StructureAreas, `Target\Nope`)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIsDuplicateNode(t *testing.T) {
	assert.True(t, isDuplicateNode(&domain.StatusError{StatusCode: 400,
		Body: `{"message":"VS402371: Classification node name Web is already in use","typeKey":"ClassificationNodeDuplicateNameException"}`}))
	assert.True(t, isDuplicateNode(&domain.StatusError{StatusCode: 400, Body: "node already exists"}))
	assert.False(t, isDuplicateNode(&domain.StatusError{StatusCode: 400, Body: "bad name"}))
	assert.False(t, isDuplicateNode(errors.New("boom")))
}
