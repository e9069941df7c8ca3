// Package target writes migrated entities to the destination server.
package target

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/transport"
)

const apiVersion = "5.0"

// ErrSessionClosed is returned by calls made after Close.
var ErrSessionClosed = errors.New("target session closed")

// Config identifies the destination project.
type Config struct {
	transport.Config
	Project string
}

// Session is an open connection to the destination project. It must be
// closed by the caller.
type Session struct {
	http    *transport.Client
	project string
	closed  bool
}

// Open verifies the project and credentials and returns a session.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Project == "" {
		return nil, errors.New("target project is required")
	}
	tc, err := transport.New(cfg.Config)
	if err != nil {
		return nil, err
	}
	s := &Session{http: tc, project: cfg.Project}

	var project struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err = tc.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/_apis/projects/" + url.PathEscape(cfg.Project),
		Query:  query(),
	}, &project)
	if err != nil {
		tc.CloseIdleConnections()
		if transport.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("target project %q: %w", cfg.Project, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("opening target session: %w", err)
	}
	return s, nil
}

// Close releases the session. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.http.CloseIdleConnections()
	return nil
}

// Project returns the destination project name.
func (s *Session) Project() string { return s.project }

func (s *Session) do(ctx context.Context, req transport.Request, out any) error {
	if s.closed {
		return ErrSessionClosed
	}
	if req.Query == nil {
		req.Query = query()
	}
	return s.http.Do(ctx, req, out)
}

func (s *Session) projectPath(parts ...string) string {
	return "/" + url.PathEscape(s.project) + "/_apis/" + strings.Join(parts, "/")
}

func query(kv ...string) url.Values {
	q := url.Values{"api-version": {apiVersion}}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q
}

// classify turns content rejections into *domain.ValidationError.
func classify(entity string, err error) error {
	var se *domain.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusBadRequest {
		return &domain.ValidationError{Entity: entity, Reasons: []string{transport.ParseErrorBody(se.Body).Message}}
	}
	return err
}
