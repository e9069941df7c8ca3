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

type nodeJSON struct {
	ID   transport.FlexInt `json:"id"`
	Name string            `json:"name"`
}

// nodeURLPath converts a full node path (project root first) into the
// relative URL path below the structure root.
func nodeURLPath(path string) string {
	parts := strings.Split(path, `\`)
	if len(parts) <= 1 {
		return ""
	}
	escaped := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.Join(escaped, "/")
}

func (s *Session) nodePath(structure domain.StructureType, path string) string {
	p := s.projectPath("wit", "classificationnodes", string(structure))
	if rel := nodeURLPath(path); rel != "" {
		p += "/" + rel
	}
	return p
}

// CreateNode creates name under parentPath. An existing node at that path
// yields *domain.DuplicateNodeError.
func (s *Session) CreateNode(ctx context.Context, structure domain.StructureType, parentPath, name string) (*domain.Node, error) {
	path := domain.JoinNodePath(parentPath, name)
	var out nodeJSON
	err := s.do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   s.nodePath(structure, parentPath),
		Body:   map[string]string{"name": name},
	}, &out)
	if err != nil {
		if isDuplicateNode(err) {
			return nil, &domain.DuplicateNodeError{Structure: structure, Path: path}
		}
		return nil, classify(fmt.Sprintf("%s node %s", structure, path), err)
	}
	return &domain.Node{ID: int(out.ID), Name: out.Name, Path: path}, nil
}

func (s *Session) GetNode(ctx context.Context, structure domain.StructureType, path string) (*domain.Node, error) {
	var out nodeJSON
	err := s.do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   s.nodePath(structure, path),
	}, &out)
	if err != nil {
		if transport.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%s node %q: %w", structure, path, domain.ErrNotFound)
		}
		return nil, err
	}
	return &domain.Node{ID: int(out.ID), Name: out.Name, Path: path}, nil
}

func isDuplicateNode(err error) bool {
	var se *domain.StatusError
	if !errors.As(err, &se) {
		return false
	}
	if se.StatusCode == http.StatusConflict {
		return true
	}
	if se.StatusCode != http.StatusBadRequest {
		return false
	}
	body := transport.ParseErrorBody(se.Body)
	return strings.Contains(body.TypeKey, "DuplicateName") ||
		strings.Contains(strings.ToLower(body.Message), "already exists")
}
