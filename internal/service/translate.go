package service

import (
	"strings"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// Translator rewrites source project references for the destination.
type Translator struct {
	Source string
	Target string
}

// Path rewrites a classification path rooted at the source project to the
// destination project. Node names are normalized the way nodes are created.
// Paths rooted elsewhere are returned unchanged.
func (t Translator) Path(p string) string {
	if p == "" || t.Source == "" {
		return p
	}
	parts := strings.Split(p, `\`)
	if parts[0] != t.Source {
		return p
	}
	parts[0] = t.Target
	for i := 1; i < len(parts); i++ {
		parts[i] = domain.NodeName(parts[i])
	}
	return strings.Join(parts, `\`)
}

// Query rewrites quoted project paths inside a dynamic suite query.
func (t Translator) Query(q string) string {
	if t.Source == "" || t.Source == t.Target {
		return q
	}
	q = strings.ReplaceAll(q, "'"+t.Source+`\`, "'"+t.Target+`\`)
	return strings.ReplaceAll(q, "'"+t.Source+"'", "'"+t.Target+"'")
}

// Relative strips the project root from a path: `Proj\Sprint 1` -> `Sprint 1`.
func Relative(p string) string {
	if i := strings.IndexByte(p, '\\'); i >= 0 {
		return p[i+1:]
	}
	return ""
}
