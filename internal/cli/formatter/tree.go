package formatter

import (
	"fmt"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/service"
	"github.com/charmbracelet/lipgloss/tree"
)

func newTree(root string) *tree.Tree {
	return tree.Root(root).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(StyleDim).
		RootStyle(StyleBold)
}

// FormatSuiteTree renders a plan's suite tree. Dynamic suites carry a badge.
func FormatSuiteTree(root *service.SuiteNode) string {
	if root == nil {
		return ""
	}
	t := newTree(suiteLabel(root.Suite))
	addSuites(t, root.Children)
	return t.String() + "\n"
}

func addSuites(t *tree.Tree, nodes []*service.SuiteNode) {
	for _, n := range nodes {
		if len(n.Children) == 0 {
			t.Child(suiteLabel(n.Suite))
			continue
		}
		sub := tree.Root(suiteLabel(n.Suite))
		addSuites(sub, n.Children)
		t.Child(sub)
	}
}

func suiteLabel(s *domain.Suite) string {
	label := fmt.Sprintf("%s %s", s.Name, Dim(fmt.Sprintf("#%d", s.ID)))
	if s.Kind() == domain.SuiteDynamic {
		label += " " + StyleBlue.Render("[ query ]")
	}
	return label
}

// FormatNodeTree renders an area or iteration tree.
func FormatNodeTree(root *domain.Node) string {
	if root == nil {
		return ""
	}
	t := newTree(root.Name)
	addNodes(t, root.Children)
	return t.String() + "\n"
}

func addNodes(t *tree.Tree, nodes []*domain.Node) {
	for _, n := range nodes {
		if !n.HasChildren() {
			t.Child(n.Name)
			continue
		}
		sub := tree.Root(n.Name)
		addNodes(sub, n.Children)
		t.Child(sub)
	}
}
