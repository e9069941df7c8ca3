package domain

import "strings"

// Node is a classification node (area or iteration) of a project tree.
type Node struct {
	ID       int
	Name     string
	Path     string
	Children []*Node
}

// HasChildren reports whether the node has child nodes.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// NodeName normalizes a source node name for the destination: '+' is not a
// legal character there and becomes a space.
func NodeName(name string) string {
	return strings.ReplaceAll(name, "+", " ")
}

// JoinNodePath appends name to a backslash separated node path.
func JoinNodePath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + `\` + name
}
