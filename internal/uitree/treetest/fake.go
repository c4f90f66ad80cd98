// Package treetest provides a buildable fake widget tree for tests.
// It plays the role the real toolkit glue plays in production: a concrete
// uitree.Node implementation whose shape tests can mutate between a
// recorded scenario and its replay.
package treetest

import "github.com/gui-replay/gui-replay/internal/uitree"

// Node is a fake widget. The zero value is usable; build trees with New.
type Node struct {
	Type string
	Name string
	Kids []*Node
}

// New returns a fake widget with the given type name, object name, and children.
func New(typeName, objectName string, kids ...*Node) *Node {
	return &Node{Type: typeName, Name: objectName, Kids: kids}
}

// TypeName implements uitree.Node.
func (n *Node) TypeName() string { return n.Type }

// ObjectName implements uitree.Node.
func (n *Node) ObjectName() string { return n.Name }

// Children implements uitree.Node.
func (n *Node) Children() []uitree.Node {
	out := make([]uitree.Node, len(n.Kids))
	for i, k := range n.Kids {
		out[i] = k
	}
	return out
}

// Add appends children to the node and returns the node for chaining.
func (n *Node) Add(kids ...*Node) *Node {
	n.Kids = append(n.Kids, kids...)
	return n
}

// Remove deletes the first child whose object name matches, recursing into
// the subtree. Returns true if a child was removed.
func (n *Node) Remove(objectName string) bool {
	for i, k := range n.Kids {
		if k.Name == objectName {
			n.Kids = append(n.Kids[:i], n.Kids[i+1:]...)
			return true
		}
	}
	for _, k := range n.Kids {
		if k.Remove(objectName) {
			return true
		}
	}
	return false
}

// Find returns the first node in the subtree with the given object name,
// or nil if absent.
func (n *Node) Find(objectName string) *Node {
	if n.Name == objectName {
		return n
	}
	for _, k := range n.Kids {
		if found := k.Find(objectName); found != nil {
			return found
		}
	}
	return nil
}

// Swap exchanges the children at positions i and j.
func (n *Node) Swap(i, j int) {
	n.Kids[i], n.Kids[j] = n.Kids[j], n.Kids[i]
}
