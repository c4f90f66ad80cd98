// Package locator maps widgets to structural addresses and back.
// AddressOf captures an address at record time; Resolve relocates it in a
// live tree at replay time. Both walks are read-only and deterministic for
// an identical tree shape.
package locator

import (
	"fmt"

	"github.com/gui-replay/gui-replay/internal/scenario"
	"github.com/gui-replay/gui-replay/internal/uitree"
)

// Reason classifies why an address failed to resolve.
type Reason string

// Resolution failure reasons.
const (
	// ReasonNotFound: no candidate satisfies the segment, or the recorded
	// sibling index is out of range after type filtering.
	ReasonNotFound Reason = "not-found"
	// ReasonAmbiguousMatch: more than one sibling carries the recorded
	// object name, so selection would be a guess.
	ReasonAmbiguousMatch Reason = "ambiguous-match"
	// ReasonTypeMismatch: a named match exists but its type disagrees with
	// the recorded type; the identifier was likely renamed or reused.
	ReasonTypeMismatch Reason = "type-mismatch"
)

// ResolutionError reports a failed address resolution.
type ResolutionError struct {
	Address scenario.Address
	Segment int // index of the segment that failed
	Reason  Reason
	Detail  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %s at segment %d: %s (%s)",
		e.Address, e.Segment, e.Reason, e.Detail)
}

// AddressOf computes the structural address of target within the tree
// rooted at root: for each level, the declared type, the object name if
// set, and the sibling-order index among same-type siblings. Returns an
// empty address when target is the root itself.
//
// Nodes are matched by interface identity, so target must be the same
// handle the tree hands out via Children().
func AddressOf(root, target uitree.Node) (scenario.Address, error) {
	if root == target {
		return scenario.Address{}, nil
	}
	path, ok := pathTo(root, target)
	if !ok {
		return nil, fmt.Errorf("widget %s(%q) has no ancestor chain to the root",
			target.TypeName(), target.ObjectName())
	}

	addr := make(scenario.Address, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		parent, node := path[i-1], path[i]
		idx := typedIndex(parent, node)
		if idx < 0 {
			// Children() changed between walks; surface rather than guess.
			return nil, fmt.Errorf("widget %s(%q) vanished from its parent during address capture",
				node.TypeName(), node.ObjectName())
		}
		addr = append(addr, scenario.Segment{
			Type:  node.TypeName(),
			Name:  node.ObjectName(),
			Index: idx,
		})
	}
	return addr, nil
}

// Resolve walks the address top-down against the live tree and returns the
// widget it denotes. The empty address resolves to root.
//
// Per segment: a recorded object name must match exactly one child (a name
// match with a different type is a TypeMismatch, several matches are an
// AmbiguousMatch); segments recorded without a name fall back to the
// recorded sibling index among same-type children. The positional fallback
// means two unnamed same-type siblings that swap order between record and
// replay swap their events; intentional, documented behavior.
func Resolve(root uitree.Node, addr scenario.Address) (uitree.Node, error) {
	cur := root
	for i, seg := range addr {
		next, err := resolveSegment(cur, seg)
		if err != nil {
			rerr := err.(*ResolutionError)
			rerr.Address = addr
			rerr.Segment = i
			return nil, rerr
		}
		cur = next
	}
	return cur, nil
}

// resolveSegment selects one child of cur matching seg. The returned error
// is always a *ResolutionError with Address/Segment left for Resolve to fill.
func resolveSegment(cur uitree.Node, seg scenario.Segment) (uitree.Node, error) {
	children := cur.Children()

	if seg.Name != "" {
		var matches []uitree.Node
		for _, c := range children {
			if c.ObjectName() == seg.Name {
				matches = append(matches, c)
			}
		}
		switch {
		case len(matches) == 0:
			return nil, &ResolutionError{
				Reason: ReasonNotFound,
				Detail: fmt.Sprintf("no child named %q under %s", seg.Name, describe(cur)),
			}
		case len(matches) > 1:
			return nil, &ResolutionError{
				Reason: ReasonAmbiguousMatch,
				Detail: fmt.Sprintf("%d children named %q under %s", len(matches), seg.Name, describe(cur)),
			}
		case matches[0].TypeName() != seg.Type:
			return nil, &ResolutionError{
				Reason: ReasonTypeMismatch,
				Detail: fmt.Sprintf("child named %q is a %s, recorded as %s",
					seg.Name, matches[0].TypeName(), seg.Type),
			}
		}
		return matches[0], nil
	}

	// Positional fallback: recorded sibling index among same-type children.
	var typed []uitree.Node
	for _, c := range children {
		if c.TypeName() == seg.Type {
			typed = append(typed, c)
		}
	}
	if seg.Index >= len(typed) {
		return nil, &ResolutionError{
			Reason: ReasonNotFound,
			Detail: fmt.Sprintf("%d %s children under %s, recorded index %d",
				len(typed), seg.Type, describe(cur), seg.Index),
		}
	}
	return typed[seg.Index], nil
}

// pathTo returns the node chain from root to target inclusive, or false if
// target is not reachable from root.
func pathTo(root, target uitree.Node) ([]uitree.Node, bool) {
	if root == target {
		return []uitree.Node{root}, true
	}
	for _, child := range root.Children() {
		if path, ok := pathTo(child, target); ok {
			return append([]uitree.Node{root}, path...), true
		}
	}
	return nil, false
}

// typedIndex returns node's position among parent's children of the same
// type, or -1 if node is not a child of parent.
func typedIndex(parent, node uitree.Node) int {
	idx := 0
	for _, c := range parent.Children() {
		if c == node {
			return idx
		}
		if c.TypeName() == node.TypeName() {
			idx++
		}
	}
	return -1
}

// describe renders a node for diagnostics.
func describe(n uitree.Node) string {
	if n.ObjectName() != "" {
		return fmt.Sprintf("%s(%q)", n.TypeName(), n.ObjectName())
	}
	return n.TypeName()
}
