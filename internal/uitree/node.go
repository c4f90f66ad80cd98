// Package uitree defines the minimal widget-tree capability set the
// record/replay engine depends on. Toolkit glue implements Node for the
// concrete GUI framework; the engine never sees toolkit types.
package uitree

// Node is one widget in a live application's tree.
//
// Implementations must be comparable by interface identity (pointer
// receivers): the locator relies on == to find a node's position among
// its siblings. All three methods are read-only.
type Node interface {
	// TypeName returns the widget's declared class/type name.
	TypeName() string

	// ObjectName returns the widget's explicitly-set unique name, or ""
	// if none was set. Uniqueness within the parent's scope is the
	// application author's responsibility and is not enforced here.
	ObjectName() string

	// Children returns the widget's direct children in stable sibling order.
	Children() []Node
}
