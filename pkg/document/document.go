// Package document models the design-document tree layerfill operates on:
// named layers, a closed set of layer kinds, and per-instance overrides.
package document

import "fmt"

// NodeKind identifies what a layer is. The set is closed; parsing rejects
// anything else so later stages never probe for fields at runtime.
type NodeKind string

const (
	KindText      NodeKind = "TEXT"
	KindFrame     NodeKind = "FRAME"
	KindGroup     NodeKind = "GROUP"
	KindComponent NodeKind = "COMPONENT"
	KindInstance  NodeKind = "INSTANCE"
)

var validKinds = map[NodeKind]bool{
	KindText:      true,
	KindFrame:     true,
	KindGroup:     true,
	KindComponent: true,
	KindInstance:  true,
}

// Node is one layer of the document tree. Text lives only on KindText nodes,
// Overrides only on KindInstance nodes; other combinations are rejected at
// parse time.
type Node struct {
	Name      string      `json:"name" yaml:"name"`
	Kind      NodeKind    `json:"kind" yaml:"kind"`
	Text      string      `json:"text,omitempty" yaml:"text,omitempty"`
	Children  []*Node     `json:"children,omitempty" yaml:"children,omitempty"`
	Overrides []*Override `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Override is a per-instance mutable slot shadowing a value defined on the
// backing component, addressed by identifier. Affected is read only for its
// name; injection writes Value.
type Override struct {
	ID       string `json:"id" yaml:"id"`
	Affected *Node  `json:"affected" yaml:"affected"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
}

// IsTextBearing reports whether the node can carry injected text.
func (n *Node) IsTextBearing() bool {
	return n.Kind == KindText
}

// IsInstance reports whether the node is a component instance with overrides.
func (n *Node) IsInstance() bool {
	return n.Kind == KindInstance
}

// FindOverride returns the override with the given identifier, or nil.
func (n *Node) FindOverride(id string) *Override {
	for _, ov := range n.Overrides {
		if ov != nil && ov.ID == id {
			return ov
		}
	}
	return nil
}

// Validate checks the node and its subtree against the closed kind set.
// A nil node is valid here; callers that forbid nils check separately.
func (n *Node) Validate() error {
	if n == nil {
		return nil
	}
	if !validKinds[n.Kind] {
		return fmt.Errorf("layer %q: unknown kind %q", n.Name, n.Kind)
	}
	if n.Text != "" && n.Kind != KindText {
		return fmt.Errorf("layer %q: kind %s cannot carry text", n.Name, n.Kind)
	}
	if len(n.Overrides) > 0 && n.Kind != KindInstance {
		return fmt.Errorf("layer %q: kind %s cannot carry overrides", n.Name, n.Kind)
	}
	for _, ov := range n.Overrides {
		if ov == nil {
			continue
		}
		if ov.ID == "" {
			return fmt.Errorf("layer %q: override with empty id", n.Name)
		}
		if ov.Affected == nil {
			return fmt.Errorf("layer %q: override %s has no affected layer", n.Name, ov.ID)
		}
	}
	for _, child := range n.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}
