// Package resolver walks a document selection and pairs placeholder layers
// with the variable names they are filled from.
package resolver

import (
	"fmt"
	"strings"

	"github.com/fpt/layerfill/pkg/document"
)

// Marker is the leading sentinel identifying a layer name as a placeholder.
// A bare "$" resolves to the empty variable name; downstream consumers treat
// that as a valid key.
const Marker = "$"

// BindingKind distinguishes a placeholder layer from a placeholder override.
type BindingKind string

const (
	BindingText     BindingKind = "text"
	BindingOverride BindingKind = "override"
)

// Binding pairs a variable name with the node (or override slot) it fills.
// Bindings are snapshots; they do not own the node. Several bindings may
// share one variable name, in which case one generated value fans out.
type Binding struct {
	VariableName string
	Node         *document.Node
	Kind         BindingKind
	OverrideID   string
}

// Selection is the validateSelection result shape handed to the UI.
type Selection struct {
	IsValid   bool     `json:"isValid"`
	Message   string   `json:"message"`
	Count     int      `json:"count,omitempty"`
	Variables []string `json:"variables,omitempty"`
}

// FindBindings walks the selection depth-first in pre-order and returns every
// placeholder binding. A node whose own name carries the marker yields a text
// binding; an instance additionally yields one override binding per override
// whose affected-layer name carries the marker. Recursion always continues
// into children, matched or not. Nil nodes are skipped.
func FindBindings(nodes ...*document.Node) []Binding {
	bindings := make([]Binding, 0)
	for _, n := range nodes {
		bindings = appendBindings(bindings, n)
	}
	return bindings
}

func appendBindings(bindings []Binding, n *document.Node) []Binding {
	if n == nil {
		return bindings
	}

	if name, ok := markerName(n.Name); ok {
		bindings = append(bindings, Binding{
			VariableName: name,
			Node:         n,
			Kind:         BindingText,
		})
	}

	if n.IsInstance() {
		for _, ov := range n.Overrides {
			if ov == nil || ov.Affected == nil {
				continue
			}
			if name, ok := markerName(ov.Affected.Name); ok {
				bindings = append(bindings, Binding{
					VariableName: name,
					Node:         n,
					Kind:         BindingOverride,
					OverrideID:   ov.ID,
				})
			}
		}
	}

	for _, child := range n.Children {
		bindings = appendBindings(bindings, child)
	}
	return bindings
}

// markerName strips the marker from a layer name. The marker alone matches
// with an empty variable name.
func markerName(layerName string) (string, bool) {
	if !strings.HasPrefix(layerName, Marker) {
		return "", false
	}
	return layerName[len(Marker):], true
}

// ExtractVariableNames returns the de-duplicated variable names across all
// bindings, in order of first occurrence.
func ExtractVariableNames(nodes ...*document.Node) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, b := range FindBindings(nodes...) {
		if seen[b.VariableName] {
			continue
		}
		seen[b.VariableName] = true
		names = append(names, b.VariableName)
	}
	return names
}

// GroupByVariable indexes bindings by variable name, preserving binding order
// within each group.
func GroupByVariable(bindings []Binding) map[string][]Binding {
	groups := make(map[string][]Binding)
	for _, b := range bindings {
		groups[b.VariableName] = append(groups[b.VariableName], b)
	}
	return groups
}

// ValidateSelection checks that the selection contains at least one
// placeholder and reports what was found.
func ValidateSelection(nodes ...*document.Node) Selection {
	bindings := FindBindings(nodes...)
	if len(bindings) == 0 {
		return Selection{
			IsValid: false,
			Message: "No placeholder layers found. Name layers with a leading '$' (e.g. $title) to mark them for filling.",
		}
	}

	variables := ExtractVariableNames(nodes...)
	return Selection{
		IsValid:   true,
		Message:   fmt.Sprintf("Found %d placeholder(s) across %d variable(s)", len(bindings), len(variables)),
		Count:     len(bindings),
		Variables: variables,
	}
}
