package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document is a design file held in memory: the root nodes plus the shape the
// file had on disk, so a save reproduces what was loaded. Nodes are shared by
// pointer, so writes made through a narrowed selection are visible here too.
type Document struct {
	Roots []*Node
	// List records whether the file held a sequence of roots rather than a
	// single object.
	List bool
}

// LoadFile reads a document file (.json, .yaml or .yml). A file may hold a
// single node object or a sequence of nodes; the shape is kept on the
// returned Document so SaveFile round-trips it.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}

	var doc *Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		doc, err = decodeJSON(data)
	case ".yaml", ".yml":
		doc, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported document format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse document %s", filepath.Base(path))
	}

	for _, n := range doc.Roots {
		if err := n.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid document")
		}
	}
	return doc, nil
}

// SaveFile writes the whole document back out, choosing the encoding from the
// file extension and the shape from how the document was loaded.
func SaveFile(path string, doc *Document) error {
	var out any = doc.Roots
	if !doc.List && len(doc.Roots) == 1 {
		out = doc.Roots[0]
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(out, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(out)
	default:
		return fmt.Errorf("unsupported document format: %s", filepath.Ext(path))
	}
	if err != nil {
		return errors.Wrap(err, "encode document")
	}

	return errors.Wrap(os.WriteFile(path, data, 0644), "write document")
}

func decodeJSON(data []byte) (*Document, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var nodes []*Node
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, err
		}
		return &Document{Roots: nodes, List: true}, nil
	}
	var node Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return &Document{Roots: []*Node{&node}}, nil
}

func decodeYAML(data []byte) (*Document, error) {
	var probe any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe.([]any); ok {
		var nodes []*Node
		if err := yaml.Unmarshal(data, &nodes); err != nil {
			return nil, err
		}
		return &Document{Roots: nodes, List: true}, nil
	}
	var node Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return &Document{Roots: []*Node{&node}}, nil
}

// FindByName returns the first node in pre-order whose name matches, or nil.
// Used by the CLI --select filter to narrow the working selection.
func FindByName(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Name == name {
			return n
		}
		if found := FindByName(n.Children, name); found != nil {
			return found
		}
	}
	return nil
}
