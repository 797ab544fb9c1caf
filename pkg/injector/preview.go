package injector

import (
	"fmt"

	"github.com/fpt/layerfill/pkg/document"
	"github.com/fpt/layerfill/pkg/resolver"
)

const (
	// placeholderOverrideValue stands in for an override's current value,
	// which is not read back from the instance.
	placeholderOverrideValue = "[component override]"
	placeholderNoData        = "[no data]"
)

// PreviewEntry describes what one binding would receive, without writing it.
type PreviewEntry struct {
	LayerName    string `json:"layerName"`
	LayerType    string `json:"layerType"`
	VariableName string `json:"variableName"`
	CurrentValue string `json:"currentValue"`
	NewValue     string `json:"newValue"`
	WillUpdate   bool   `json:"willUpdate"`
}

// Preview is a pure dry run of Inject: it resolves the selection and reports
// current and candidate values per binding. It must not mutate any node.
func Preview(data map[string]any, nodes ...*document.Node) []PreviewEntry {
	bindings := resolver.FindBindings(nodes...)
	entries := make([]PreviewEntry, 0, len(bindings))

	for _, b := range bindings {
		entry := PreviewEntry{
			LayerName:    b.Node.Name,
			LayerType:    string(b.Node.Kind),
			VariableName: b.VariableName,
		}

		switch b.Kind {
		case resolver.BindingText:
			entry.CurrentValue = b.Node.Text
		case resolver.BindingOverride:
			entry.CurrentValue = placeholderOverrideValue
		}

		value, ok := data[b.VariableName]
		if !ok || value == nil {
			entry.NewValue = placeholderNoData
		} else {
			entry.NewValue = Stringify(value)
			entry.WillUpdate = wouldWrite(b)
		}

		entries = append(entries, entry)
	}
	return entries
}

// wouldWrite mirrors write's preconditions without touching the tree.
func wouldWrite(b resolver.Binding) bool {
	switch b.Kind {
	case resolver.BindingText:
		return b.Node.IsTextBearing()
	case resolver.BindingOverride:
		return b.Node.FindOverride(b.OverrideID) != nil
	}
	return false
}

// DataValidation is the validateData result shape.
type DataValidation struct {
	IsValid     bool     `json:"isValid"`
	Message     string   `json:"message"`
	MissingKeys []string `json:"missingKeys,omitempty"`
}

// ValidateData prechecks generated data against the keys a run requires.
// An empty requiredKeys list always validates, whatever the data looks like.
func ValidateData(data map[string]any, requiredKeys []string) DataValidation {
	if len(requiredKeys) == 0 {
		return DataValidation{IsValid: true, Message: "no keys required"}
	}
	if data == nil {
		return DataValidation{
			IsValid:     false,
			Message:     "generated data is not an object",
			MissingKeys: append([]string(nil), requiredKeys...),
		}
	}

	missing := make([]string, 0)
	for _, key := range requiredKeys {
		if _, ok := data[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return DataValidation{
			IsValid:     false,
			Message:     fmt.Sprintf("generated data is missing %d required key(s)", len(missing)),
			MissingKeys: missing,
		}
	}
	return DataValidation{IsValid: true, Message: "all required keys present"}
}
