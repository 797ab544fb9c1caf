// Package injector writes generated values back into placeholder layers and
// reports per-binding outcomes. It never raises for malformed tree data: one
// bad binding degrades to a detail entry, not an aborted run.
package injector

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fpt/layerfill/pkg/document"
	pkgLogger "github.com/fpt/layerfill/pkg/logger"
	"github.com/fpt/layerfill/pkg/resolver"
)

var logger = pkgLogger.NewComponentLogger("injector")

// Status of one binding in an injection report.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

const (
	reasonNoData = "No data available"
	reasonFailed = "Injection failed"
)

// Detail records what happened to one binding.
type Detail struct {
	LayerName    string `json:"layerName"`
	VariableName string `json:"variableName"`
	Kind         string `json:"kind"`
	Value        string `json:"value,omitempty"`
	Status       Status `json:"status"`
	Reason       string `json:"reason,omitempty"`
}

// Report aggregates an injection run. Built fresh per call.
type Report struct {
	TotalUpdated int      `json:"totalUpdated"`
	SuccessCount int      `json:"successCount"`
	FailureCount int      `json:"failureCount"`
	Errors       []string `json:"errors"`
	Details      []Detail `json:"details"`
}

// Inject resolves the selection afresh and writes data values into the
// matching layers. Bindings are never taken from the caller, so injection
// always operates on the live tree state. Missing data is a skip, a write
// problem is a failure; neither stops the remaining bindings.
func Inject(data map[string]any, nodes ...*document.Node) Report {
	report := Report{
		Errors:  make([]string, 0),
		Details: make([]Detail, 0),
	}

	bindings := resolver.FindBindings(nodes...)
	if len(bindings) == 0 {
		report.Errors = append(report.Errors, "no placeholder layers found in selection")
		return report
	}

	for _, b := range bindings {
		detail := Detail{
			LayerName:    b.Node.Name,
			VariableName: b.VariableName,
			Kind:         string(b.Kind),
		}

		value, ok := data[b.VariableName]
		if !ok || value == nil {
			detail.Status = StatusSkipped
			detail.Reason = reasonNoData
			report.Details = append(report.Details, detail)
			continue
		}

		text := Stringify(value)
		if err := write(b, text); err != nil {
			logger.Warn("injection failed", "layer", b.Node.Name, "variable", b.VariableName, "error", err)
			detail.Status = StatusFailed
			detail.Reason = reasonFailed
			report.FailureCount++
			report.Errors = append(report.Errors, fmt.Sprintf("layer %q: %v", b.Node.Name, err))
		} else {
			detail.Status = StatusSuccess
			detail.Value = text
			report.SuccessCount++
		}
		report.Details = append(report.Details, detail)
	}

	report.TotalUpdated = report.SuccessCount
	return report
}

// write puts the string form of a value into the slot a binding points at.
func write(b resolver.Binding, text string) error {
	switch b.Kind {
	case resolver.BindingText:
		if !b.Node.IsTextBearing() {
			return fmt.Errorf("layer kind %s does not carry text", b.Node.Kind)
		}
		b.Node.Text = text
		return nil
	case resolver.BindingOverride:
		ov := b.Node.FindOverride(b.OverrideID)
		if ov == nil {
			return fmt.Errorf("no override with id %q on instance", b.OverrideID)
		}
		ov.Value = text
		return nil
	default:
		return fmt.Errorf("unknown binding kind %q", b.Kind)
	}
}

// Stringify coerces a JSON scalar to the string written into a layer.
// Numbers render without a trailing ".0"; anything non-scalar falls back to
// its compact JSON form.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	default:
		if data, err := json.Marshal(value); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", value)
	}
}
