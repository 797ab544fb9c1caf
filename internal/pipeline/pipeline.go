// Package pipeline wires the three stages together: resolve the selection,
// generate content for the discovered variables, inject the result back into
// the tree. One run at a time; overlapping runs are rejected, not queued.
package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/fpt/layerfill/internal/config"
	"github.com/fpt/layerfill/internal/redact"
	"github.com/fpt/layerfill/pkg/client/ollama"
	"github.com/fpt/layerfill/pkg/document"
	"github.com/fpt/layerfill/pkg/injector"
	pkgLogger "github.com/fpt/layerfill/pkg/logger"
	"github.com/fpt/layerfill/pkg/resolver"
)

var logger = pkgLogger.NewComponentLogger("pipeline")

// ErrRunInFlight is returned when a run is requested while another is still
// writing to the document.
var ErrRunInFlight = errors.New("a generate-and-fill run is already in progress")

// Pipeline owns one generation client and the session settings.
type Pipeline struct {
	client   *ollama.Client
	settings *config.Settings

	// mu serializes runs; settingsMu guards settings reads against the
	// write-back a finishing run performs.
	mu         sync.Mutex
	settingsMu sync.RWMutex
}

// New creates a pipeline over the given client and settings.
func New(client *ollama.Client, settings *config.Settings) *Pipeline {
	return &Pipeline{
		client:   client,
		settings: settings,
	}
}

// Settings returns a point-in-time copy of the session settings, safe to
// read while a run is writing them back.
func (p *Pipeline) Settings() config.Settings {
	p.settingsMu.RLock()
	defer p.settingsMu.RUnlock()
	return *p.settings
}

// UpdateSettings applies a mutation under the settings lock and persists the
// result. The mutation runs against a copy; an error from it leaves the live
// settings untouched and nothing is saved. A failed save is logged, not
// returned, matching the best-effort write-back after a run.
func (p *Pipeline) UpdateSettings(apply func(*config.Settings) error) (config.Settings, error) {
	p.settingsMu.Lock()
	defer p.settingsMu.Unlock()

	candidate := *p.settings
	if err := apply(&candidate); err != nil {
		return *p.settings, err
	}
	*p.settings = candidate
	if err := p.settings.Save(); err != nil {
		logger.Warn("could not persist settings", "error", err)
	}
	return candidate, nil
}

// InitData is the initialization payload for a UI: what the selection
// contains plus the prior session's settings.
type InitData struct {
	VariableNames []string        `json:"variableNames"`
	BindingCount  int             `json:"bindingCount"`
	Settings      config.Settings `json:"settings"`
}

// Outcome is the generation-and-fill payload for a UI. Error, when set, has
// already been redacted for display.
type Outcome struct {
	Success     bool             `json:"success"`
	Data        map[string]any   `json:"data,omitempty"`
	MissingKeys []string         `json:"missingKeys,omitempty"`
	Report      *injector.Report `json:"report,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Init inspects the selection and pairs it with the stored settings.
func (p *Pipeline) Init(nodes ...*document.Node) InitData {
	bindings := resolver.FindBindings(nodes...)
	return InitData{
		VariableNames: resolver.ExtractVariableNames(nodes...),
		BindingCount:  len(bindings),
		Settings:      p.Settings(),
	}
}

// Run executes one resolve-generate-inject cycle against the selection.
// The returned Outcome is always well-formed; the error mirrors it for
// callers that propagate instead of render.
func (p *Pipeline) Run(ctx context.Context, userContext string, nodes ...*document.Node) (Outcome, error) {
	if !p.mu.TryLock() {
		return Outcome{Success: false, Error: redact.Error(ErrRunInFlight)}, ErrRunInFlight
	}
	defer p.mu.Unlock()

	selection := resolver.ValidateSelection(nodes...)
	if !selection.IsValid {
		err := errors.New(selection.Message)
		return Outcome{Success: false, Error: redact.Error(err)}, err
	}

	logger.InfoWithIntention(pkgLogger.IntentionResolve, "resolved selection",
		"bindings", selection.Count, "variables", len(selection.Variables))

	st := p.Settings()
	result, err := p.client.Generate(ctx, ollama.Request{
		VariableNames: selection.Variables,
		Context:       userContext,
		Endpoint:      st.Endpoint,
		Model:         st.Model,
		Temperature:   st.Temperature,
		NucleusP:      st.NucleusP,
	})
	if err != nil {
		return Outcome{Success: false, Error: redact.Error(err)}, err
	}

	report := injector.Inject(result.Values, nodes...)
	logger.InfoWithIntention(pkgLogger.IntentionInject, "injection finished",
		"updated", report.TotalUpdated, "failed", report.FailureCount)

	p.settingsMu.Lock()
	rememberErr := p.settings.RememberRun(userContext, selection.Variables)
	p.settingsMu.Unlock()
	if rememberErr != nil {
		// A failed settings write must not fail the run itself.
		logger.Warn("could not persist run settings", "error", rememberErr)
	}

	return Outcome{
		Success:     true,
		Data:        result.Values,
		MissingKeys: result.MissingKeys,
		Report:      &report,
	}, nil
}

// PreviewData is the dry-run payload for a UI.
type PreviewData struct {
	Entries []injector.PreviewEntry `json:"entries"`
}

// Preview generates content for the selection and reports what injection
// would do, without mutating any node.
func (p *Pipeline) Preview(ctx context.Context, userContext string, nodes ...*document.Node) (PreviewData, error) {
	selection := resolver.ValidateSelection(nodes...)
	if !selection.IsValid {
		return PreviewData{}, errors.New(selection.Message)
	}

	st := p.Settings()
	result, err := p.client.Generate(ctx, ollama.Request{
		VariableNames: selection.Variables,
		Context:       userContext,
		Endpoint:      st.Endpoint,
		Model:         st.Model,
		Temperature:   st.Temperature,
		NucleusP:      st.NucleusP,
	})
	if err != nil {
		return PreviewData{}, err
	}

	return PreviewData{Entries: injector.Preview(result.Values, nodes...)}, nil
}

// PreviewWith reports what injecting already-generated data would do.
func (p *Pipeline) PreviewWith(data map[string]any, nodes ...*document.Node) PreviewData {
	return PreviewData{Entries: injector.Preview(data, nodes...)}
}
