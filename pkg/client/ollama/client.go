// Package ollama talks to a local Ollama-compatible generation service: one
// synchronous generate call per pipeline run, plus best-effort connection and
// model probes against the listing endpoint.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgLogger "github.com/fpt/layerfill/pkg/logger"
	"github.com/ollama/ollama/api"
)

var logger = pkgLogger.NewComponentLogger("ollama")

const (
	// DefaultEndpoint is the local loopback generation URL.
	DefaultEndpoint = "http://localhost:11434/api/generate"
	// DefaultModel is used when settings carry no model name.
	DefaultModel = "llama3.2:latest"
	// DefaultTimeout bounds one generate call.
	DefaultTimeout = 60 * time.Second

	// probeTimeout bounds TestConnection and ListModels.
	probeTimeout = 5 * time.Second

	generatePath = "/api/generate"
)

// Request carries everything one generate call needs. VariableNames must be
// non-empty and free of duplicates; Context must not be blank after trimming.
type Request struct {
	VariableNames []string
	Context       string
	Endpoint      string
	Model         string
	Temperature   float64
	NucleusP      float64
}

// Result maps variable names to generated values. Keys the service did not
// deliver are listed in MissingKeys; callers treat them as "no value
// available", not as a failure.
type Result struct {
	Values      map[string]any `json:"values"`
	MissingKeys []string       `json:"missingKeys,omitempty"`
}

// Client issues generation requests. Safe for reuse across runs; the
// endpoint travels in the Request so one client serves changing settings.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a client with the default generation timeout.
func NewClient() *Client {
	return NewClientWithTimeout(DefaultTimeout)
}

// NewClientWithTimeout creates a client with a custom generation timeout.
func NewClientWithTimeout(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: http.DefaultClient,
		timeout:    timeout,
	}
}

// Generate performs one synchronous generate call: builds the instruction,
// posts it with sampling options and streaming disabled, awaits the full
// reply within the configured timeout, strips any code fence and parses the
// text as a JSON object.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := c.apiClient(endpoint)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(req.VariableNames, req.Context)
	logger.DebugWithIntention(pkgLogger.IntentionNetwork, "sending generation request",
		"endpoint", endpoint, "model", model, "variables", len(req.VariableNames))

	// The timer behind this context is released on every exit path.
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream := false
	genReq := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"top_p":       req.NucleusP,
		},
	}

	var resp api.GenerateResponse
	err = client.Generate(callCtx, genReq, func(r api.GenerateResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return nil, c.classify(err, endpoint)
	}

	if strings.TrimSpace(resp.Response) == "" {
		return nil, &Error{
			Kind:    KindMalformedEnvelope,
			Message: "generation response carries no generated text",
		}
	}

	cleaned := StripCodeFence(resp.Response)
	values := make(map[string]any)
	if err := json.Unmarshal([]byte(cleaned), &values); err != nil {
		return nil, &Error{
			Kind:    KindParse,
			Message: fmt.Sprintf("generated text is not a JSON object: %q", cleaned),
			Err:     err,
		}
	}

	result := &Result{Values: values}
	for _, name := range req.VariableNames {
		if _, ok := values[name]; !ok {
			result.MissingKeys = append(result.MissingKeys, name)
		}
	}
	if len(result.MissingKeys) > 0 {
		logger.Warn("generation result is missing requested keys",
			"missing", strings.Join(result.MissingKeys, ", "))
	}

	return result, nil
}

// TestConnection probes the listing endpoint sharing the generate endpoint's
// host. Returns false on any failure instead of raising.
func (c *Client) TestConnection(ctx context.Context, endpoint string) bool {
	client, err := c.apiClient(endpoint)
	if err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, err = client.List(probeCtx)
	return err == nil
}

// ListModels returns the model names the service advertises. Best-effort:
// an empty list on any failure.
func (c *Client) ListModels(ctx context.Context, endpoint string) []string {
	client, err := c.apiClient(endpoint)
	if err != nil {
		return []string{}
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	resp, err := client.List(probeCtx)
	if err != nil {
		logger.DebugWithIntention(pkgLogger.IntentionNetwork, "model listing failed", "error", err)
		return []string{}
	}

	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names
}

func validateRequest(req Request) error {
	if len(req.VariableNames) == 0 {
		return &Error{Kind: KindInvalidInput, Message: "no variable names to generate"}
	}
	seen := make(map[string]bool, len(req.VariableNames))
	for _, name := range req.VariableNames {
		if seen[name] {
			return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf("duplicate variable name %q", name)}
		}
		seen[name] = true
	}
	if strings.TrimSpace(req.Context) == "" {
		return &Error{Kind: KindInvalidInput, Message: "context must not be blank"}
	}
	return nil
}

// apiClient derives the service base URL from the configured generate
// endpoint and wraps it in the API client. The listing endpoint is reached
// by replacing the generation path segment, so both share one base.
func (c *Client) apiClient(endpoint string) (*api.Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{
			Kind:    KindInvalidInput,
			Message: fmt.Sprintf("malformed endpoint URL %q", endpoint),
			Err:     err,
		}
	}

	base := &url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   strings.TrimSuffix(u.Path, generatePath),
	}
	return api.NewClient(base, c.httpClient), nil
}

// classify turns a transport-level failure into the error taxonomy. Timeout,
// upstream status and unreachable transport are distinct kinds.
func (c *Client) classify(err error, endpoint string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("generation timed out after %.0f seconds", c.timeout.Seconds()),
			Err:     err,
		}
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return &Error{
			Kind:    KindUpstream,
			Message: fmt.Sprintf("generation service returned status %d: %s", statusErr.StatusCode, statusErr.ErrorMessage),
			Err:     err,
		}
	}

	return &Error{
		Kind:    KindConnection,
		Message: fmt.Sprintf("cannot reach generation service at %s", endpoint),
		Err:     err,
	}
}
