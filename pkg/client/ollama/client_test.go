package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func generateEndpoint(ts *httptest.Server) string {
	return ts.URL + "/api/generate"
}

func validRequest(endpoint string) Request {
	return Request{
		VariableNames: []string{"title", "author"},
		Context:       "a coffee shop landing page",
		Endpoint:      endpoint,
		Model:         "test-model",
		Temperature:   0.7,
		NucleusP:      0.9,
	}
}

func TestGenerate_Success(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":    "test-model",
			"response": `{"title":"Fresh Roast","author":"Ada"}`,
			"done":     true,
		})
	}))
	defer ts.Close()

	result, err := NewClient().Generate(context.Background(), validRequest(generateEndpoint(ts)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := result.Values["title"]; got != "Fresh Roast" {
		t.Errorf("title: got %v", got)
	}
	if len(result.MissingKeys) != 0 {
		t.Errorf("missing keys: got %v", result.MissingKeys)
	}

	// Wire contract: model, prompt, JSON format, streaming disabled,
	// sampling options.
	if body["model"] != "test-model" {
		t.Errorf("model: got %v", body["model"])
	}
	if body["stream"] != false {
		t.Errorf("stream: got %v", body["stream"])
	}
	if body["format"] != "json" {
		t.Errorf("format: got %v", body["format"])
	}
	opts, _ := body["options"].(map[string]any)
	if opts["temperature"] != 0.7 || opts["top_p"] != 0.9 {
		t.Errorf("options: got %v", opts)
	}
	prompt, _ := body["prompt"].(string)
	if prompt == "" {
		t.Error("prompt must not be empty")
	}
}

func TestGenerate_StripsCodeFence(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"response": "```json\n{\"k\":\"v\"}\n```",
			"done":     true,
		})
	}))
	defer ts.Close()

	req := Request{
		VariableNames: []string{"k"},
		Context:       "ctx",
		Endpoint:      generateEndpoint(ts),
	}
	result, err := NewClient().Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Values["k"] != "v" {
		t.Fatalf("fenced response must parse, got %v", result.Values)
	}
}

func TestGenerate_PartialResultReturnsMissingKeys(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"response": `{"title":"only this"}`,
			"done":     true,
		})
	}))
	defer ts.Close()

	result, err := NewClient().Generate(context.Background(), validRequest(generateEndpoint(ts)))
	if err != nil {
		t.Fatalf("partial result must not fail: %v", err)
	}
	if len(result.MissingKeys) != 1 || result.MissingKeys[0] != "author" {
		t.Fatalf("missingKeys: got %v", result.MissingKeys)
	}
}

func TestGenerate_InvalidInputSkipsNetwork(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	cases := []Request{
		{VariableNames: nil, Context: "ctx", Endpoint: generateEndpoint(ts)},
		{VariableNames: []string{"a", "a"}, Context: "ctx", Endpoint: generateEndpoint(ts)},
		{VariableNames: []string{"a"}, Context: "   ", Endpoint: generateEndpoint(ts)},
	}
	for i, req := range cases {
		_, err := NewClient().Generate(context.Background(), req)
		if kind, ok := KindOf(err); !ok || kind != KindInvalidInput {
			t.Errorf("case %d: want InvalidInput, got %v", i, err)
		}
	}
	if calls != 0 {
		t.Fatalf("invalid input must fail before any network call, got %d calls", calls)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer ts.Close()

	client := NewClientWithTimeout(50 * time.Millisecond)
	_, err := client.Generate(context.Background(), validRequest(generateEndpoint(ts)))

	if kind, ok := KindOf(err); !ok || kind != KindTimeout {
		t.Fatalf("want Timeout, got %v", err)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer ts.Close()

	_, err := NewClient().Generate(context.Background(), validRequest(generateEndpoint(ts)))

	if kind, ok := KindOf(err); !ok || kind != KindUpstream {
		t.Fatalf("want Upstream, got %v", err)
	}
}

func TestGenerate_ConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := generateEndpoint(ts)
	ts.Close()

	_, err := NewClient().Generate(context.Background(), validRequest(endpoint))

	if kind, ok := KindOf(err); !ok || kind != KindConnection {
		t.Fatalf("want Connection, got %v", err)
	}
}

func TestGenerate_MalformedEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"done": true})
	}))
	defer ts.Close()

	_, err := NewClient().Generate(context.Background(), validRequest(generateEndpoint(ts)))

	if kind, ok := KindOf(err); !ok || kind != KindMalformedEnvelope {
		t.Fatalf("want MalformedEnvelope, got %v", err)
	}
}

func TestGenerate_ParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"response": "certainly! here is your json",
			"done":     true,
		})
	}))
	defer ts.Close()

	_, err := NewClient().Generate(context.Background(), validRequest(generateEndpoint(ts)))

	if kind, ok := KindOf(err); !ok || kind != KindParse {
		t.Fatalf("want Parse, got %v", err)
	}
}

func TestTestConnectionAndListModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "llama3.2:latest"}, {"name": "qwen3:8b"}},
		})
	}))
	endpoint := generateEndpoint(ts)

	client := NewClient()
	if !client.TestConnection(context.Background(), endpoint) {
		t.Fatal("want reachable")
	}

	models := client.ListModels(context.Background(), endpoint)
	if len(models) != 2 || models[0] != "llama3.2:latest" {
		t.Fatalf("models: got %v", models)
	}

	ts.Close()
	if client.TestConnection(context.Background(), endpoint) {
		t.Fatal("want unreachable after close")
	}
	if got := client.ListModels(context.Background(), endpoint); len(got) != 0 {
		t.Fatalf("want empty model list on failure, got %v", got)
	}
}

func TestGenerate_MalformedEndpoint(t *testing.T) {
	req := Request{
		VariableNames: []string{"a"},
		Context:       "ctx",
		Endpoint:      "not a url",
	}
	_, err := NewClient().Generate(context.Background(), req)
	if kind, ok := KindOf(err); !ok || kind != KindInvalidInput {
		t.Fatalf("want InvalidInput for malformed endpoint, got %v", err)
	}
}
