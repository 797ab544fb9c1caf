package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fpt/layerfill/internal/infra"
	"github.com/fpt/layerfill/pkg/client/ollama"
)

func TestDefaults(t *testing.T) {
	s := GetDefaultSettings()
	if s.Endpoint != ollama.DefaultEndpoint {
		t.Errorf("endpoint: got %q", s.Endpoint)
	}
	if s.Model != ollama.DefaultModel {
		t.Errorf("model: got %q", s.Model)
	}
	if s.Temperature != DefaultTemperature || s.NucleusP != DefaultNucleusP {
		t.Errorf("sampling defaults: got %v / %v", s.Temperature, s.NucleusP)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo := infra.NewInMemorySettingsRepository()
	s := NewSettingsWithRepository(repo)
	s.Model = "qwen3:8b"
	s.LastContext = "a coffee shop landing page"
	s.LastVariableNames = []string{"title", "author"}

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewSettingsWithRepository(repo)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "qwen3:8b" {
		t.Errorf("model: got %q", loaded.Model)
	}
	if loaded.LastContext != "a coffee shop landing page" {
		t.Errorf("lastContext: got %q", loaded.LastContext)
	}
	if len(loaded.LastVariableNames) != 2 {
		t.Errorf("lastVariableNames: got %v", loaded.LastVariableNames)
	}
}

func TestLoad_DiscardsInvalidWholesale(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"wrong field type", `{"endpoint":123,"model":"m"}`},
		{"malformed endpoint", `{"endpoint":"not a url","model":"m"}`},
		{"non-string array entries", `{"endpoint":"http://localhost:11434/api/generate","lastVariableNames":[1,2]}`},
		{"temperature out of range", `{"endpoint":"http://localhost:11434/api/generate","temperature":9}`},
		{"not json", `{{{`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			repo := infra.NewInMemorySettingsRepository()
			if err := repo.Save([]byte(c.data)); err != nil {
				t.Fatal(err)
			}

			s := NewSettingsWithRepository(repo)
			s.Model = "should-be-reset"
			if err := s.Load(); err != nil {
				t.Fatalf("Load must not fail for invalid persisted settings: %v", err)
			}

			// The whole record is discarded, not partially trusted.
			defaults := GetDefaultSettings()
			if s.Endpoint != defaults.Endpoint || s.Model != defaults.Model {
				t.Errorf("want defaults, got endpoint=%q model=%q", s.Endpoint, s.Model)
			}
		})
	}
}

func TestLoad_AppliesDefaultsForMissingFields(t *testing.T) {
	repo := infra.NewInMemorySettingsRepository()
	if err := repo.Save([]byte(`{"model":"custom"}`)); err != nil {
		t.Fatal(err)
	}

	s := NewSettingsWithRepository(repo)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Model != "custom" {
		t.Errorf("model: got %q", s.Model)
	}
	if s.Endpoint != ollama.DefaultEndpoint {
		t.Errorf("missing endpoint must default, got %q", s.Endpoint)
	}
	if s.Temperature != DefaultTemperature {
		t.Errorf("missing temperature must default, got %v", s.Temperature)
	}
	if s.NucleusP != DefaultNucleusP {
		t.Errorf("missing nucleusP must default, got %v", s.NucleusP)
	}
}

func TestLoad_ExplicitZeroTemperatureKept(t *testing.T) {
	repo := infra.NewInMemorySettingsRepository()
	record := `{"endpoint":"http://localhost:11434/api/generate","temperature":0}`
	if err := repo.Save([]byte(record)); err != nil {
		t.Fatal(err)
	}

	s := NewSettingsWithRepository(repo)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Temperature 0 is an explicit greedy choice, not a missing field.
	if s.Temperature != 0 {
		t.Fatalf("explicit zero temperature must survive, got %v", s.Temperature)
	}
}

func TestValidate(t *testing.T) {
	s := GetDefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	s.NucleusP = 1.5
	if err := s.Validate(); err == nil {
		t.Fatal("out-of-range nucleusP must fail validation")
	}

	s = GetDefaultSettings()
	s.Endpoint = "not a url"
	if err := s.Validate(); err == nil {
		t.Fatal("malformed endpoint must fail validation")
	}
}

func TestRememberRun(t *testing.T) {
	repo := infra.NewInMemorySettingsRepository()
	s := NewSettingsWithRepository(repo)

	if err := s.RememberRun("ctx", []string{"a", "b"}); err != nil {
		t.Fatalf("RememberRun: %v", err)
	}

	loaded := NewSettingsWithRepository(repo)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LastContext != "ctx" || len(loaded.LastVariableNames) != 2 {
		t.Fatalf("run not remembered: %+v", loaded)
	}
}

func TestCreateSettingsFileAtPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "layerfill-settings-test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	settingsPath := filepath.Join(tempDir, ".layerfill", "settings.json")
	settings, err := createSettingsFileAtPath(settingsPath)
	if err != nil {
		t.Fatalf("createSettingsFileAtPath failed: %v", err)
	}
	if settings == nil {
		t.Fatal("Expected non-nil settings")
	}

	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		t.Fatal("Settings file was not created")
	}

	loaded, err := LoadSettings(settingsPath)
	if err != nil {
		t.Fatalf("Failed to load created settings file: %v", err)
	}
	if loaded.Endpoint != settings.Endpoint {
		t.Errorf("Expected endpoint %q, got %q", settings.Endpoint, loaded.Endpoint)
	}
}
