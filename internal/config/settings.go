package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/fpt/layerfill/internal/infra"
	"github.com/fpt/layerfill/internal/repository"
	"github.com/fpt/layerfill/pkg/client/ollama"
	pkgLogger "github.com/fpt/layerfill/pkg/logger"
)

const (
	DefaultTemperature = 0.7
	DefaultNucleusP    = 0.9
)

// Settings is the flat persisted record for the fill pipeline. LastContext
// and LastVariableNames are written back after a successful run so the next
// session starts where the previous one left off.
type Settings struct {
	Endpoint          string   `json:"endpoint"`
	Model             string   `json:"model"`
	LastContext       string   `json:"lastContext"`
	LastVariableNames []string `json:"lastVariableNames"`
	Temperature       float64  `json:"temperature"`
	NucleusP          float64  `json:"nucleusP"`

	// Repository for persistence (nil for in-memory only)
	settingsRepository repository.SettingsRepository `json:"-"`
}

// NewSettings creates new settings with in-memory repository
func NewSettings() *Settings {
	return NewSettingsWithRepository(infra.NewInMemorySettingsRepository())
}

// NewSettingsWithRepository creates new settings with injected repository
func NewSettingsWithRepository(settingsRepository repository.SettingsRepository) *Settings {
	settings := GetDefaultSettings()
	settings.settingsRepository = settingsRepository
	return settings
}

// NewSettingsWithPath creates new settings with file-based repository
func NewSettingsWithPath(configPath string) *Settings {
	return NewSettingsWithRepository(infra.NewFileSettingsRepository(configPath))
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	return &Settings{
		Endpoint:          ollama.DefaultEndpoint,
		Model:             ollama.DefaultModel,
		LastContext:       "",
		LastVariableNames: []string{},
		Temperature:       DefaultTemperature,
		NucleusP:          DefaultNucleusP,
	}
}

// persistedSettings mirrors Settings for decoding. The sampling fields are
// pointers so an omitted field is distinguishable from an explicit zero:
// temperature 0 is a valid greedy choice, an absent temperature means the
// default.
type persistedSettings struct {
	Endpoint          string   `json:"endpoint"`
	Model             string   `json:"model"`
	LastContext       string   `json:"lastContext"`
	LastVariableNames []string `json:"lastVariableNames"`
	Temperature       *float64 `json:"temperature"`
	NucleusP          *float64 `json:"nucleusP"`
}

func (p persistedSettings) toSettings() Settings {
	s := Settings{
		Endpoint:          p.Endpoint,
		Model:             p.Model,
		LastContext:       p.LastContext,
		LastVariableNames: p.LastVariableNames,
		Temperature:       DefaultTemperature,
		NucleusP:          DefaultNucleusP,
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.NucleusP != nil {
		s.NucleusP = *p.NucleusP
	}
	return s
}

// Load loads settings from the repository. A persisted record that fails
// strict decoding or validation is discarded wholesale in favor of defaults
// rather than partially trusted.
func (s *Settings) Load() error {
	if s.settingsRepository == nil {
		return fmt.Errorf("no settings repository configured")
	}

	data, err := s.settingsRepository.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	var raw persistedSettings
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		s.resetToDefaults("settings file is not valid", err)
		return nil
	}
	loaded := raw.toSettings()
	applyDefaults(&loaded)
	if err := validate(&loaded); err != nil {
		s.resetToDefaults("settings file failed validation", err)
		return nil
	}

	loaded.settingsRepository = s.settingsRepository
	*s = loaded
	return nil
}

func (s *Settings) resetToDefaults(reason string, err error) {
	pkgLogger.NewComponentLogger("settings").Warn(reason+", using defaults", "error", err)
	repo := s.settingsRepository
	*s = *GetDefaultSettings()
	s.settingsRepository = repo
}

// Save saves settings to the repository
func (s *Settings) Save() error {
	if s.settingsRepository == nil {
		return fmt.Errorf("no settings repository configured")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return s.settingsRepository.Save(data)
}

// Validate rejects a record no run could use; see validate for the rules.
// Exposed for callers that accept settings from outside, such as the bridge.
func (s *Settings) Validate() error {
	return validate(s)
}

// RememberRun stores the context and variable names of a successful run.
func (s *Settings) RememberRun(lastContext string, variableNames []string) error {
	s.LastContext = lastContext
	s.LastVariableNames = append([]string(nil), variableNames...)
	return s.Save()
}

// LoadSettings loads application settings from a JSON file. With an empty
// path it searches the usual locations and creates a default file when none
// exists.
func LoadSettings(configPath string) (*Settings, error) {
	settings := NewSettingsWithPath(configPath)

	if configPath == "" {
		foundPath, _ := settings.settingsRepository.FindSettingsFile()
		if foundPath == "" {
			return createDefaultSettingsFile()
		}
	}

	if err := settings.Load(); err != nil {
		if configPath != "" {
			createdSettings, _ := createSettingsFileAtPath(configPath)
			return createdSettings, nil
		}
		return GetDefaultSettings(), nil
	}

	return settings, nil
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	defaults := GetDefaultSettings()

	if settings.Endpoint == "" {
		settings.Endpoint = defaults.Endpoint
	}
	if settings.Model == "" {
		settings.Model = defaults.Model
	}
	if settings.LastVariableNames == nil {
		settings.LastVariableNames = []string{}
	}
}

// validate rejects records no run could use. Temperature 0 is a valid
// (greedy) sampling choice, so only the upper bound is enforced there.
func validate(settings *Settings) error {
	u, err := url.Parse(settings.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("malformed endpoint URL: %q", settings.Endpoint)
	}
	if settings.Temperature < 0 || settings.Temperature > 2 {
		return fmt.Errorf("temperature out of range: %v", settings.Temperature)
	}
	if settings.NucleusP <= 0 || settings.NucleusP > 1 {
		return fmt.Errorf("nucleusP out of range: %v", settings.NucleusP)
	}
	return nil
}

// createDefaultSettingsFile creates a default settings.json in ~/.layerfill/
func createDefaultSettingsFile() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil // Fall back to defaults without file creation
	}

	settingsPath := filepath.Join(homeDir, ".layerfill", "settings.json")
	return createSettingsFileAtPath(settingsPath)
}

// createSettingsFileAtPath creates a default settings file at the specified path
func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	settings := NewSettingsWithPath(settingsPath)

	if err := settings.Save(); err != nil {
		// Return defaults without repository if saving fails
		return GetDefaultSettings(), nil
	}

	pkgLogger.NewComponentLogger("settings").InfoWithIntention(pkgLogger.IntentionConfig, "Created default settings file", "path", settingsPath)
	return settings, nil
}
