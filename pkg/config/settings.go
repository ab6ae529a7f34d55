package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const DefaultAppTitle = "AI Chatbot"

// Settings are the user-editable display options of the chatbot.
type Settings struct {
	AppTitle string `koanf:"app_title" json:"app_title"`
	// Persona is the entity the assistant speaks as. Empty means AppTitle.
	Persona string `koanf:"persona" json:"persona"`
	Welcome string `koanf:"welcome" json:"welcome"`
}

func DefaultSettings() Settings {
	return Settings{
		AppTitle: DefaultAppTitle,
		Welcome:  "Hi! Ask me anything about this website.",
	}
}

// PersonaName returns the name used in the system prompt.
func (s Settings) PersonaName() string {
	if p := strings.TrimSpace(s.Persona); p != "" {
		return p
	}
	return s.AppTitle
}

// LoadSettings reads the settings file, merges defaults for missing keys and
// applies SITECHAT_* environment overrides. A missing file yields defaults.
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Settings{}, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	// SITECHAT_APP_TITLE -> app_title
	if err := k.Load(env.Provider("SITECHAT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SITECHAT_"))
	}), nil); err != nil {
		return Settings{}, fmt.Errorf("failed to load settings from environment: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	applySettingsDefaults(&s)
	return s, nil
}

func applySettingsDefaults(s *Settings) {
	defaults := DefaultSettings()
	if strings.TrimSpace(s.AppTitle) == "" {
		s.AppTitle = defaults.AppTitle
	}
	if strings.TrimSpace(s.Welcome) == "" {
		s.Welcome = defaults.Welcome
	}
}

// SaveSettings writes the settings as YAML, replacing the file.
func SaveSettings(path string, s Settings) error {
	k := koanf.New(".")
	for key, val := range map[string]string{
		"app_title": s.AppTitle,
		"persona":   s.Persona,
		"welcome":   s.Welcome,
	} {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	out, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", path, err)
	}
	return nil
}

// SettingsStore guards a settings file shared by concurrent HTTP handlers.
type SettingsStore struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

func NewSettingsStore(path string) (*SettingsStore, error) {
	s, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	return &SettingsStore{path: path, settings: s}, nil
}

func (st *SettingsStore) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// Update persists s and makes it current. Empty fields take their defaults.
func (st *SettingsStore) Update(s Settings) (Settings, error) {
	applySettingsDefaults(&s)

	st.mu.Lock()
	defer st.mu.Unlock()
	if err := SaveSettings(st.path, s); err != nil {
		return Settings{}, err
	}
	st.settings = s
	return s, nil
}
