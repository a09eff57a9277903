package repl

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// maxHistory bounds the persisted input history
const maxHistory = 200

// Settings holds persistent REPL settings
type Settings struct {
	InputHistory []string `json:"input_history,omitempty"`
}

// DefaultSettingsFile returns ~/.pascal/repl.json
func DefaultSettingsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pascal", "repl.json")
	}
	return filepath.Join(home, ".pascal", "repl.json")
}

// LoadSettings loads settings from path. A missing or unreadable file
// yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, err
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return &Settings{}, nil
	}
	return &settings, nil
}

// SaveSettings writes settings to path
func SaveSettings(path string, settings *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	if n := len(settings.InputHistory); n > maxHistory {
		settings.InputHistory = settings.InputHistory[n-maxHistory:]
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
