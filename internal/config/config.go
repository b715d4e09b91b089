// Package config loads engine settings from an optional TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the settings file looked for in the first root.
const DefaultFileName = "taskdeck.toml"

// Settings are the engine's tunables. The zero value of any field means
// "use the built-in default".
type Settings struct {
	// ScanDepth overrides the nested-manifest descent depth.
	ScanDepth int `toml:"scan_depth"`

	// ExcludeDirs adds directory names to the discovery exclude set.
	ExcludeDirs []string `toml:"exclude_dirs"`

	// DebounceMS overrides the watch debounce interval in milliseconds.
	DebounceMS int `toml:"debounce_ms"`

	// PackageManager forces a package manager, bypassing resolution.
	PackageManager string `toml:"package_manager"`

	// RecencyCap overrides the recently-used list capacity.
	RecencyCap int `toml:"recency_cap"`

	// StatePath overrides where persisted state lives.
	StatePath string `toml:"state_path"`
}

// Load reads settings from path. A missing file is not an error and
// returns empty settings; a malformed file is an error.
func Load(path string) (Settings, error) {
	var s Settings

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return s, nil
}

// DefaultStatePath returns the state-file location under the user config
// directory, falling back to the working directory when unavailable.
func DefaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "taskdeck-state.json"
	}
	return filepath.Join(dir, "taskdeck", "state.json")
}
