package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded is the resolved configuration plus where its values came from.
type Loaded struct {
	Path   string
	Config Config
	// Exists is false when Path was missing and defaults were used.
	Exists bool
	// FromEnv names the credential variables that filled empty fields.
	FromEnv  []string
	Warnings []Warning
}

// Load reads the config at the resolved path. A missing file is not an error:
// defaults are used and a warning is recorded.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Exists: true}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Exists = false
		loaded.Config = Default()
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	default:
		cfg, warnings, err := Parse(string(content), Default())
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
	}

	loaded.Config, loaded.FromEnv = ApplyEnv(loaded.Config, os.Getenv)
	return loaded, nil
}
