package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "ringbell"

// ResolvePath applies CLI/XDG/home fallback rules for config.toml location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", appDir, "config.toml"), nil
}

// DataPath resolves a file under XDG_DATA_HOME/ringbell, falling back to ~/.local/share.
func DataPath(name string) (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, name), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for data fallback")
	}

	return filepath.Join(home, ".local", "share", appDir, name), nil
}

// WorkoutsPath returns the configured workout library path or its XDG default.
func (c Config) WorkoutsPath() (string, error) {
	if path := strings.TrimSpace(c.Workouts.Path); path != "" {
		return path, nil
	}
	return DataPath("workouts.json")
}

// DiaryDBPath returns the configured diary database path or its XDG default.
func (c Config) DiaryDBPath() (string, error) {
	if path := strings.TrimSpace(c.Diary.DBPath); path != "" {
		return path, nil
	}
	return DataPath("diary.db")
}
