package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir returns the configuration directory, honoring XDG_CONFIG_HOME
// and falling back to ~/.config/perfect-volume-control.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "perfect-volume-control")
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".config", "perfect-volume-control")
	}
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ".perfect-volume-control")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
