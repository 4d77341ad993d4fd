package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
)

//go:embed default.yml
var defaultConfig []byte

// EnsureUserConfig materializes the built-in default config as
// <dataDir>/config.yml on first run and returns its path. An existing file
// is never touched, so user edits survive upgrades.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.WriteFile(userPath, defaultConfig, 0o644); err != nil {
		return "", err
	}
	return userPath, nil
}
