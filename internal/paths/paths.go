// Package paths locates notifyctl's local state.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName = "chirp"
	dbName  = "inbox.db"

	// homeEnv overrides the state directory outright.
	homeEnv = "CHIRP_HOME"
)

// Dir is the notifyctl state directory: $CHIRP_HOME when set, otherwise
// chirp under the user config dir ($XDG_CONFIG_HOME or ~/.config on Linux).
func Dir() (string, error) {
	if dir := os.Getenv(homeEnv); dir != "" {
		return filepath.Clean(dir), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// EnsureDir returns Dir after creating it with owner-only permissions.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

func DB() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbName), nil
}
