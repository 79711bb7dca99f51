package infra

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveHomeDir returns the effective home directory for Cortexrun.
// It checks the CORTEXRUN_HOME environment variable first,
// falls back to ~/.cortexrun if not set or empty.
func ResolveHomeDir() string {
	if envHome := strings.TrimSpace(os.Getenv("CORTEXRUN_HOME")); envHome != "" {
		return envHome
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		// Extreme fallback
		return filepath.Join(os.TempDir(), ".cortexrun")
	}
	return filepath.Join(home, ".cortexrun")
}
