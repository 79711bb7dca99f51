package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvCortexrunConfig = "CORTEXRUN_CONFIG"
	EnvCortexrunHome   = "CORTEXRUN_HOME"
)

type RuntimePaths struct {
	HomeDir         string
	ConfigPath      string
	AuthPath        string
	GlobalSkillsDir string
}

func ResolveRuntimePaths() RuntimePaths {
	if configPath := expandHome(strings.TrimSpace(os.Getenv(EnvCortexrunConfig))); configPath != "" {
		return buildRuntimePaths(filepath.Dir(configPath), configPath)
	}

	homeDir := expandHome(strings.TrimSpace(os.Getenv(EnvCortexrunHome)))
	if homeDir == "" {
		homeDir = defaultCortexrunHome()
	}

	return buildRuntimePaths(homeDir, filepath.Join(homeDir, "config.json"))
}

func defaultCortexrunHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".cortexrun"
	}
	return filepath.Join(home, ".cortexrun")
}

func buildRuntimePaths(homeDir, configPath string) RuntimePaths {
	return RuntimePaths{
		HomeDir:         homeDir,
		ConfigPath:      configPath,
		AuthPath:        filepath.Join(homeDir, "auth.json"),
		GlobalSkillsDir: filepath.Join(homeDir, "skills"),
	}
}

// configFileCandidates are tried in order under home/.cortexrun. config.json
// is preferred when it exists; the others are accepted so a hand-written
// YAML/TOML config still gets picked up.
var configFileCandidates = []string{"config.json", "config.yaml", "config.yml", "config.toml"}

// ResolveConfigPath returns the config file Cortexrun would load under the
// given home directory: the first existing file from configFileCandidates,
// or home/.cortexrun/config.json if none exist yet.
func ResolveConfigPath(home string) string {
	configDir := filepath.Join(home, ".cortexrun")

	for _, name := range configFileCandidates {
		candidate := filepath.Join(configDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return filepath.Join(configDir, "config.json")
}
