package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvPrefix prefixes every configuration environment variable.
	EnvPrefix = "CRASHTRACE_"

	// ProjectConfigFile is the project config file name.
	ProjectConfigFile = ".crashtrace.toml"

	globalConfigDir  = "crashtrace"
	globalConfigFile = "config.toml"
)

// GlobalConfigPath returns the user-level config file path,
// $XDG_CONFIG_HOME/crashtrace/config.toml with ~/.config as the fallback.
func GlobalConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}

	return filepath.Join(dir, globalConfigDir, globalConfigFile)
}

// ProjectConfigPath returns the project config file path for workDir. An
// empty workDir means the current directory.
func ProjectConfigPath(workDir string) string {
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	return filepath.Join(workDir, ProjectConfigFile)
}
