// Package config provides configuration schema types for crashtrace.
package config

import (
	"os"
	"path/filepath"
)

// DefaultFolder is the workspace folder name used when none is configured.
const DefaultFolder = "Crashes"

// WorkspaceConfig configures the report workspace directory.
type WorkspaceConfig struct {
	// Folder is the workspace directory name under the cache root.
	// An absolute path is used as is.
	// Default: "Crashes"
	Folder string `json:"folder,omitempty" koanf:"folder" toml:"folder"`

	// CacheRoot is the directory the folder is created in.
	// Default: "" (user cache directory)
	CacheRoot string `json:"cache_root,omitempty" koanf:"cache_root" toml:"cache_root"`
}

// GetFolder returns the folder with default fallback.
func (w *WorkspaceConfig) GetFolder() string {
	if w == nil || w.Folder == "" {
		return DefaultFolder
	}

	return w.Folder
}

// GetCacheRoot returns the cache root, falling back to the user cache
// directory and then to the temp directory.
func (w *WorkspaceConfig) GetCacheRoot() string {
	if w != nil && w.CacheRoot != "" {
		return w.CacheRoot
	}

	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}

	return os.TempDir()
}

// Path resolves the workspace directory to an absolute path. A non-empty
// folder overrides the configured one. A relative cache root is resolved
// against the working directory.
func (w *WorkspaceConfig) Path(folder string) string {
	if folder == "" {
		folder = w.GetFolder()
	}

	if filepath.IsAbs(folder) {
		return filepath.Clean(folder)
	}

	dir := filepath.Join(w.GetCacheRoot(), folder)

	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}

	return dir
}
