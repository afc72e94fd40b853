package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	pkgconfig "github.com/smykla-labs/crashtrace/pkg/config"
)

const (
	configDirPermissions  = 0o755
	configFilePermissions = 0o600
)

// ErrConfigExists is returned when refusing to overwrite a config file.
var ErrConfigExists = errors.New("config file already exists")

// Writer writes configuration files as TOML.
type Writer struct {
	globalPath string
	workDir    string
}

// NewWriter creates a Writer for the default global path and the current directory.
func NewWriter() *Writer {
	return &Writer{globalPath: GlobalConfigPath()}
}

// NewWriterWithPaths creates a Writer with explicit locations.
func NewWriterWithPaths(globalPath, workDir string) *Writer {
	return &Writer{globalPath: globalPath, workDir: workDir}
}

// WriteGlobal writes cfg to the global config file.
func (w *Writer) WriteGlobal(cfg *pkgconfig.Config, overwrite bool) (string, error) {
	return w.globalPath, WriteFile(w.globalPath, cfg, overwrite)
}

// WriteProject writes cfg to the project config file.
func (w *Writer) WriteProject(cfg *pkgconfig.Config, overwrite bool) (string, error) {
	path := ProjectConfigPath(w.workDir)

	return path, WriteFile(path, cfg, overwrite)
}

// WriteFile marshals cfg to TOML at path.
func WriteFile(path string, cfg *pkgconfig.Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.Wrap(ErrConfigExists, path)
		}
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	if err := os.WriteFile(path, data, configFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}
