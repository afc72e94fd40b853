package report

//go:generate go tool mockgen -source=storage.go -destination=mocks/storage.go -package=mocks

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// Storage is the filesystem the writer persists reports to.
type Storage interface {
	// MkdirAll creates dir and its parents. An existing directory is not an error.
	MkdirAll(dir string) error

	// WriteFile replaces path with data atomically.
	WriteFile(path string, data []byte) error

	// ReadFile returns the contents of path.
	ReadFile(path string) ([]byte, error)

	// List returns the names of the regular files in dir.
	List(dir string) ([]string, error)

	// Size returns the size of path in bytes.
	Size(path string) (int64, error)

	// Remove deletes path. A missing file yields an error satisfying os.IsNotExist.
	Remove(path string) error
}

// FSStorage implements Storage on top of a billy filesystem.
type FSStorage struct {
	fs billy.Filesystem

	// hostPaths resolves relative paths against the working directory.
	hostPaths bool
}

// NewFSStorage creates a Storage backed by fs.
func NewFSStorage(fs billy.Filesystem) *FSStorage {
	return &FSStorage{fs: fs}
}

// NewOSStorage creates a Storage on the host filesystem. Relative paths are
// resolved against the working directory.
func NewOSStorage() *FSStorage {
	return &FSStorage{fs: osfs.New("/"), hostPaths: true}
}

// NewMemoryStorage creates an in-memory Storage.
func NewMemoryStorage() *FSStorage {
	return NewFSStorage(memfs.New())
}

func (s *FSStorage) resolve(path string) string {
	if !s.hostPaths || filepath.IsAbs(path) {
		return path
	}

	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}

	return path
}

// MkdirAll implements Storage.
func (s *FSStorage) MkdirAll(dir string) error {
	dir = s.resolve(dir)

	if err := s.fs.MkdirAll(dir, dirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	return nil
}

// WriteFile implements Storage by writing a temp file next to path and
// renaming it into place.
func (s *FSStorage) WriteFile(path string, data []byte) (err error) {
	path = s.resolve(path)
	dir := filepath.Dir(path)

	tmp, err := s.fs.TempFile(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}

	tmpPath := tmp.Name()

	defer func() {
		if tmpPath != "" {
			_ = s.fs.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return errors.Wrap(err, "failed to write temp file")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "failed to move report into place at %s", path)
	}

	tmpPath = ""

	return nil
}

// ReadFile implements Storage.
func (s *FSStorage) ReadFile(path string) ([]byte, error) {
	path = s.resolve(path)

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	return data, nil
}

// List implements Storage.
func (s *FSStorage) List(dir string) ([]string, error) {
	entries, err := s.fs.ReadDir(s.resolve(dir))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		names = append(names, e.Name())
	}

	return names, nil
}

// Size implements Storage.
func (s *FSStorage) Size(path string) (int64, error) {
	fi, err := s.fs.Stat(s.resolve(path))
	if err != nil {
		return 0, err
	}

	return fi.Size(), nil
}

// Remove implements Storage.
func (s *FSStorage) Remove(path string) error {
	return s.fs.Remove(s.resolve(path))
}

// IsNotExist reports whether err means a file or directory is missing.
func IsNotExist(err error) bool {
	return err != nil && (os.IsNotExist(errors.UnwrapAll(err)) || errors.Is(err, os.ErrNotExist))
}
