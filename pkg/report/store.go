package report

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/smykla-labs/crashtrace/pkg/clock"
)

// Object is a structured document read back from the workspace.
type Object struct {
	// Path is the absolute path of the .json artifact.
	Path string `json:"path"`

	// Fields holds the decoded document.
	Fields map[string]any `json:"fields"`
}

// Summary describes one stored report pair.
type Summary struct {
	// ID is the shared base name of the artifacts.
	ID string `json:"id"`

	// CrashTime is parsed from ID; zero when the name does not follow the layout.
	CrashTime time.Time `json:"crash_time"`

	// CrashName and CrashReason are read from the structured document when present.
	CrashName   string `json:"crash_name,omitempty"`
	CrashReason string `json:"crash_reason,omitempty"`

	JSONPath string `json:"json_path,omitempty"`
	LogPath  string `json:"log_path,omitempty"`

	// Size is the combined size of both artifacts in bytes.
	Size int64 `json:"size"`
}

// ExportLogFiles lists the report artifacts in the workspace sorted by name,
// which is chronological. A workspace directory that does not exist yet
// yields an empty list; a writer without a configured workspace returns
// ErrNoWorkspace.
func (w *Writer) ExportLogFiles() ([]string, error) {
	workspace := w.Workspace()
	if workspace == "" {
		return nil, ErrNoWorkspace
	}

	names, err := w.artifactNames(workspace)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(workspace, name))
	}

	return paths, nil
}

// ExportLogObjects decodes every structured document in the workspace.
// Documents that cannot be read or decoded are skipped.
func (w *Writer) ExportLogObjects() ([]Object, error) {
	paths, err := w.ExportLogFiles()
	if err != nil {
		return nil, err
	}

	objects := make([]Object, 0, len(paths))

	for _, path := range paths {
		if filepath.Ext(path) != JSONExt {
			continue
		}

		fields, err := w.readObject(path)
		if err != nil {
			w.log.Warn("skipping unreadable report", "path", path, "error", err)

			continue
		}

		objects = append(objects, Object{Path: path, Fields: fields})
	}

	return objects, nil
}

// RemoveLog deletes a single artifact. A missing file is not an error.
func (w *Writer) RemoveLog(path string) error {
	if path == "" {
		return nil
	}

	if err := w.storage.Remove(path); err != nil && !IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove %s", path)
	}

	return nil
}

// List summarizes every report pair in the workspace, oldest first.
func (w *Writer) List() ([]Summary, error) {
	workspace := w.Workspace()
	if workspace == "" {
		return nil, ErrNoWorkspace
	}

	names, err := w.artifactNames(workspace)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Summary)
	ids := make([]string, 0, len(names))

	for _, name := range names {
		ext := filepath.Ext(name)
		id := strings.TrimSuffix(name, ext)

		s, ok := byID[id]
		if !ok {
			s = &Summary{ID: id}
			if t, err := clock.ParseFileName(id); err == nil {
				s.CrashTime = t
			}

			byID[id] = s
			ids = append(ids, id)
		}

		path := filepath.Join(workspace, name)
		if size, err := w.storage.Size(path); err == nil {
			s.Size += size
		}

		switch ext {
		case JSONExt:
			s.JSONPath = path

			if fields, err := w.readObject(path); err == nil {
				s.CrashName, _ = fields["crashName"].(string)
				s.CrashReason, _ = fields["crashReason"].(string)
			}
		case LogExt:
			s.LogPath = path
		}
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		summaries = append(summaries, *byID[id])
	}

	return summaries, nil
}

// Get returns the summary of a single report.
func (w *Writer) Get(id string) (*Summary, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	summaries, err := w.List()
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		if summaries[i].ID == id {
			return &summaries[i], nil
		}
	}

	return nil, errors.Wrap(ErrReportNotFound, id)
}

// Remove deletes both artifacts of a report.
func (w *Writer) Remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	workspace := w.Workspace()
	if workspace == "" {
		return ErrNoWorkspace
	}

	found := false

	var errs error

	for _, ext := range []string{JSONExt, LogExt} {
		err := w.storage.Remove(filepath.Join(workspace, id+ext))

		switch {
		case err == nil:
			found = true
		case IsNotExist(err):
		default:
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "failed to remove %s%s", id, ext))
		}
	}

	if errs != nil {
		return errs
	}

	if !found {
		return errors.Wrap(ErrReportNotFound, id)
	}

	return nil
}

// Prune keeps the newest keep reports and removes the rest. A keep of zero or
// less disables pruning. It returns the removed IDs.
func (w *Writer) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	summaries, err := w.List()
	if err != nil {
		return nil, err
	}

	if len(summaries) <= keep {
		return nil, nil
	}

	var (
		removed []string
		errs    error
	)

	for _, s := range summaries[:len(summaries)-keep] {
		if err := w.Remove(s.ID); err != nil {
			errs = errors.CombineErrors(errs, err)

			continue
		}

		removed = append(removed, s.ID)
	}

	if len(removed) > 0 {
		w.log.Debug("pruned old reports", "removed", len(removed), "kept", keep)
	}

	return removed, errs
}

// ReadLog returns the text document of a report.
func (w *Writer) ReadLog(id string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	workspace := w.Workspace()
	if workspace == "" {
		return nil, ErrNoWorkspace
	}

	data, err := w.storage.ReadFile(filepath.Join(workspace, id+LogExt))
	if err != nil {
		if IsNotExist(err) {
			return nil, errors.Wrap(ErrReportNotFound, id)
		}

		return nil, errors.Wrapf(err, "failed to read report %s", id)
	}

	return data, nil
}

func (w *Writer) artifactNames(workspace string) ([]string, error) {
	names, err := w.storage.List(workspace)
	if err != nil {
		if IsNotExist(err) {
			return []string{}, nil
		}

		return nil, errors.Wrap(err, "failed to list workspace")
	}

	names = slices.DeleteFunc(names, func(name string) bool {
		ext := filepath.Ext(name)

		return strings.HasPrefix(name, ".") || (ext != JSONExt && ext != LogExt)
	})
	slices.Sort(names)

	return names, nil
}

func (w *Writer) readObject(path string) (map[string]any, error) {
	data, err := w.storage.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "malformed report")
	}

	if fields == nil {
		return nil, errors.New("malformed report: not an object")
	}

	return fields, nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return errors.Wrap(ErrInvalidReportID, id)
	}

	return nil
}
