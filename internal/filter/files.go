// Package filter resolves the input path of a run into conversion targets.
// It decides whether the path is a file or a directory, selects the model
// files a directory holds and computes where each converted file is written.
package filter

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gr2fbx/internal/errors"
)

// OutputExtension is appended to the stem of every input file.
const OutputExtension = ".fbx"

// ModelExtensions lists the extensions accepted when scanning a directory.
// Matching is literal: ".Gr2" is not a model file.
var ModelExtensions = []string{".gr2", ".GR2"}

// Target is a single input file selected for conversion together with the
// path its converted output is written to.
type Target struct {
	Input  string
	Output string
}

// FileFilter defines a predicate over directory entries. Filters are chained
// and an entry is selected only when every filter accepts it.
type FileFilter func(path string, entry fs.DirEntry) (bool, error)

// Resolver turns an input path into targets.
type Resolver struct {
	logger  *slog.Logger
	filters []FileFilter
}

// NewResolver creates a Resolver with the default model-file filters.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		logger:  logger.With(slog.String("component", "resolver")),
		filters: buildFilters(),
	}
}

// IsDirectory reports whether path names an existing directory.
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ResolveFile returns the single target for path. The extension is not
// checked; whatever the caller names is handed to the importer.
func (r *Resolver) ResolveFile(path string) Target {
	return Target{Input: path, Output: OutputPath(path)}
}

// ResolveDirectory returns a target for every model file directly inside dir.
// Subdirectories are not descended into. A directory that cannot be read
// yields no targets.
func (r *Resolver) ResolveDirectory(dir string) []Target {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Debug("Cannot read directory", slog.String("path", dir), slog.Any("error", errors.WrapFileError(dir, err)))
		return nil
	}

	var targets []Target
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		selected, err := r.shouldProcessFile(path, entry)
		if err != nil {
			r.logger.Debug("Skipping entry", slog.String("path", path), slog.Any("error", err))
			continue
		}
		if !selected {
			continue
		}

		targets = append(targets, Target{Input: path, Output: OutputPath(path)})
	}

	r.logger.Debug("Resolved directory", slog.String("path", dir), slog.Int("targets", len(targets)))
	return targets
}

func (r *Resolver) shouldProcessFile(path string, entry fs.DirEntry) (bool, error) {
	for _, filter := range r.filters {
		should, err := filter(path, entry)
		if err != nil {
			return false, err
		}
		if !should {
			return false, nil
		}
	}
	return true, nil
}

func buildFilters() []FileFilter {
	return []FileFilter{
		extensionFilter(ModelExtensions),
		regularFileFilter(),
	}
}

func extensionFilter(allowed []string) FileFilter {
	return func(path string, _ fs.DirEntry) (bool, error) {
		_, ext := splitExt(filepath.Base(path))
		for _, a := range allowed {
			if ext == a {
				return true, nil
			}
		}
		return false, nil
	}
}

// regularFileFilter accepts regular files, following symbolic links.
func regularFileFilter() FileFilter {
	return func(path string, entry fs.DirEntry) (bool, error) {
		if entry.Type().IsRegular() {
			return true, nil
		}
		if entry.Type()&fs.ModeSymlink == 0 {
			return false, nil
		}

		info, err := os.Stat(path)
		if err != nil {
			return false, errors.WrapFileError(path, err)
		}
		return info.Mode().IsRegular(), nil
	}
}

// OutputPath returns <dir>/<stem>.fbx for the input path.
func OutputPath(input string) string {
	stem, _ := splitExt(filepath.Base(input))
	return filepath.Join(filepath.Dir(input), stem+OutputExtension)
}

// splitExt splits a file name into stem and extension. A name made of a
// leading dot and no further dot (".gr2") is all stem, as are "." and "..".
func splitExt(name string) (stem, ext string) {
	if name == "." || name == ".." {
		return name, ""
	}
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
