// Package granny is the boundary between gr2fbx and the conversion backend.
//
// The backend owns everything format-specific: reading GR2 data, building a
// scene and serializing it as FBX. gr2fbx only sees the Importer and
// Exporter interfaces and the opaque Scene handle passed between them.
package granny

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gr2fbx/internal/errors"
)

// ImportOptions configures an import. The zero value is the default.
type ImportOptions struct {
	// MaxSize rejects input files larger than this many bytes. Zero means no limit.
	MaxSize int64
}

// Scene is the opaque result of an import. It is created by an Importer,
// consumed by a single Export call and then discarded.
type Scene struct {
	source  string
	size    int64
	modTime time.Time
	data    []byte
}

// Source returns the path the scene was imported from.
func (s *Scene) Source() string { return s.source }

// Size returns the size in bytes of the imported file.
func (s *Scene) Size() int64 { return s.size }

// Importer produces a Scene from a model file.
//
// Failures are returned as errors, never signalled by panicking or by
// terminating the process.
type Importer interface {
	Import(ctx context.Context, path string, opts ImportOptions) (*Scene, error)
}

// FileImporter loads model files from the local filesystem. It checks that
// the input is a readable, non-empty regular file and keeps its contents for
// the exporter; format decoding is left to the backend.
type FileImporter struct{}

// NewFileImporter creates a FileImporter.
func NewFileImporter() *FileImporter {
	return &FileImporter{}
}

// Import reads path into a Scene.
func (fi *FileImporter) Import(ctx context.Context, path string, opts ImportOptions) (*Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewImportError(path, "import cancelled", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewImportError(path, "cannot open model file", errors.WrapFileError(path, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewImportError(path, "cannot stat model file", err)
	}

	if !info.Mode().IsRegular() {
		return nil, errors.NewImportError(path, "not a regular file", nil)
	}

	if info.Size() == 0 {
		return nil, errors.NewImportError(path, "model file is empty", nil)
	}

	if opts.MaxSize > 0 && info.Size() > opts.MaxSize {
		return nil, errors.NewImportError(path,
			fmt.Sprintf("model file is %d bytes, limit is %d", info.Size(), opts.MaxSize), nil)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewImportError(path, "cannot read model file", err)
	}

	return &Scene{
		source:  path,
		size:    int64(len(data)),
		modTime: info.ModTime(),
		data:    data,
	}, nil
}

// NewScene builds a Scene from in-memory data. Importers other than
// FileImporter use it to hand their results to an Exporter.
func NewScene(source string, data []byte) *Scene {
	return &Scene{
		source:  source,
		size:    int64(len(data)),
		modTime: time.Now(),
		data:    data,
	}
}
