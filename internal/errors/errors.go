// Package errors provides a hierarchical error system for gr2fbx operations.
// It implements typed errors that can be inspected and handled differently
// based on their category, so the driver can tell an import failure from an
// export failure and the CLI can tell both apart from configuration mistakes.
package errors

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrorType represents the category of error for classification and handling.
type ErrorType string

// Error type constants define the categories of errors that can occur during
// a conversion run.
const (
	ErrTypeFile   ErrorType = "file"
	ErrTypeConfig ErrorType = "config"
	ErrTypeImport ErrorType = "import"
	ErrTypeExport ErrorType = "export"
	ErrTypeBackup ErrorType = "backup"
)

// ConvertError is the base error type that provides structured error information.
// Specific error types embed it, and the embedded path and cause information
// carries enough context to print a useful one-line failure message.
type ConvertError struct {
	Type    ErrorType
	Path    string
	Message string
	Cause   error
}

func (e *ConvertError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Type, e.Path, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *ConvertError) Unwrap() error {
	return e.Cause
}

// Is implements error identity checking so errors.Is matches on the error
// category rather than on pointer identity.
func (e *ConvertError) Is(target error) bool {
	t, ok := target.(*ConvertError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func (e *ConvertError) base() *ConvertError {
	return e
}

type typedError interface {
	base() *ConvertError
}

// Detail returns the message of the outermost typed error in err's chain,
// followed by its cause, without the "<type> error for <path>" prefix.
// Untyped errors are returned as err.Error().
func Detail(err error) string {
	var te typedError
	if !errors.As(err, &te) {
		return err.Error()
	}
	ce := te.base()
	if ce.Cause != nil {
		return fmt.Sprintf("%s: %v", ce.Message, ce.Cause)
	}
	return ce.Message
}

// Sentinel values usable with errors.Is to test an error's category.
var (
	ErrFile   = &ConvertError{Type: ErrTypeFile}
	ErrImport = &ConvertError{Type: ErrTypeImport}
	ErrExport = &ConvertError{Type: ErrTypeExport}
)

// FileError represents file system operation errors.
type FileError struct {
	*ConvertError
}

// NewFileError creates a file operation error with context.
func NewFileError(path, message string, cause error) *FileError {
	return &FileError{
		ConvertError: &ConvertError{
			Type:    ErrTypeFile,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// FileNotFoundError represents errors when files cannot be located.
type FileNotFoundError struct {
	*FileError
}

// NewFileNotFoundError creates a file not found error.
func NewFileNotFoundError(path string, cause error) *FileNotFoundError {
	return &FileNotFoundError{
		FileError: NewFileError(path, "file not found", cause),
	}
}

// FileNotReadableError represents errors when files cannot be read from.
type FileNotReadableError struct {
	*FileError
}

// NewFileNotReadableError creates a file read permission error.
func NewFileNotReadableError(path string, cause error) *FileNotReadableError {
	return &FileNotReadableError{
		FileError: NewFileError(path, "file not readable", cause),
	}
}

// ConfigError represents configuration validation and loading errors.
// These halt the run before any file is touched.
type ConfigError struct {
	*ConvertError
}

// NewConfigError creates a configuration error without path context.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		ConvertError: &ConvertError{
			Type:    ErrTypeConfig,
			Message: message,
			Cause:   cause,
		},
	}
}

// NewConfigErrorWithPath creates a configuration error tied to a config file.
func NewConfigErrorWithPath(path, message string, cause error) *ConfigError {
	return &ConfigError{
		ConvertError: &ConvertError{
			Type:    ErrTypeConfig,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// ImportError represents a failure of the importer to produce a scene
// from an input model file.
type ImportError struct {
	*ConvertError
}

// NewImportError creates an import error for the given input path.
func NewImportError(path, message string, cause error) *ImportError {
	return &ImportError{
		ConvertError: &ConvertError{
			Type:    ErrTypeImport,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// ExportError represents a failure of the exporter to write an output file.
type ExportError struct {
	*ConvertError
}

// NewExportError creates an export error for the given output path.
func NewExportError(path, message string, cause error) *ExportError {
	return &ExportError{
		ConvertError: &ConvertError{
			Type:    ErrTypeExport,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// BackupError represents errors during backup and restore of output files.
type BackupError struct {
	*ConvertError
}

// NewBackupError creates a backup operation error.
func NewBackupError(path, message string, cause error) *BackupError {
	return &BackupError{
		ConvertError: &ConvertError{
			Type:    ErrTypeBackup,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// WrapFileError converts standard Go file errors into typed errors.
func WrapFileError(path string, err error) error {
	if err == nil {
		return nil
	}

	absPath, absErr := filepath.Abs(path)
	if absErr != nil {
		absPath = path
	}
	switch {
	case os.IsNotExist(err):
		return NewFileNotFoundError(absPath, err)
	case os.IsPermission(err):
		return NewFileNotReadableError(absPath, err)
	default:
		return NewFileError(absPath, "file operation failed", err)
	}
}
