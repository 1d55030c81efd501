package errors

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertError(t *testing.T) {
	tests := []struct {
		name        string
		errorType   ErrorType
		path        string
		message     string
		cause       error
		expectedMsg string
	}{
		{
			name:        "error with path",
			errorType:   ErrTypeFile,
			path:        "/path/to/model.gr2",
			message:     "file not found",
			cause:       nil,
			expectedMsg: "file error for /path/to/model.gr2: file not found",
		},
		{
			name:        "error without path",
			errorType:   ErrTypeConfig,
			path:        "",
			message:     "invalid configuration",
			cause:       nil,
			expectedMsg: "config error: invalid configuration",
		},
		{
			name:        "error with cause",
			errorType:   ErrTypeExport,
			path:        "/out/model.fbx",
			message:     "converter exited",
			cause:       errors.New("exit status 2"),
			expectedMsg: "export error for /out/model.fbx: converter exited: exit status 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ConvertError{
				Type:    tt.errorType,
				Path:    tt.path,
				Message: tt.message,
				Cause:   tt.cause,
			}

			if err.Error() != tt.expectedMsg {
				t.Errorf("expected %q, got %q", tt.expectedMsg, err.Error())
			}

			if err.Unwrap() != tt.cause {
				t.Errorf("expected cause %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestConvertErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		expect bool
	}{
		{
			name:   "import error matches import sentinel",
			err:    NewImportError("a.gr2", "bad", nil),
			target: ErrImport,
			expect: true,
		},
		{
			name:   "export error does not match import sentinel",
			err:    NewExportError("a.fbx", "bad", nil),
			target: ErrImport,
			expect: false,
		},
		{
			name:   "file not found matches file sentinel",
			err:    NewFileNotFoundError("a.gr2", nil),
			target: ErrFile,
			expect: true,
		},
		{
			name:   "standard error",
			err:    errors.New("standard error"),
			target: ErrExport,
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.expect {
				t.Errorf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestErrorsAs(t *testing.T) {
	var err error = NewExportError("/out/a.fbx", "failed", nil)

	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatal("expected errors.As to find *ExportError")
	}
	if exportErr.Path != "/out/a.fbx" {
		t.Errorf("expected path /out/a.fbx, got %s", exportErr.Path)
	}

	var importErr *ImportError
	if errors.As(err, &importErr) {
		t.Error("export error should not be an *ImportError")
	}
}

func TestNewConfigErrorWithPath(t *testing.T) {
	cause := errors.New("yaml: line 3")
	err := NewConfigErrorWithPath("gr2fbx.yaml", "cannot read config", cause)

	if err.Type != ErrTypeConfig {
		t.Errorf("expected type %s, got %s", ErrTypeConfig, err.Type)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if !strings.Contains(err.Error(), "gr2fbx.yaml") {
		t.Errorf("expected path in message, got %q", err.Error())
	}
}

func TestWrapFileError(t *testing.T) {
	if WrapFileError("x", nil) != nil {
		t.Error("expected nil for nil error")
	}

	missing := filepath.Join(t.TempDir(), "missing.gr2")
	_, statErr := os.Stat(missing)

	wrapped := WrapFileError(missing, statErr)
	var notFound *FileNotFoundError
	if !errors.As(wrapped, &notFound) {
		t.Fatalf("expected *FileNotFoundError, got %T", wrapped)
	}
	if !filepath.IsAbs(notFound.Path) {
		t.Errorf("expected absolute path, got %s", notFound.Path)
	}

	generic := WrapFileError("model.gr2", errors.New("boom"))
	var fileErr *FileError
	if !errors.As(generic, &fileErr) {
		t.Fatalf("expected *FileError, got %T", generic)
	}
	if fileErr.Message != "file operation failed" {
		t.Errorf("unexpected message %q", fileErr.Message)
	}
}

func TestErrorTypeConstants(t *testing.T) {
	expected := map[ErrorType]string{
		ErrTypeFile:   "file",
		ErrTypeConfig: "config",
		ErrTypeImport: "import",
		ErrTypeExport: "export",
		ErrTypeBackup: "backup",
	}

	for errType, want := range expected {
		if string(errType) != want {
			t.Errorf("expected %q, got %q", want, errType)
		}
	}
}

func TestDetail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "typed error without cause",
			err:      NewExportError("/out/a.fbx", "unsupported skeleton layout", nil),
			expected: "unsupported skeleton layout",
		},
		{
			name:     "typed error with cause",
			err:      NewImportError("a.gr2", "cannot read model file", errors.New("i/o timeout")),
			expected: "cannot read model file: i/o timeout",
		},
		{
			name:     "nested embedding",
			err:      NewFileNotFoundError("/a.gr2", nil),
			expected: "file not found",
		},
		{
			name:     "untyped error",
			err:      errors.New("boom"),
			expected: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detail(tt.err); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
