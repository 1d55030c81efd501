package convert

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gr2fbx/internal/backup"
	"gr2fbx/internal/errors"
	"gr2fbx/internal/filter"
	"gr2fbx/internal/granny"
)

// MockImporter provides a mock implementation of granny.Importer.
type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) Import(ctx context.Context, path string, opts granny.ImportOptions) (*granny.Scene, error) {
	args := m.Called(ctx, path, opts)
	scene, _ := args.Get(0).(*granny.Scene)
	return scene, args.Error(1)
}

// MockExporter provides a mock implementation of granny.Exporter.
type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context, scene *granny.Scene, outputPath string, opts granny.ExportOptions) error {
	args := m.Called(ctx, scene, outputPath, opts)
	return args.Error(0)
}

func target(dir, name string) filter.Target {
	input := filepath.Join(dir, name)
	return filter.Target{Input: input, Output: filter.OutputPath(input)}
}

func newTestDriver(imp granny.Importer, exp granny.Exporter, opts ...Option) (*Driver, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return NewDriver(imp, exp, stdout, stderr, opts...), stdout, stderr
}

func TestConvertSuccess(t *testing.T) {
	tgt := target("assets", "hero.gr2")
	scene := granny.NewScene(tgt.Input, []byte("x"))

	imp := &MockImporter{}
	imp.On("Import", mock.Anything, tgt.Input, granny.ImportOptions{MaxSize: 10}).Return(scene, nil).Once()
	exp := &MockExporter{}
	exp.On("Export", mock.Anything, scene, tgt.Output, granny.DefaultExportOptions()).Return(nil).Once()

	driver, _, _ := newTestDriver(imp, exp, WithImportOptions(granny.ImportOptions{MaxSize: 10}))
	result := driver.Convert(context.Background(), tgt)

	assert.True(t, result.OK())
	assert.Equal(t, StageExport, result.Stage)
	assert.Equal(t, tgt, result.Target)
	imp.AssertExpectations(t)
	exp.AssertExpectations(t)
}

func TestConvertImportFailureSkipsExport(t *testing.T) {
	tgt := target("assets", "broken.gr2")

	imp := &MockImporter{}
	imp.On("Import", mock.Anything, tgt.Input, mock.Anything).
		Return(nil, errors.NewImportError(tgt.Input, "cannot open model file", nil))
	exp := &MockExporter{}

	driver, _, _ := newTestDriver(imp, exp)
	result := driver.Convert(context.Background(), tgt)

	require.False(t, result.OK())
	assert.Equal(t, StageImport, result.Stage)
	assert.ErrorIs(t, result.Err, errors.ErrImport)
	exp.AssertNotCalled(t, "Export", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConvertNilScene(t *testing.T) {
	tgt := target("assets", "a.gr2")

	imp := &MockImporter{}
	imp.On("Import", mock.Anything, tgt.Input, mock.Anything).Return(nil, nil)
	exp := &MockExporter{}

	driver, _, _ := newTestDriver(imp, exp)
	result := driver.Convert(context.Background(), tgt)

	require.False(t, result.OK())
	assert.Equal(t, StageImport, result.Stage)
	assert.Contains(t, result.Err.Error(), "importer returned no scene")
}

func TestConvertRecoversPanics(t *testing.T) {
	tgt := target("assets", "a.gr2")
	scene := granny.NewScene(tgt.Input, []byte("x"))

	imp := &MockImporter{}
	imp.On("Import", mock.Anything, tgt.Input, mock.Anything).Return(scene, nil)
	exp := &MockExporter{}
	exp.On("Export", mock.Anything, scene, tgt.Output, mock.Anything).Panic("nil bone table")

	driver, _, _ := newTestDriver(imp, exp)
	result := driver.Convert(context.Background(), tgt)

	require.False(t, result.OK())
	assert.Equal(t, StageExport, result.Stage)
	assert.ErrorIs(t, result.Err, errors.ErrExport)
	assert.Contains(t, result.Err.Error(), "nil bone table")
}

func TestRunContinuesAfterFailure(t *testing.T) {
	targets := []filter.Target{
		target("assets", "a.gr2"),
		target("assets", "b.gr2"),
		target("assets", "c.GR2"),
	}

	imp := &MockImporter{}
	exp := &MockExporter{}
	for _, tgt := range targets {
		scene := granny.NewScene(tgt.Input, []byte(tgt.Input))
		imp.On("Import", mock.Anything, tgt.Input, mock.Anything).Return(scene, nil).Once()
		if strings.HasSuffix(tgt.Input, "b.gr2") {
			exp.On("Export", mock.Anything, scene, tgt.Output, mock.Anything).
				Return(errors.NewExportError(tgt.Output, "unsupported skeleton layout", nil)).Once()
			continue
		}
		exp.On("Export", mock.Anything, scene, tgt.Output, mock.Anything).Return(nil).Once()
	}

	var seen []Result
	driver, stdout, stderr := newTestDriver(imp, exp, WithHooks(Hooks{
		OnResult: func(r Result) { seen = append(seen, r) },
	}))
	summary := driver.Run(context.Background(), targets)

	assert.Equal(t, Summary{Total: 3, Succeeded: 2, Failed: 1}, summary)
	assert.Len(t, seen, 3)
	imp.AssertExpectations(t)
	exp.AssertExpectations(t)

	expectedOut := "Exported: " + targets[0].Output + "\n" + "Exported: " + targets[2].Output + "\n"
	assert.Equal(t, expectedOut, stdout.String())
	assert.Equal(t, "Export failed with error: unsupported skeleton layout\n", stderr.String())
	assert.Equal(t, 1, strings.Count(stderr.String(), "unsupported skeleton layout"))
}

func TestRunReportsImportFailures(t *testing.T) {
	tgt := target("assets", "a.gr2")

	imp := &MockImporter{}
	imp.On("Import", mock.Anything, tgt.Input, mock.Anything).
		Return(nil, errors.NewImportError(tgt.Input, "model file is empty", nil))

	driver, stdout, stderr := newTestDriver(imp, &MockExporter{})
	summary := driver.Run(context.Background(), []filter.Target{tgt})

	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, stdout.String())
	assert.Equal(t, "Import failed with error: model file is empty\n", stderr.String())
}

func TestRunNoTargets(t *testing.T) {
	driver, stdout, stderr := newTestDriver(&MockImporter{}, &MockExporter{})
	summary := driver.Run(context.Background(), nil)

	assert.Equal(t, Summary{}, summary)
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestConvertRestoresBackupOnExportFailure(t *testing.T) {
	dir := t.TempDir()
	tgt := target(dir, "hero.gr2")
	require.NoError(t, os.WriteFile(tgt.Output, []byte("previous fbx"), 0644))

	scene := granny.NewScene(tgt.Input, []byte("x"))
	imp := &MockImporter{}
	imp.On("Import", mock.Anything, tgt.Input, mock.Anything).Return(scene, nil)
	exp := &MockExporter{}
	exp.On("Export", mock.Anything, scene, tgt.Output, mock.Anything).
		Run(func(args mock.Arguments) {
			_ = os.WriteFile(args.String(2), []byte("half written"), 0644)
		}).
		Return(errors.NewExportError(tgt.Output, "disk full", nil))

	driver, _, _ := newTestDriver(imp, exp, WithBackups(backup.NewBackupManager(true)))
	result := driver.Convert(context.Background(), tgt)

	require.False(t, result.OK())
	assert.Empty(t, result.BackupPath)

	content, err := os.ReadFile(tgt.Output)
	require.NoError(t, err)
	assert.Equal(t, "previous fbx", string(content))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.bak"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestConvertKeepsBackupOnSuccess(t *testing.T) {
	dir := t.TempDir()
	tgt := target(dir, "hero.gr2")
	require.NoError(t, os.WriteFile(tgt.Output, []byte("previous fbx"), 0644))

	scene := granny.NewScene(tgt.Input, []byte("x"))
	imp := &MockImporter{}
	imp.On("Import", mock.Anything, tgt.Input, mock.Anything).Return(scene, nil)
	exp := &MockExporter{}
	exp.On("Export", mock.Anything, scene, tgt.Output, mock.Anything).Return(nil)

	driver, _, _ := newTestDriver(imp, exp, WithBackups(backup.NewBackupManager(true)))
	result := driver.Convert(context.Background(), tgt)

	require.True(t, result.OK())
	require.NotEmpty(t, result.BackupPath)
	content, err := os.ReadFile(result.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "previous fbx", string(content))
}
