// Package convert drives the per-file conversion loop.
// Each target is imported and exported in turn, one at a time; the outcome
// of every target is returned as a Result and reported as a single line, and
// a failing target never stops the ones after it.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gr2fbx/internal/backup"
	"gr2fbx/internal/errors"
	"gr2fbx/internal/filter"
	"gr2fbx/internal/granny"
)

// Stage names the step a conversion reached.
type Stage string

// Conversion stages.
const (
	StageImport Stage = "import"
	StageExport Stage = "export"
)

// Result is the outcome of converting one target. Err is nil on success;
// otherwise Stage tells which step failed.
type Result struct {
	Target     filter.Target
	Stage      Stage
	Err        error
	BackupPath string
	Duration   time.Duration
}

// OK reports whether the conversion succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Summary counts the outcomes of a Run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Hooks observe a Run. A nil OnResult is skipped.
type Hooks struct {
	OnResult func(Result)
}

// Driver converts targets with an Importer and an Exporter.
type Driver struct {
	importer   granny.Importer
	exporter   granny.Exporter
	importOpts granny.ImportOptions
	backups    *backup.Manager
	stdout     io.Writer
	stderr     io.Writer
	logger     *slog.Logger
	hooks      Hooks
}

// Option customizes a Driver.
type Option func(*Driver)

// WithImportOptions sets the options passed to every import.
func WithImportOptions(opts granny.ImportOptions) Option {
	return func(d *Driver) { d.importOpts = opts }
}

// WithBackups protects existing output files with bm.
func WithBackups(bm *backup.Manager) Option {
	return func(d *Driver) { d.backups = bm }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) { d.logger = logger }
}

// WithHooks registers observers for each Result.
func WithHooks(h Hooks) Option {
	return func(d *Driver) { d.hooks = h }
}

// NewDriver creates a Driver writing status lines to stdout and stderr.
func NewDriver(importer granny.Importer, exporter granny.Exporter, stdout, stderr io.Writer, opts ...Option) *Driver {
	d := &Driver{
		importer: importer,
		exporter: exporter,
		backups:  backup.NewBackupManager(false),
		stdout:   stdout,
		stderr:   stderr,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(slog.String("component", "driver"))
	return d
}

// Run converts targets in order and prints one line per target:
// "Exported: <output>" on stdout, or "<Stage> failed with error: <msg>" on
// stderr. It always attempts every target.
func (d *Driver) Run(ctx context.Context, targets []filter.Target) Summary {
	summary := Summary{}

	for _, target := range targets {
		result := d.Convert(ctx, target)
		d.report(result)

		summary.Total++
		if result.OK() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}

		if d.hooks.OnResult != nil {
			d.hooks.OnResult(result)
		}
	}

	d.logger.Debug("Run finished",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
	return summary
}

// Convert imports target.Input and exports the scene to target.Output with
// skeleton, materials and animation enabled. A panic inside the backend is
// recovered and reported as a failure of the stage that raised it.
func (d *Driver) Convert(ctx context.Context, target filter.Target) (result Result) {
	start := time.Now()
	result = Result{Target: target, Stage: StageImport}

	defer func() {
		if r := recover(); r != nil {
			result.Err = d.panicError(result.Stage, target, r)
		}
		result.Duration = time.Since(start)
	}()

	scene, err := d.importer.Import(ctx, target.Input, d.importOpts)
	if err != nil {
		result.Err = err
		return result
	}
	if scene == nil {
		result.Err = errors.NewImportError(target.Input, "importer returned no scene", nil)
		return result
	}

	result.Stage = StageExport

	backupPath, err := d.backups.BackupFile(target.Output)
	if err != nil {
		result.Err = err
		return result
	}
	result.BackupPath = backupPath

	if err := d.exporter.Export(ctx, scene, target.Output, granny.DefaultExportOptions()); err != nil {
		result.Err = err
		if restoreErr := d.backups.RestoreFile(target.Output, backupPath); restoreErr != nil {
			d.logger.Warn("Cannot restore previous output", slog.String("path", target.Output), slog.Any("error", restoreErr))
		}
		result.BackupPath = ""
		return result
	}

	return result
}

func (d *Driver) panicError(stage Stage, target filter.Target, r any) error {
	cause := fmt.Errorf("panic: %v", r)
	if stage == StageImport {
		return errors.NewImportError(target.Input, "importer crashed", cause)
	}
	return errors.NewExportError(target.Output, "exporter crashed", cause)
}

func (d *Driver) report(result Result) {
	if result.OK() {
		fmt.Fprintf(d.stdout, "Exported: %s\n", result.Target.Output)
		d.logger.Debug("Converted",
			slog.String("input", result.Target.Input),
			slog.String("output", result.Target.Output),
			slog.Duration("duration", result.Duration),
		)
		return
	}

	fmt.Fprintf(d.stderr, "%s failed with error: %s\n", stageLabel(result.Stage), errors.Detail(result.Err))
	d.logger.Debug("Conversion failed",
		slog.String("input", result.Target.Input),
		slog.String("stage", string(result.Stage)),
		slog.Any("error", result.Err),
	)
}

func stageLabel(stage Stage) string {
	switch stage {
	case StageImport:
		return "Import"
	default:
		return "Export"
	}
}
