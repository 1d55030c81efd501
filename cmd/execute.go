// Package cmd implements the command-line interface and orchestration logic for gr2fbx.
// It coordinates configuration, target resolution, conversion and reporting.
package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gr2fbx/internal/backup"
	"gr2fbx/internal/config"
	"gr2fbx/internal/convert"
	"gr2fbx/internal/errors"
	"gr2fbx/internal/filter"
	"gr2fbx/internal/granny"
	"gr2fbx/internal/log"
)

// newBackend builds the importer and exporter for a run.
var newBackend = func(cfg *config.Config, logger *slog.Logger) (granny.Importer, granny.Exporter) {
	return granny.NewFileImporter(), granny.NewCommandExporter(cfg.ExporterCommand, cfg.ExporterTimeout, logger)
}

func runConvert(cmd *cobra.Command, args []string, opts *rootOptions, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	switch {
	case cmd.Flags().Changed("file"):
		cfg.Input, cfg.Mode = opts.file.value, config.ModeFile
	case cmd.Flags().Changed("dir"):
		cfg.Input, cfg.Mode = opts.dir.value, config.ModeDirectory
	default:
		cfg.Input, cfg.Mode = args[0], config.ModeAuto
	}

	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.NewSlog(stderr, cfg.LogLevel, cfg.LogFormat)
	if opts.wdErr != nil {
		logger.Debug("Working directory not changed", slog.Any("error", opts.wdErr))
	}
	if cfg.ConfigFileUsed != "" {
		logger.Debug("Using configuration file", slog.String("path", cfg.ConfigFileUsed))
	}

	return executeConvert(ctx, cfg, logger, stdout, stderr)
}

func executeConvert(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	startTime := time.Now()

	resolver := filter.NewResolver(logger)
	mode := cfg.Mode
	if mode == config.ModeAuto {
		mode = config.ModeFile
		if filter.IsDirectory(cfg.Input) {
			mode = config.ModeDirectory
		}
	}

	var targets []filter.Target
	if mode == config.ModeDirectory {
		targets = resolver.ResolveDirectory(cfg.Input)
	} else {
		targets = []filter.Target{resolver.ResolveFile(cfg.Input)}
	}

	var reporter *log.Logger
	if cfg.HasReport() {
		var err error
		reporter, err = log.NewLogger(cfg)
		if err != nil {
			return err
		}
	}

	bar := newProgress(stderr, len(targets), cfg.Progress && mode == config.ModeDirectory)
	defer bar.Finish()

	importer, exporter := newBackend(cfg, logger)
	driver := convert.NewDriver(importer, exporter, stdout, stderr,
		convert.WithImportOptions(granny.ImportOptions{MaxSize: cfg.MaxImportSize}),
		convert.WithBackups(backup.NewBackupManager(cfg.Backup)),
		convert.WithLogger(logger),
		convert.WithHooks(convert.Hooks{
			OnResult: func(result convert.Result) {
				if reporter != nil {
					reporter.LogResult(result)
				}
				_ = bar.Add(1)
			},
		}),
	)

	summary := driver.Run(ctx, targets)
	logger.Info("Conversion finished",
		slog.String("input", cfg.Input),
		slog.String("mode", string(mode)),
		slog.Int("exported", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)

	if reporter == nil {
		return nil
	}
	reporter.SetProcessingTime(time.Since(startTime))
	if err := reporter.WriteReport(); err != nil {
		_ = reporter.Close()
		return errors.NewFileError(cfg.ReportFile, "failed to write report", err)
	}
	return reporter.Close()
}
