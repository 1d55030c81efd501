// Package log provides diagnostics and run reporting for gr2fbx.
// Diagnostics go through log/slog; the run report records every conversion
// result and is written as JSON, CSV or YAML once the run is over.
package log

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gr2fbx/internal/config"
	"gr2fbx/internal/convert"
	"gr2fbx/internal/errors"
)

// Entry records the outcome of one target.
type Entry struct {
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
	Input      string `json:"input" yaml:"input"`
	Output     string `json:"output" yaml:"output"`
	Exported   bool   `json:"exported" yaml:"exported"`
	Stage      string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	BackupPath string `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
}

// Summary provides aggregate statistics for the whole run.
type Summary struct {
	TotalFiles     int           `json:"total_files" yaml:"total_files"`
	ExportedFiles  int           `json:"exported_files" yaml:"exported_files"`
	ImportErrors   int           `json:"import_errors" yaml:"import_errors"`
	ExportErrors   int           `json:"export_errors" yaml:"export_errors"`
	ProcessingTime time.Duration `json:"processing_time" yaml:"processing_time"`
}

// Logger collects conversion results and writes the run report.
type Logger struct {
	path    string
	format  config.ReportFormat
	writer  io.Writer
	entries []Entry
	summary Summary
	now     func() time.Time
}

// NewLogger creates a Logger writing its report to cfg.ReportFile.
func NewLogger(cfg *config.Config) (*Logger, error) {
	file, err := os.Create(cfg.ReportFile)
	if err != nil {
		return nil, errors.NewFileError(cfg.ReportFile, "failed to create report file", err)
	}
	l := newLogger(file, cfg.ReportFormat)
	l.path = cfg.ReportFile
	return l, nil
}

func newLogger(w io.Writer, format config.ReportFormat) *Logger {
	return &Logger{
		format:  format,
		writer:  w,
		entries: []Entry{},
		now:     time.Now,
	}
}

// LogResult records the outcome of a conversion.
func (l *Logger) LogResult(result convert.Result) {
	entry := Entry{
		Timestamp:  l.now().Format(time.RFC3339),
		Input:      result.Target.Input,
		Output:     result.Target.Output,
		Exported:   result.OK(),
		BackupPath: result.BackupPath,
		DurationMs: result.Duration.Milliseconds(),
	}

	if result.Err != nil {
		entry.Stage = string(result.Stage)
		entry.Error = errors.Detail(result.Err)
		if result.Stage == convert.StageImport {
			l.summary.ImportErrors++
		} else {
			l.summary.ExportErrors++
		}
	} else {
		l.summary.ExportedFiles++
	}

	l.entries = append(l.entries, entry)
	l.summary.TotalFiles++
}

// SetProcessingTime records the total run duration for the report.
func (l *Logger) SetProcessingTime(duration time.Duration) {
	l.summary.ProcessingTime = duration
}

// WriteReport writes the report in the configured format.
func (l *Logger) WriteReport() error {
	switch l.format {
	case config.ReportFormatCSV:
		return l.writeCSVReport()
	case config.ReportFormatYAML:
		return l.writeYAMLReport()
	default:
		return l.writeJSONReport()
	}
}

type report struct {
	Summary Summary `json:"summary" yaml:"summary"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

func (l *Logger) writeJSONReport() error {
	encoder := json.NewEncoder(l.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report{Summary: l.summary, Entries: l.entries})
}

func (l *Logger) writeYAMLReport() error {
	encoder := yaml.NewEncoder(l.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(report{Summary: l.summary, Entries: l.entries}); err != nil {
		return err
	}
	return encoder.Close()
}

func (l *Logger) writeCSVReport() error {
	writer := csv.NewWriter(l.writer)

	header := []string{"input", "output", "exported", "stage", "error", "duration_ms"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, entry := range l.entries {
		record := []string{
			entry.Input,
			entry.Output,
			fmt.Sprintf("%t", entry.Exported),
			entry.Stage,
			entry.Error,
			fmt.Sprintf("%d", entry.DurationMs),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	// Statistics trail the records as comment lines.
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	fmt.Fprintf(l.writer, "# Total files processed: %d\n", l.summary.TotalFiles)
	fmt.Fprintf(l.writer, "# Files exported: %d\n", l.summary.ExportedFiles)
	fmt.Fprintf(l.writer, "# Import errors: %d\n", l.summary.ImportErrors)
	fmt.Fprintf(l.writer, "# Export errors: %d\n", l.summary.ExportErrors)
	fmt.Fprintf(l.writer, "# Processing time: %v\n", l.summary.ProcessingTime)

	return nil
}

// Close releases the report file.
func (l *Logger) Close() error {
	closer, ok := l.writer.(io.Closer)
	if !ok || l.writer == os.Stdout || l.writer == os.Stderr {
		return nil
	}
	if err := closer.Close(); err != nil {
		return errors.NewFileError(l.path, "failed to close report file", err)
	}
	return nil
}

// ParseLevel maps a level name onto a slog level. Unknown names mean warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelWarn
	}
}

// NewSlog builds the diagnostic logger. Text output omits timestamps.
func NewSlog(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)

	removeTime := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		return a
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: removeTime,
		})
	}
	return slog.New(handler)
}
