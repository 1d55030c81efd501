package granny

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gr2fbx/internal/errors"
)

const (
	// RequestSchemaVersion is sent with every request to the converter process.
	RequestSchemaVersion = "1"

	// maxCaptureBytes bounds how much converter stdout/stderr is kept.
	maxCaptureBytes = 1024 * 1024

	// waitDelay bounds how long Export waits for the converter's output pipes
	// to close once the process was killed. Children of the converter can
	// hold them open after it is gone.
	waitDelay = 2 * time.Second
)

// ExportOptions selects which parts of a scene are written.
type ExportOptions struct {
	Skeleton  bool `json:"skeleton"`
	Materials bool `json:"materials"`
	Animation bool `json:"animation"`
}

// DefaultExportOptions enables skeleton, materials and animation export.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Skeleton:  true,
		Materials: true,
		Animation: true,
	}
}

// Exporter writes a Scene to an output file.
type Exporter interface {
	Export(ctx context.Context, scene *Scene, outputPath string, opts ExportOptions) error
}

// ExportRequest is the JSON document written to the converter's stdin.
type ExportRequest struct {
	SchemaVersion string        `json:"schema_version"`
	Input         string        `json:"input"`
	Output        string        `json:"output"`
	Options       ExportOptions `json:"options"`
	Size          int64         `json:"size"`
	ModTime       time.Time     `json:"mod_time"`
	Data          []byte        `json:"data"`
}

// CommandExporter hands scenes to an external converter process.
//
// The process is started with the configured argv, receives one
// ExportRequest on stdin and must write the file named by its Output field.
// That path is a staging file in the output's directory, moved over the
// real output only after the process exits cleanly, so a converter that
// writes nothing never leaves an earlier output looking fresh. A non-zero
// exit status fails the export with the process's stderr as the message.
type CommandExporter struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommandExporter creates a CommandExporter. A zero timeout means none.
func NewCommandExporter(command []string, timeout time.Duration, logger *slog.Logger) *CommandExporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandExporter{
		command: command,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "exporter")),
	}
}

// Export runs the converter for one scene.
func (ce *CommandExporter) Export(ctx context.Context, scene *Scene, outputPath string, opts ExportOptions) error {
	if len(ce.command) == 0 {
		return errors.NewExportError(outputPath, "exporter command not configured", nil)
	}
	if scene == nil {
		return errors.NewExportError(outputPath, "no scene to export", nil)
	}

	input, err := filepath.Abs(scene.source)
	if err != nil {
		input = scene.source
	}
	output, err := filepath.Abs(outputPath)
	if err != nil {
		output = outputPath
	}

	stageDir, err := os.MkdirTemp(filepath.Dir(output), ".gr2fbx-*")
	if err != nil {
		return errors.NewExportError(outputPath, "cannot create staging directory", errors.WrapFileError(filepath.Dir(output), err))
	}
	defer os.RemoveAll(stageDir)
	staged := filepath.Join(stageDir, filepath.Base(output))

	request, err := json.Marshal(ExportRequest{
		SchemaVersion: RequestSchemaVersion,
		Input:         input,
		Output:        staged,
		Options:       opts,
		Size:          scene.size,
		ModTime:       scene.modTime,
		Data:          scene.data,
	})
	if err != nil {
		return errors.NewExportError(outputPath, "cannot encode converter request", err)
	}

	if ce.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ce.timeout)
		defer cancel()
	}

	logArgs := []any{
		slog.String("input", input),
		slog.String("output", output),
		slog.String("command", strings.Join(ce.command, " ")),
	}

	stdout := &cappedBuffer{limit: maxCaptureBytes}
	stderr := &cappedBuffer{limit: maxCaptureBytes}

	cmd := exec.CommandContext(ctx, ce.command[0], ce.command[1:]...)
	cmd.Stdin = bytes.NewReader(request)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	ce.logger.Debug("Starting converter", logArgs...)
	runErr := cmd.Run()
	logArgs = append(logArgs, slog.Duration("duration", time.Since(start)))

	if out := strings.TrimSpace(stdout.String()); out != "" {
		ce.logger.Debug("Converter output", append(logArgs, slog.String("stdout", out))...)
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.NewExportError(outputPath, "converter interrupted", ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			ce.logger.Debug("Converter failed", append(logArgs, slog.Any("error", runErr))...)
			return errors.NewExportError(outputPath, msg, nil)
		}
		return errors.NewExportError(outputPath, "converter failed", runErr)
	}

	info, err := os.Stat(staged)
	if err != nil {
		return errors.NewExportError(outputPath, "converter did not write output file", errors.WrapFileError(staged, err))
	}
	if !info.Mode().IsRegular() {
		return errors.NewExportError(outputPath, "converter output is not a regular file", nil)
	}
	if err := os.Rename(staged, output); err != nil {
		return errors.NewExportError(outputPath, "cannot move converter output into place", err)
	}

	ce.logger.Debug("Converter finished", append(logArgs, slog.Int64("bytes", info.Size()))...)
	return nil
}

// cappedBuffer keeps the first limit bytes written to it and silently drops
// the rest, so a chatty converter cannot exhaust memory.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

var _ io.Writer = (*cappedBuffer)(nil)

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
