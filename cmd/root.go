package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gr2fbx/internal/config"

	"github.com/spf13/cobra"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usageLine = "Usage: gr2fbx -d directory_path OR -f file_path"

// errUsage marks invocations that do not match one of the accepted forms.
var errUsage = errors.New("invalid invocation")

// resetWorkingDirectory moves the process into the directory holding the
// executable, so relative paths resolve the same way however it was started.
var resetWorkingDirectory = func() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	return os.Chdir(filepath.Dir(exe))
}

type rootOptions struct {
	file    pathFlag
	dir     pathFlag
	cfgFile string
	verbose bool
	wdErr   error
}

func newRootCmd(stdout, stderr io.Writer, wdErr error) *cobra.Command {
	opts := &rootOptions{wdErr: wdErr}

	cmd := &cobra.Command{
		Use:   "gr2fbx [<path> | -f <file> | -d <directory>]",
		Short: "Convert GR2 models to FBX",
		Long: `gr2fbx converts GR2 model files to FBX with skeleton, materials and
animation included. Each input is written next to itself with an .fbx
extension. Given a directory, every .gr2/.GR2 file directly inside it is
converted; subdirectories are not searched.

Relative paths are resolved against the directory holding the gr2fbx
executable. Put -- before a path that starts with a dash:

  gr2fbx -- -model.gr2`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          opts.validateArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, opts, stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	cmd.Flags().VarP(&opts.file, "file", "f", "Convert exactly one file")
	cmd.Flags().VarP(&opts.dir, "dir", "d", "Convert every .gr2/.GR2 file in a directory (non-recursive)")

	cmd.Flags().StringVar(&opts.cfgFile, "config", "", "Config file (default: gr2fbx.yaml next to the executable or in ~/.config/gr2fbx)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug diagnostics on stderr")
	cmd.Flags().StringSlice("exporter", nil, "Converter command and arguments (comma separated)")
	cmd.Flags().Duration("timeout", 0, "Abort a single export after this long (0 for no limit)")
	cmd.Flags().Int64("max-size", 0, "Reject input files larger than this many bytes (0 for no limit)")
	cmd.Flags().Bool("backup", false, "Keep a .bak copy of outputs that are overwritten")
	cmd.Flags().Bool("progress", false, "Show a progress bar on a terminal in directory mode")
	cmd.Flags().String("log-level", config.DefaultLogLevel, "Diagnostic log level (error/warn/info/debug)")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "Diagnostic log format (text/json)")
	cmd.Flags().String("report", "", "Write a run report to this file")
	cmd.Flags().Var(newReportFormatFlag(), "report-format", "Report format (json, csv, yaml)")

	cmd.MarkFlagsMutuallyExclusive("file", "dir")

	return cmd
}

// validateArgs accepts exactly one of: a single positional path, -f <file>
// or -d <directory>. Each flag may be given once.
func (o *rootOptions) validateArgs(_ *cobra.Command, args []string) error {
	switch {
	case o.file.count > 1 || o.dir.count > 1:
		return errUsage
	case o.file.count > 0 && o.dir.count > 0:
		return errUsage
	case o.file.count > 0 || o.dir.count > 0:
		if len(args) != 0 {
			return errUsage
		}
	default:
		if len(args) != 1 {
			return errUsage
		}
	}
	return nil
}

// Execute runs the command line and exits with its status code.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run resets the working directory once, dispatches args and maps the
// outcome to an exit code: 0 once conversion ran, whatever the per-file
// results, and 1 for usage or configuration errors.
func run(args []string, stdout, stderr io.Writer) int {
	wdErr := resetWorkingDirectory()

	cmd := newRootCmd(stdout, stderr, wdErr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, usageLine)
		return 1
	default:
		fmt.Fprintf(stderr, "Error: %s\n", err.Error())
		return 1
	}
}

// pathFlag is a string flag that counts how often it was set.
type pathFlag struct {
	value string
	count int
}

func (p *pathFlag) String() string {
	return p.value
}

func (p *pathFlag) Set(v string) error {
	p.value = v
	p.count++
	return nil
}

func (p *pathFlag) Type() string {
	return "string"
}

type reportFormatFlag config.ReportFormat

func newReportFormatFlag() *reportFormatFlag {
	f := reportFormatFlag(config.ReportFormatJSON)
	return &f
}

func (f *reportFormatFlag) String() string {
	return string(*f)
}

func (f *reportFormatFlag) Set(v string) error {
	switch config.ReportFormat(v) {
	case config.ReportFormatJSON, config.ReportFormatCSV, config.ReportFormatYAML:
		*f = reportFormatFlag(v)
		return nil
	default:
		return fmt.Errorf("must be 'json', 'csv' or 'yaml'")
	}
}

func (f *reportFormatFlag) Type() string {
	return "string"
}
