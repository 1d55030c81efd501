// Package config provides configuration management and validation for gr2fbx.
// It centralizes command-line options, config-file settings and environment
// overrides, and validates them before any model file is touched.
package config

import (
	"strings"
	"time"

	"gr2fbx/internal/errors"
)

// Mode selects how the input path is interpreted.
type Mode string

// Supported modes. ModeAuto inspects the path and picks file or directory.
const (
	ModeAuto      Mode = "auto"
	ModeFile      Mode = "file"
	ModeDirectory Mode = "directory"
)

// ReportFormat represents the supported output formats for run reports.
type ReportFormat string

// Supported report format constants.
const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatYAML ReportFormat = "yaml"
)

// Config holds all runtime configuration options for a conversion run.
// It is the single source of truth handed to every component.
type Config struct {
	Input string
	Mode  Mode

	ExporterCommand []string
	ExporterTimeout time.Duration
	MaxImportSize   int64

	Backup   bool
	Progress bool

	LogLevel  string
	LogFormat string

	ReportFile   string
	ReportFormat ReportFormat

	// ConfigFileUsed is the config file viper read, if any.
	ConfigFileUsed string
}

// Validate checks the settings and normalizes them in place.
func (c *Config) Validate() error {
	if err := c.validateInput(); err != nil {
		return err
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	if err := c.validateReport(); err != nil {
		return err
	}

	if c.ExporterTimeout < 0 {
		return errors.NewConfigError("exporter timeout must not be negative", nil)
	}

	if c.MaxImportSize < 0 {
		return errors.NewConfigError("importer max size must not be negative", nil)
	}

	c.normalizeConfig()
	return nil
}

func (c *Config) validateInput() error {
	if c.Input == "" {
		return errors.NewConfigError("input path is required", nil)
	}

	switch c.Mode {
	case "", ModeAuto, ModeFile, ModeDirectory:
		return nil
	default:
		return errors.NewConfigError("unknown mode: "+string(c.Mode), nil)
	}
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "error", "warn", "info", "debug":
	default:
		return errors.NewConfigError("log level must be one of error, warn, info, debug", nil)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "text", "json":
	default:
		return errors.NewConfigError("log format must be 'text' or 'json'", nil)
	}
	return nil
}

func (c *Config) validateReport() error {
	switch ReportFormat(strings.ToLower(string(c.ReportFormat))) {
	case "", ReportFormatJSON, ReportFormatCSV, ReportFormatYAML:
		return nil
	default:
		return errors.NewConfigError("report format must be 'json', 'csv' or 'yaml'", nil)
	}
}

func (c *Config) normalizeConfig() {
	if c.Mode == "" {
		c.Mode = ModeAuto
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}

	c.ReportFormat = ReportFormat(strings.ToLower(string(c.ReportFormat)))
	if c.ReportFormat == "" {
		c.ReportFormat = ReportFormatJSON
	}

	c.ExporterCommand = normalizeCommand(c.ExporterCommand)
}

// normalizeCommand drops empty argv elements left over from env or YAML input.
func normalizeCommand(argv []string) []string {
	var out []string
	for _, arg := range argv {
		if strings.TrimSpace(arg) == "" {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// HasReport reports whether a run report should be written.
func (c *Config) HasReport() bool {
	return c.ReportFile != ""
}
