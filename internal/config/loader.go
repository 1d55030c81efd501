package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gr2fbx/internal/errors"
)

const (
	// EnvPrefix prefixes every environment override, e.g. GR2FBX_EXPORTER_COMMAND.
	EnvPrefix = "GR2FBX"
	// DefaultConfigName is the config file base name searched when --config is not given.
	DefaultConfigName = "gr2fbx"

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Viper keys.
const (
	KeyExporterCommand = "exporter.command"
	KeyExporterTimeout = "exporter.timeout"
	KeyImporterMaxSize = "importer.max_size"
	KeyBackup          = "backup"
	KeyProgress        = "progress"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyReportFile      = "report.file"
	KeyReportFormat    = "report.format"
)

// flagKeys maps command-line flag names onto viper keys.
var flagKeys = map[string]string{
	"exporter":      KeyExporterCommand,
	"timeout":       KeyExporterTimeout,
	"max-size":      KeyImporterMaxSize,
	"backup":        KeyBackup,
	"progress":      KeyProgress,
	"log-level":     KeyLogLevel,
	"log-format":    KeyLogFormat,
	"report":        KeyReportFile,
	"report-format": KeyReportFormat,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyExporterCommand, []string{})
	v.SetDefault(KeyExporterTimeout, "0s")
	v.SetDefault(KeyImporterMaxSize, 0)
	v.SetDefault(KeyBackup, false)
	v.SetDefault(KeyProgress, false)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyReportFile, "")
	v.SetDefault(KeyReportFormat, string(ReportFormatJSON))
}

// Load merges defaults, the config file, GR2FBX_* environment variables and
// the changed flags in flags (highest precedence) into a Config. The input
// path and mode are left for the caller to fill in before Validate.
//
// When cfgFile is empty, gr2fbx.yaml is searched in the working directory and
// in $HOME/.config/gr2fbx; a missing file is not an error in that case.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !stderrors.As(err, &notFound) {
			path := cfgFile
			if path == "" {
				path = v.ConfigFileUsed()
			}
			return nil, errors.NewConfigErrorWithPath(path, "cannot read config file", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errors.NewConfigError("cannot bind flag --"+name, err)
			}
		}
	}

	return &Config{
		ExporterCommand: v.GetStringSlice(KeyExporterCommand),
		ExporterTimeout: v.GetDuration(KeyExporterTimeout),
		MaxImportSize:   v.GetInt64(KeyImporterMaxSize),
		Backup:          v.GetBool(KeyBackup),
		Progress:        v.GetBool(KeyProgress),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		ReportFile:      v.GetString(KeyReportFile),
		ReportFormat:    ReportFormat(v.GetString(KeyReportFormat)),
		ConfigFileUsed:  v.ConfigFileUsed(),
	}, nil
}
