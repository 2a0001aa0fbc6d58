// Package config loads smackdown settings from defaults, an optional YAML
// file and SMACKDOWN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverage"
	"github.com/Sumatoshi-tech/smackdown/pkg/coverdiff"
	"github.com/Sumatoshi-tech/smackdown/pkg/diffwalk"
	"github.com/Sumatoshi-tech/smackdown/pkg/observability"
	"github.com/Sumatoshi-tech/smackdown/pkg/render"
)

// Sentinel validation errors.
var (
	ErrInvalidContextLines = errors.New("context lines must be positive")
	ErrInvalidFormat       = errors.New("unknown output format")
	ErrInvalidLogLevel     = errors.New("unknown log level")
	ErrConflictingCoverage = coverage.ErrConflictingSources
)

const (
	// configName is the config file name without extension.
	configName = ".smackdown"

	// configType is the config file format.
	configType = "yaml"

	// envPrefix is the environment variable prefix for smackdown settings.
	envPrefix = "SMACKDOWN"

	// envKeySeparator is the nested key separator in environment variable names.
	envKeySeparator = "_"

	// envListSeparator splits list values given as a single environment
	// variable. Patterns are regexes and may contain commas.
	envListSeparator = "\n"
)

// Config holds all smackdown settings.
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Coverage   CoverageConfig   `mapstructure:"coverage"`
	Filters    FiltersConfig    `mapstructure:"filters"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// RepositoryConfig selects the repository and the revisions to compare.
type RepositoryConfig struct {
	Path         string `mapstructure:"path"`
	Head         string `mapstructure:"head"`
	MergeBase    string `mapstructure:"merge_base"`
	ContextLines int    `mapstructure:"context_lines"`
}

// CoverageConfig selects the coverage report.
type CoverageConfig struct {
	Report     string `mapstructure:"report"`
	JSON       string `mapstructure:"json"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// FiltersConfig selects the files left out of judgment.
type FiltersConfig struct {
	// Patterns replaces the default exclusions when set.
	Patterns     []string `mapstructure:"patterns"`
	SkipVendored bool     `mapstructure:"skip_vendored"`
	IgnoreFile   string   `mapstructure:"ignore_file"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format      string `mapstructure:"format"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig configures OTLP export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	OTLPHeaders  string `mapstructure:"otlp_headers"`
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise .smackdown.yaml is searched in searchDirs and then the CWD.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string, searchDirs ...string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	bindErr := viperCfg.BindEnv("filters.patterns")
	if bindErr != nil {
		return nil, fmt.Errorf("bind env: %w", bindErr)
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)

		for _, dir := range searchDirs {
			viperCfg.AddConfigPath(dir)
		}

		viperCfg.AddConfigPath(".")
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(envListSeparator),
	)))
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("repository.path", DefaultRepositoryPath)
	viperCfg.SetDefault("repository.head", diffwalk.DefaultHead)
	viperCfg.SetDefault("repository.merge_base", diffwalk.DefaultMergeBase)
	viperCfg.SetDefault("repository.context_lines", diffwalk.DefaultContextLines)

	viperCfg.SetDefault("coverage.report", "")
	viperCfg.SetDefault("coverage.json", "")
	viperCfg.SetDefault("coverage.path_prefix", "")

	viperCfg.SetDefault("filters.skip_vendored", false)
	viperCfg.SetDefault("filters.ignore_file", "")

	viperCfg.SetDefault("output.format", render.FormatText)
	viperCfg.SetDefault("output.metrics_file", "")

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
}

// Validate checks the configuration for values no run can use.
func (c *Config) Validate() error {
	if c.Repository.ContextLines <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidContextLines, c.Repository.ContextLines)
	}

	if !render.ValidFormat(c.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	_, err := c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	if c.Coverage.Report != "" && c.Coverage.JSON != "" {
		return ErrConflictingCoverage
	}

	return nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// ReporterOptions maps the configuration onto coverdiff options.
func (c *Config) ReporterOptions() coverdiff.Options {
	return coverdiff.Options{
		CoverageReport:   c.Coverage.Report,
		CoverageJSON:     c.Coverage.JSON,
		ReportPathPrefix: c.Coverage.PathPrefix,
		Head:             c.Repository.Head,
		MergeBase:        c.Repository.MergeBase,
		ContextLines:     c.Repository.ContextLines,
		Filters:          c.Filters.Patterns,
		SkipVendored:     c.Filters.SkipVendored,
		IgnoreFile:       c.Filters.IgnoreFile,
	}
}

// ObservabilityConfig maps the logging and telemetry settings onto an
// observability configuration.
func (c *Config) ObservabilityConfig() (observability.Config, error) {
	level, err := c.Logging.SlogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.LogLevel = level
	obsCfg.LogJSON = c.Logging.JSON
	obsCfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)

	return obsCfg, nil
}
