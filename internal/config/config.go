package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"scorecard/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment variable (SCORECARD_PIPELINE_STRICT, ...)
const EnvPrefix = "SCORECARD"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"eq=json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against BaseDir.
type PathsConfig struct {
	BaseDir     string `yaml:"base_dir" envconfig:"BASE_DIR"`
	ExtractsDir string `yaml:"extracts_dir" envconfig:"EXTRACTS_DIR" validate:"required"`
	ReportsDir  string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
	// Manifest maps extract files to years explicitly. Extracts lists files
	// oldest first; they get consecutive years from Pipeline.BaseYear. With
	// neither set, years are read from file names with Pipeline.YearPattern.
	Manifest string   `yaml:"manifest" envconfig:"MANIFEST"`
	Extracts []string `yaml:"extracts" envconfig:"EXTRACTS"`
	Plan     string   `yaml:"plan" envconfig:"PLAN" validate:"required"`
}

// PipelineConfig controls ingestion and persistence
type PipelineConfig struct {
	BaseYear        int    `yaml:"base_year" envconfig:"BASE_YEAR" validate:"min=1900,max=2100"`
	Strict          bool   `yaml:"strict" envconfig:"STRICT"`
	LoadConcurrency int    `yaml:"load_concurrency" envconfig:"LOAD_CONCURRENCY" validate:"min=1,max=64"`
	YearPattern     string `yaml:"year_pattern" envconfig:"YEAR_PATTERN" validate:"required"`
	ExtractGlob     string `yaml:"extract_glob" envconfig:"EXTRACT_GLOB" validate:"required"`
	Store           string `yaml:"store" envconfig:"STORE" validate:"oneof=csv xlsx memory"`
	Workbook        string `yaml:"workbook" envconfig:"WORKBOOK" validate:"required"`
	// Sheet is the worksheet read from .xlsx extracts that don't name one.
	Sheet string `yaml:"sheet" envconfig:"SHEET"`
}

// TelemetryConfig controls tracing and batch metrics
type TelemetryConfig struct {
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"min=0,max=1"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	MetricsFile   string  `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/scorecard.log",
		},
		Paths: PathsConfig{
			BaseDir:     ".",
			ExtractsDir: "data/extracts",
			ReportsDir:  "data/reports",
			LogsDir:     "logs",
			Plan:        "plan.yaml",
		},
		Pipeline: PipelineConfig{
			BaseYear:        domain.BaseYear,
			Strict:          false,
			LoadConcurrency: 4,
			YearPattern:     `(\d{4})`,
			ExtractGlob:     "*.csv",
			Store:           "xlsx",
			Workbook:        "aggregates.xlsx",
		},
		Telemetry: TelemetryConfig{
			EnableTracing: false,
			TraceExporter: "none",
			SampleRatio:   1.0,
			EnableMetrics: true,
			MetricsFile:   "data/reports/scorecard.prom",
		},
	}
}

// Load builds the configuration from defaults, then the first config file
// found in the usual locations, then SCORECARD_* environment variables.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching environment variable keep their current value.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if cfg.Paths.BaseDir == "" || cfg.Paths.BaseDir == "." {
		cfg.Paths.BaseDir = filepath.Dir(filePath)
	}
	return nil
}

var validate = validator.New()

// validate validates the configuration
func (c *Config) validate() error {
	// JSON is the only supported log format
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := regexp.Compile(c.Pipeline.YearPattern); err != nil {
		return fmt.Errorf("invalid year pattern %q: %w", c.Pipeline.YearPattern, err)
	}

	if c.Paths.Manifest != "" && len(c.Paths.Extracts) > 0 {
		return fmt.Errorf("paths.manifest and paths.extracts are mutually exclusive")
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return fmt.Errorf("logging output %q requires a file path", c.Logging.Output)
	}

	return nil
}

// YearRegexp compiles the configured year pattern. The first capture group
// (or the whole match) must hold a four digit year.
func (c *Config) YearRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.Pipeline.YearPattern)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	locations := []string{
		"scorecard.yaml",
		"configs/scorecard.yaml",
		"../configs/scorecard.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}
