// Package config loads the YAML settings shared by the gait command line tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	gaitnotes "gait-analyzer"
	"gait-analyzer/chart"
	"gait-analyzer/pipeline"
	"gait-analyzer/trial"
)

// DefaultPath is looked up in the working directory when no --config is given.
const DefaultPath = "gait.yaml"

// Environment overrides.
const (
	EnvDataDir  = "GAIT_DATA_DIR"
	EnvOutDir   = "GAIT_OUT_DIR"
	EnvLogLevel = "GAIT_LOG_LEVEL"
)

// Config holds all gait-analyzer configuration.
type Config struct {
	DataDir  string           `yaml:"data_dir"`
	OutDir   string           `yaml:"out_dir"`
	Analysis gaitnotes.Config `yaml:"analysis"`
	Charts   ChartsConfig     `yaml:"charts"`
	Output   OutputConfig     `yaml:"output"`
	Logging  LoggingConfig    `yaml:"logging"`
}

// ChartsConfig configures the per-channel charts.
type ChartsConfig struct {
	Format        string   `yaml:"format"` // svg, png, pdf, ...
	WidthIn       float64  `yaml:"width_in"`
	HeightIn      float64  `yaml:"height_in"`
	Channels      []string `yaml:"channels"`
	SharedYLimits bool     `yaml:"shared_y_limits"`
	HatchUTurn    bool     `yaml:"hatch_uturn"`
	Overview      bool     `yaml:"overview"`
	Concurrency   int      `yaml:"concurrency"`
}

// OutputConfig configures the artifacts written next to the charts.
type OutputConfig struct {
	Format      string `yaml:"format"` // parquet, csv
	FIT         bool   `yaml:"fit"`
	CopySources bool   `yaml:"copy_sources"`
	Overwrite   bool   `yaml:"overwrite"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  trial.DefaultDir,
		OutDir:   "out",
		Analysis: gaitnotes.DefaultConfig(),
		Charts: ChartsConfig{
			Format:   chart.DefaultFormat,
			WidthIn:  10,
			HeightIn: 4,
			Channels: gaitnotes.ChannelNames(),
		},
		Output: OutputConfig{
			Format:      pipeline.FormatParquet,
			CopySources: true,
			Overwrite:   true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.DataDir = dir
	}
	if dir := os.Getenv(EnvOutDir); dir != "" {
		c.OutDir = dir
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := chart.ValidateFormat(c.Charts.Format); err != nil {
		return fmt.Errorf("charts: %w", err)
	}
	if c.Charts.WidthIn < 0 || c.Charts.HeightIn < 0 {
		return fmt.Errorf("charts: negative size %gx%g in", c.Charts.WidthIn, c.Charts.HeightIn)
	}
	if err := gaitnotes.ValidateChannels(c.Charts.Channels); err != nil {
		return fmt.Errorf("charts: %w", err)
	}
	if c.Analysis.Filter.Order == 0 {
		for _, name := range c.Charts.Channels {
			if strings.HasSuffix(strings.ToUpper(name), gaitnotes.FilteredSuffix) {
				return fmt.Errorf("charts: channel %q needs analysis.filter.order > 0: %w", name, gaitnotes.ErrUnknownChannel)
			}
		}
	}
	switch strings.ToLower(c.Output.Format) {
	case "", pipeline.FormatParquet, pipeline.FormatCSV:
	default:
		return fmt.Errorf("invalid output format: %s (valid: parquet, csv)", c.Output.Format)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}
	return nil
}

// NewLogger builds the zap logger described by Logging. verbose forces debug level.
func (c *Config) NewLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// PipelineOptions maps the configuration onto a pipeline run of one trial. The trial's artifacts
// go to <out_dir>/<code>.
func (c *Config) PipelineOptions(code string, logger *zap.Logger) pipeline.Options {
	return pipeline.Options{
		DataDir:       c.DataDir,
		Code:          code,
		OutDir:        filepath.Join(c.OutDir, code),
		Overwrite:     c.Output.Overwrite,
		Format:        c.Output.Format,
		ChartFormat:   c.Charts.Format,
		Channels:      c.Charts.Channels,
		ChartWidthIn:  c.Charts.WidthIn,
		ChartHeightIn: c.Charts.HeightIn,
		SharedYLimits: c.Charts.SharedYLimits,
		HatchUTurn:    c.Charts.HatchUTurn,
		Overview:      c.Charts.Overview,
		FIT:           c.Output.FIT,
		CopySources:   c.Output.CopySources,
		Concurrency:   c.Charts.Concurrency,
		Logger:        logger,
		Analysis:      c.Analysis,
	}
}
