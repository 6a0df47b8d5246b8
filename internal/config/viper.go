// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"fjacquet/sales-etl/internal/dateutils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read through viper.
const EnvPrefix = "SALES"

// Log configures the logrus adapter.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Source locates the remote sales table. URL and Key are the connection
// credentials the loader refuses to start without.
type Source struct {
	URL            string `mapstructure:"url" yaml:"url"`
	Key            string `mapstructure:"key" yaml:"-"` // Never serialize the access key
	Table          string `mapstructure:"table" yaml:"table"`
	PageSize       int    `mapstructure:"page_size" yaml:"page_size"`
	RowLimit       int    `mapstructure:"row_limit" yaml:"row_limit"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout.
func (s Source) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Transform configures the transformation pipeline.
type Transform struct {
	CutoffDate string `mapstructure:"cutoff_date" yaml:"cutoff_date"`
	FillGaps   bool   `mapstructure:"fill_gaps" yaml:"fill_gaps"`
}

// Cutoff parses CutoffDate.
func (t Transform) Cutoff() (time.Time, error) {
	return time.Parse(dateutils.DateLayoutISO, t.CutoffDate)
}

// CSV configures delimited-text output.
type CSV struct {
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// Rune returns the delimiter as a rune.
func (c CSV) Rune() rune {
	r := []rune(c.Delimiter)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}

// Paths locates the files a run reads and writes.
type Paths struct {
	RawFile     string `mapstructure:"raw_file" yaml:"raw_file"`
	MonthlyFile string `mapstructure:"monthly_file" yaml:"monthly_file"`
	ReportDir   string `mapstructure:"report_dir" yaml:"report_dir"`
}

// Store configures the optional SQLite run store. An empty Path disables it.
type Store struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Config represents the complete application configuration
type Config struct {
	Log       Log       `mapstructure:"log" yaml:"log"`
	Source    Source    `mapstructure:"source" yaml:"source"`
	Transform Transform `mapstructure:"transform" yaml:"transform"`
	CSV       CSV       `mapstructure:"csv" yaml:"csv"`
	Paths     Paths     `mapstructure:"paths" yaml:"paths"`
	Store     Store     `mapstructure:"store" yaml:"store"`
}

// InitializeConfig loads configuration with the precedence defaults < config
// file < environment. configFile overrides the search path when non-empty.
func InitializeConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.sales-etl")
		v.AddConfigPath(".sales-etl")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. Connection credentials also come from the unprefixed variables
	if err := v.BindEnv("source.url", EnvPrefix+"_SOURCE_URL", "SUPABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind source url: %w", err)
	}
	if err := v.BindEnv("source.key", EnvPrefix+"_SOURCE_KEY", "SUPABASE_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind source key: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration made of defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("source.url", "")
	v.SetDefault("source.key", "")
	v.SetDefault("source.table", "ventas_raw")
	v.SetDefault("source.page_size", 1000)
	v.SetDefault("source.row_limit", 100000)
	v.SetDefault("source.timeout_seconds", 60)

	v.SetDefault("transform.cutoff_date", "2025-12-31")
	v.SetDefault("transform.fill_gaps", false)

	v.SetDefault("csv.delimiter", ",")

	v.SetDefault("paths.raw_file", "data/raw/ventas_raw.csv")
	v.SetDefault("paths.monthly_file", "data/processed/ventas_mensuales.csv")
	v.SetDefault("paths.report_dir", "outputs/reports")

	v.SetDefault("store.path", "")
}

// Validate checks the configuration after flags have overridden file and
// environment values.
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if len([]rune(config.CSV.Delimiter)) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}

	if _, err := config.Transform.Cutoff(); err != nil {
		return fmt.Errorf("transform.cutoff_date must be YYYY-MM-DD, got: %s", config.Transform.CutoffDate)
	}

	if config.Source.PageSize < 1 {
		return fmt.Errorf("source.page_size must be positive, got: %d", config.Source.PageSize)
	}

	if config.Source.TimeoutSeconds < 1 || config.Source.TimeoutSeconds > 600 {
		return fmt.Errorf("source.timeout_seconds must be between 1 and 600, got: %d", config.Source.TimeoutSeconds)
	}

	return nil
}
