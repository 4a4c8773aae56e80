// Package main provides the Vigia pipeline CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the pipeline configuration.
type Config struct {
	Warehouse WarehouseConfig           `yaml:"warehouse"`
	History   HistoryConfig             `yaml:"history"`
	LLM       LLMConfig                 `yaml:"llm"`
	Geocode   GeocodeConfig             `yaml:"geocode"`
	Pipeline  PipelineConfig            `yaml:"pipeline"`
	Notifiers map[string]NotifierConfig `yaml:"notifiers"`
	Metrics   MetricsConfig             `yaml:"metrics"`
	Verbose   bool                      `yaml:"-"` // set via CLI flag
}

// WarehouseConfig contains ClickHouse connection settings.
type WarehouseConfig struct {
	Addresses []string `yaml:"addresses"` // host:port list (default: localhost:9000)
	Database  string   `yaml:"database"`  // database name (default: vigia)
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"` // overridden by VIGIA_WAREHOUSE_PASSWORD
}

// HistoryConfig contains the local alert history settings.
type HistoryConfig struct {
	Path string `yaml:"path"` // SQLite file path (default: data/vigia-history.db)
}

// LLMConfig contains model backend settings.
type LLMConfig struct {
	Backend          string  `yaml:"backend"` // gemini or openai
	Model            string  `yaml:"model"`   // backend default when empty
	APIKey           string  `yaml:"api_key"` // overridden by VIGIA_LLM_API_KEY
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// GeocodeConfig contains address geocoding settings.
type GeocodeConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"` // overridden by VIGIA_GEOCODE_API_KEY
}

// PipelineConfig contains run tuning.
type PipelineConfig struct {
	LookbackMinutes  int      `yaml:"lookback_minutes"` // incident window (default: 30)
	IntervalMinutes  int      `yaml:"interval_minutes"` // 0 runs once and exits
	ExcludeSources   []string `yaml:"exclude_sources"`
	EnableCategories bool     `yaml:"enable_categories"`
	BufferMeters     int      `yaml:"buffer_meters"`
	UseThreading     bool     `yaml:"use_threading"`
	MaxWorkers       int      `yaml:"max_workers"`
}

// NotifierConfig contains one requester's webhook channel. The map key in
// Config.Notifiers is the requester name alerts are routed by.
type NotifierConfig struct {
	URL              string  `yaml:"url"`
	MaxMessageLength int     `yaml:"max_message_length"`
	RatePerSecond    float64 `yaml:"rate_per_second"`
	Burst            int     `yaml:"burst"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // listen address (default: :9090)
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if len(c.Warehouse.Addresses) == 0 {
		c.Warehouse.Addresses = []string{"localhost:9000"}
	}
	if c.Warehouse.Database == "" {
		c.Warehouse.Database = "vigia"
	}
	if c.History.Path == "" {
		c.History.Path = "data/vigia-history.db"
	}
	if c.LLM.Backend == "" {
		c.LLM.Backend = "gemini"
	}
	if c.Pipeline.LookbackMinutes <= 0 {
		c.Pipeline.LookbackMinutes = 30
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if key := os.Getenv("VIGIA_WAREHOUSE_PASSWORD"); key != "" {
		c.Warehouse.Password = key
	}
	if key := os.Getenv("VIGIA_LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("VIGIA_GEOCODE_API_KEY"); key != "" {
		c.Geocode.APIKey = key
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Warehouse.Addresses) == 0 {
		return fmt.Errorf("warehouse.addresses is required")
	}
	if c.Warehouse.Database == "" {
		return fmt.Errorf("warehouse.database is required")
	}
	switch c.LLM.Backend {
	case "gemini", "openai":
	default:
		return fmt.Errorf("llm.backend must be gemini or openai, got %q", c.LLM.Backend)
	}
	if c.Geocode.Enabled && c.Geocode.APIKey == "" {
		return fmt.Errorf("geocode.api_key is required when geocoding is enabled")
	}
	for name, n := range c.Notifiers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("notifier requester name must not be empty")
		}
		if n.URL == "" {
			return fmt.Errorf("notifiers.%s.url is required", name)
		}
	}
	return nil
}
