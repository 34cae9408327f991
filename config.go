package livetree

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config contains engine configuration. Zero values fall back to the
// defaults from DefaultConfig; functional options applied after
// WithConfig override individual fields.
type Config struct {
	// MaxTemplatesPerComponent caps the prediction cache per component
	MaxTemplatesPerComponent int `yaml:"max_templates_per_component" validate:"gte=0,lte=1024"`

	// TemplateTTL is how long an unmatched cache entry survives
	TemplateTTL time.Duration `yaml:"template_ttl" validate:"gte=0"`

	// SessionTTL is how long an idle session survives before the
	// janitor reclaims it
	SessionTTL time.Duration `yaml:"session_ttl" validate:"gte=0"`

	// MaxMemoryMB bounds retained trees plus caches across all sessions
	MaxMemoryMB int `yaml:"max_memory_mb" validate:"gte=0"`

	// CleanupInterval is the janitor period
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"gte=0"`

	// MetricsEnabled toggles the counters; disabling makes the
	// collector a no-op but Metrics() still returns a zero snapshot
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// DefaultConfig returns the configuration used when no options are
// given.
func DefaultConfig() *Config {
	return &Config{
		MaxTemplatesPerComponent: 32,
		TemplateTTL:              30 * time.Second,
		SessionTTL:               24 * time.Hour,
		MaxMemoryMB:              100,
		CleanupInterval:          1 * time.Minute,
		MetricsEnabled:           true,
	}
}

// configFile mirrors Config for YAML decoding. Durations are carried
// as strings ("30s", "1h") and pointers distinguish absent fields from
// explicit zeros.
type configFile struct {
	MaxTemplatesPerComponent *int    `yaml:"max_templates_per_component"`
	TemplateTTL              *string `yaml:"template_ttl"`
	SessionTTL               *string `yaml:"session_ttl"`
	MaxMemoryMB              *int    `yaml:"max_memory_mb"`
	CleanupInterval          *string `yaml:"cleanup_interval"`
	MetricsEnabled           *bool   `yaml:"metrics_enabled"`
}

// LoadConfig reads a YAML configuration file, fills unset fields with
// defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config := DefaultConfig()
	if file.MaxTemplatesPerComponent != nil {
		config.MaxTemplatesPerComponent = *file.MaxTemplatesPerComponent
	}
	if file.MaxMemoryMB != nil {
		config.MaxMemoryMB = *file.MaxMemoryMB
	}
	if file.MetricsEnabled != nil {
		config.MetricsEnabled = *file.MetricsEnabled
	}
	durations := []struct {
		name  string
		raw   *string
		field *time.Duration
	}{
		{"template_ttl", file.TemplateTTL, &config.TemplateTTL},
		{"session_ttl", file.SessionTTL, &config.SessionTTL},
		{"cleanup_interval", file.CleanupInterval, &config.CleanupInterval},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", d.name, err)
		}
		*d.field = parsed
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// fillDefaults replaces zero values with defaults so partial configs
// and option combinations compose.
func (c *Config) fillDefaults() {
	defaults := DefaultConfig()
	if c.MaxTemplatesPerComponent == 0 {
		c.MaxTemplatesPerComponent = defaults.MaxTemplatesPerComponent
	}
	if c.TemplateTTL == 0 {
		c.TemplateTTL = defaults.TemplateTTL
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = defaults.SessionTTL
	}
	if c.MaxMemoryMB == 0 {
		c.MaxMemoryMB = defaults.MaxMemoryMB
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = defaults.CleanupInterval
	}
}
