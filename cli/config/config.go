package config

import (
	"fmt"
	"time"

	"github.com/justapithecus/hostside/filter"
)

// Config represents a hostside.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Resolvers ResolversConfig `yaml:"resolvers"`
	Filters   FiltersConfig   `yaml:"filters"`
	Collector CollectorConfig `yaml:"collector"`
	Report    ReportConfig    `yaml:"report"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ResolversConfig configures the scheme registrations.
type ResolversConfig struct {
	TempDir string            `yaml:"temp_dir"`
	GS      ObjectStoreConfig `yaml:"gs"`
	S3      ObjectStoreConfig `yaml:"s3"`
	HTTP    HTTPConfig        `yaml:"http"`
	HTTPS   HTTPConfig        `yaml:"https"`
}

// ObjectStoreConfig configures a bucket-backed resolver.
// Mirror, when set, serves buckets from subdirectories of a local path
// instead of the network.
type ObjectStoreConfig struct {
	Enabled     *bool  `yaml:"enabled,omitempty"`
	Endpoint    string `yaml:"endpoint"`
	Region      string `yaml:"region"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	Mirror      string `yaml:"mirror"`
}

// HTTPConfig configures an HTTP resolver registration.
type HTTPConfig struct {
	Enabled *bool             `yaml:"enabled,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// FiltersConfig holds include/exclude defaults for the filter command.
type FiltersConfig struct {
	Mode    string   `yaml:"mode"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// CollectorConfig holds defaults for the pull command.
type CollectorConfig struct {
	Backend     string   `yaml:"backend"`
	Path        string   `yaml:"path"`
	Region      string   `yaml:"region"`
	Endpoint    string   `yaml:"endpoint"`
	S3PathStyle bool     `yaml:"s3_path_style"`
	Patterns    []string `yaml:"patterns"`
	Output      string   `yaml:"output"`
}

// ReportConfig holds defaults for the pull report dataset.
type ReportConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// NotifyConfig holds notification adapter defaults.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// IsEnabled reports whether an optional registration is switched on.
// Unset falls back to def.
func IsEnabled(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Validate checks values that can be rejected without touching the network.
func (c *Config) Validate() error {
	if _, err := filter.ParseMode(c.Filters.Mode); err != nil {
		return fmt.Errorf("filters.mode: %w", err)
	}
	for _, s := range []struct {
		field   string
		backend string
	}{
		{"collector.backend", c.Collector.Backend},
		{"report.backend", c.Report.Backend},
	} {
		switch s.backend {
		case "", "fs", "s3":
		default:
			return fmt.Errorf("%s: unknown backend %q (must be fs or s3)", s.field, s.backend)
		}
	}
	switch c.Notify.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("notify.type: unknown adapter %q (must be webhook or redis)", c.Notify.Type)
	}
	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		return fmt.Errorf("notify.retries: must be >= 0, got %d", *c.Notify.Retries)
	}
	return nil
}
