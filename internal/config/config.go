package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reflow-dev/reflow/internal/errors"
)

// Duration wraps time.Duration so YAML values can use Go duration syntax
// ("16ms", "5m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigInvalid, errors.CategoryConfig, "invalid duration "+s)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reflow.yaml"

	// DefaultAddress is the default server listen address.
	DefaultAddress = ":8080"

	// DefaultOutput is the default static export output directory.
	DefaultOutput = "dist"
)

// Config is the complete reflow.yaml configuration.
type Config struct {
	// Name is the project name.
	Name string `yaml:"name,omitempty"`

	// Server configures the HTTP/WebSocket server.
	Server ServerConfig `yaml:"server,omitempty"`

	// Render configures the string renderer.
	Render RenderConfig `yaml:"render,omitempty"`

	// State configures the state store.
	State StateConfig `yaml:"state,omitempty"`

	// Export configures static export.
	Export ExportConfig `yaml:"export,omitempty"`
}

// ServerConfig holds server settings.
type ServerConfig struct {
	// Address is the listen address.
	Address string `yaml:"address,omitempty"`

	// SessionTTL is how long idle live sessions are retained.
	SessionTTL Duration `yaml:"session_ttl,omitempty"`

	// Metrics enables the Prometheus /metrics endpoint.
	Metrics bool `yaml:"metrics,omitempty"`
}

// RenderConfig holds string-renderer settings.
type RenderConfig struct {
	// MaxDepth bounds render recursion.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// AsyncTimeout bounds forced-async renders.
	AsyncTimeout Duration `yaml:"async_timeout,omitempty"`
}

// StateConfig holds state-store settings.
type StateConfig struct {
	// BatchDelay enables update batching when positive.
	BatchDelay Duration `yaml:"batch_delay,omitempty"`

	// BatchMaxQueue caps the batch queue before a forced flush.
	BatchMaxQueue int `yaml:"batch_max_queue,omitempty"`
}

// ExportConfig holds static-export settings.
type ExportConfig struct {
	// Output is the local output directory.
	Output string `yaml:"output,omitempty"`

	// Routes are the paths to export.
	Routes []string `yaml:"routes,omitempty"`

	// S3Bucket, when set, publishes the export to S3 instead of disk.
	S3Bucket string `yaml:"s3_bucket,omitempty"`

	// S3Prefix is the object key prefix within the bucket.
	S3Prefix string `yaml:"s3_prefix,omitempty"`

	// S3Region is the bucket's AWS region.
	S3Region string `yaml:"s3_region,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:    DefaultAddress,
			SessionTTL: Duration(5 * time.Minute),
			Metrics:    true,
		},
		Render: RenderConfig{
			MaxDepth:     100,
			AsyncTimeout: Duration(10 * time.Second),
		},
		Export: ExportConfig{
			Output: DefaultOutput,
			Routes: []string{"/"},
		},
	}
}

// Load reads reflow.yaml from dir, falling back to defaults when the file
// does not exist. Fields absent from the file keep their defaults.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, errors.CategoryConfig, "reading "+path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, errors.CategoryConfig, "parsing "+path).
			WithSuggestion("check " + ConfigFileName + " for YAML syntax errors")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Render.MaxDepth < 0 {
		return errors.New(errors.CodeConfigInvalid, errors.CategoryConfig, "render.max_depth must not be negative")
	}
	if c.State.BatchMaxQueue < 0 {
		return errors.New(errors.CodeConfigInvalid, errors.CategoryConfig, "state.batch_max_queue must not be negative")
	}
	if c.Export.S3Bucket != "" && c.Export.S3Region == "" {
		return errors.New(errors.CodeConfigInvalid, errors.CategoryConfig, "export.s3_region is required when export.s3_bucket is set").
			WithSuggestion("set export.s3_region to the bucket's AWS region, e.g. us-east-1")
	}
	return nil
}

// Save writes the configuration to dir/reflow.yaml.
func (c *Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfigInvalid, errors.CategoryConfig, "encoding config")
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0o644)
}
