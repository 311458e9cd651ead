// Package config loads process configuration from a YAML file and the
// environment. The environment always wins, so a deployment can pin
// the token and organization without touching the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfleet/openfleet/pkg/telemetry"
)

// Config is the full process configuration.
type Config struct {
	// APIToken authenticates against the Machines API. It is read
	// from FLY_API_TOKEN and intentionally has no yaml tag so it can
	// never be committed alongside the rest of the configuration.
	APIToken string `yaml:"-" validate:"required"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `yaml:"base_url,omitempty"`

	OrgSlug string `yaml:"org_slug" validate:"required"`
	AppName string `yaml:"app_name,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Image   string `yaml:"image,omitempty"`

	Retry     RetryConfig      `yaml:"retry"`
	Wait      WaitConfig       `yaml:"wait"`
	Webhook   WebhookConfig    `yaml:"webhook"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// Duration wraps time.Duration so YAML accepts "250ms" style strings.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RetryConfig bounds the retry loop around individual API calls.
type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts" validate:"min=1,max=20"`
	BaseDelay   Duration `yaml:"base_delay" validate:"min=0"`
	MaxDelay    Duration `yaml:"max_delay" validate:"min=0"`
}

// WaitConfig bounds convergence waits on machine state.
type WaitConfig struct {
	InitialDelay Duration `yaml:"initial_delay" validate:"min=0"`
	Multiplier   float64  `yaml:"multiplier" validate:"min=1"`
	MaxDelay     Duration `yaml:"max_delay" validate:"min=0"`
	Deadline     Duration `yaml:"deadline" validate:"min=0"`
}

// WebhookConfig configures the secret intake listener.
type WebhookConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelay:   Duration(500 * time.Millisecond),
			MaxDelay:    Duration(10 * time.Second),
		},
		Wait: WaitConfig{
			InitialDelay: Duration(time.Second),
			Multiplier:   1.5,
			MaxDelay:     Duration(15 * time.Second),
			Deadline:     Duration(5 * time.Minute),
		},
		Webhook: WebhookConfig{
			Addr: "127.0.0.1:8787",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, then the YAML file at
// path (if path is non-empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration.
func (c *Config) applyEnv() {
	if v := os.Getenv("FLY_API_TOKEN"); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("FLY_API_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("FLY_ORG_SLUG"); v != "" {
		c.OrgSlug = v
	}
	if v := os.Getenv("FLY_APP_NAME"); v != "" {
		c.AppName = v
	}
	if v := os.Getenv("FLY_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("FLY_IMAGE"); v != "" {
		c.Image = v
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return nil
}
