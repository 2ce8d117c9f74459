// Package config loads Async Agent client configuration from a YAML file
// with environment variable overrides. Precedence, lowest to highest:
// built-in defaults, file values, environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	asyncagent "github.com/ugmurthy/asyncAgent"
	"github.com/ugmurthy/asyncAgent/retry"
	"github.com/ugmurthy/asyncAgent/telemetry"
)

// Environment variables recognized by Load.
const (
	EnvEndpoint = "ASYNC_AGENT_ENDPOINT"
	EnvToken    = "ASYNC_AGENT_TOKEN"
	EnvAPIKey   = "ASYNC_AGENT_API_KEY"
	EnvTimeout  = "ASYNC_AGENT_TIMEOUT"
)

// Duration wraps time.Duration so YAML values can use Go duration strings
// such as "250ms" or "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config captures the client settings.
type Config struct {
	// Endpoint is the Async Agent API base URL.
	Endpoint string `yaml:"endpoint"`
	// Token is the bearer token. Mutually exclusive with APIKey; when both
	// are set the token wins.
	Token string `yaml:"token"`
	// APIKey is the X-API-Key credential.
	APIKey string `yaml:"apiKey"`
	// Timeout bounds each HTTP request.
	Timeout Duration `yaml:"timeout"`
	// Retry configures transient failure retries. Nil disables retries.
	Retry *RetryConfig `yaml:"retry"`
	// RateLimit configures client-side throttling. Nil disables it.
	RateLimit *RateLimitConfig `yaml:"rateLimit"`
	// ValidateInputs enables client-side schema validation of structured
	// run inputs.
	ValidateInputs bool `yaml:"validateInputs"`
}

// RetryConfig mirrors retry.Config in YAML-friendly form.
type RetryConfig struct {
	MaxAttempts       int      `yaml:"maxAttempts"`
	InitialBackoff    Duration `yaml:"initialBackoff"`
	MaxBackoff        Duration `yaml:"maxBackoff"`
	BackoffMultiplier float64  `yaml:"backoffMultiplier"`
	Jitter            float64  `yaml:"jitter"`
}

// RateLimitConfig configures the adaptive request limiter.
type RateLimitConfig struct {
	RPM    float64 `yaml:"rpm"`
	MaxRPM float64 `yaml:"maxRpm"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Endpoint: "http://127.0.0.1:8080",
		Timeout:  Duration(30 * time.Second),
	}
}

// Load reads the configuration file at path (skipped when path is empty or
// the file does not exist) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Missing file falls back to defaults plus environment.
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = Duration(d)
	}

	return cfg, nil
}

// Client builds an asyncagent.Client from the configuration, applying any
// extra options last so they can override configured behavior.
func (c Config) Client(extra ...asyncagent.Option) (*asyncagent.Client, error) {
	opts := []asyncagent.Option{
		asyncagent.WithLogger(telemetry.NewClueLogger()),
	}
	switch {
	case c.Token != "":
		opts = append(opts, asyncagent.WithBearerToken(c.Token))
	case c.APIKey != "":
		opts = append(opts, asyncagent.WithAPIKey(c.APIKey))
	}
	if c.Retry != nil {
		opts = append(opts, asyncagent.WithRetryConfig(retry.Config{
			MaxAttempts:       c.Retry.MaxAttempts,
			InitialBackoff:    c.Retry.InitialBackoff.Std(),
			MaxBackoff:        c.Retry.MaxBackoff.Std(),
			BackoffMultiplier: c.Retry.BackoffMultiplier,
			Jitter:            c.Retry.Jitter,
		}))
	}
	if c.RateLimit != nil {
		opts = append(opts, asyncagent.WithRateLimit(c.RateLimit.RPM, c.RateLimit.MaxRPM))
	}
	if c.ValidateInputs {
		opts = append(opts, asyncagent.WithSchemaValidation())
	}
	if c.Timeout > 0 {
		opts = append(opts, asyncagent.WithHTTPClient(newHTTPClient(c.Timeout.Std())))
	}
	opts = append(opts, extra...)
	return asyncagent.New(c.Endpoint, opts...)
}
