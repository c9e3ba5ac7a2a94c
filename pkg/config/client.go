package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ClientConfig holds everything needed to stand up an API client stack.
type ClientConfig struct {
	Host    string        `mapstructure:"server_host" validate:"required,url"`
	Debug   bool          `mapstructure:"debug"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MockDir string        `mapstructure:"mock_dir"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	// MetricsAddr serves prometheus metrics when set, e.g. ":9102".
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" validate:"gte=0"`
	Burst int     `mapstructure:"burst" validate:"gte=0"`
}

type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures" validate:"required_if=Enabled true"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

type AuthConfig struct {
	RefreshPath string `mapstructure:"refresh_path" validate:"required"`
	LoginPath   string `mapstructure:"login_path"`
	LogoutPath  string `mapstructure:"logout_path"`
	RedisAddr   string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	RedisKey    string `mapstructure:"redis_key"`
}

type TracingConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// ServerHost and DebugMode make ClientConfig usable as a request builder configuration.
func (cc *ClientConfig) ServerHost() string { return cc.Host }
func (cc *ClientConfig) DebugMode() bool    { return cc.Debug }

var clientDefaults = map[string]any{
	"client.timeout":                      "30s",
	"client.breaker.consecutive_failures": 5,
	"client.breaker.open_timeout":         "30s",
	"client.auth.refresh_path":            "/auth/refresh",
	"client.auth.login_path":              "/auth/login",
	"client.auth.logout_path":             "/auth/logout",
	"client.auth.redis_key":               "netlayer:credentials",
	"client.tracing.service_name":         "netlayer",
}

// ClientDefaults returns the defaults for the "client" section, ready for WithDefaults.
func ClientDefaults() map[string]any {
	out := make(map[string]any, len(clientDefaults))
	for k, v := range clientDefaults {
		out[k] = v
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadClientConfig unmarshals the "client" section and validates it.
func (c *Config) LoadClientConfig() (*ClientConfig, error) {
	for k, v := range clientDefaults {
		c.SetDefault(k, v)
	}

	// Unmarshal walks every key so env and flag overrides of nested keys apply.
	var root struct {
		Client ClientConfig `mapstructure:"client"`
	}
	if err := c.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("config: decode client section: %w", err)
	}
	if err := validate.Struct(&root.Client); err != nil {
		return nil, fmt.Errorf("config: invalid client section: %w", err)
	}
	return &root.Client, nil
}
