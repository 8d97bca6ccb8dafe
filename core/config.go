package core

import (
	"fmt"
	"strings"
	"time"
)

type RateLimitConfig struct {
	Limit    int `koanf:"limit" mapstructure:"limit"`
	WindowMS int `koanf:"window_ms" mapstructure:"window_ms"`
}

// ObfuscationConfig drives the reversible param codec. Key is the codec key
// material; when a secret provider is configured it holds the sealed form
// instead of the plaintext key.
type ObfuscationConfig struct {
	Algorithm string   `koanf:"algorithm" mapstructure:"algorithm"`
	AllowList []string `koanf:"allow_list" mapstructure:"allow_list"`
	Key       string   `koanf:"key" mapstructure:"key"`
}

// ValidationConfig points the credential check at the host platform. Secret
// signs the validation request; with an endpoint, a secret, and an HTTP
// transport the session builds its own validator.
type ValidationConfig struct {
	Endpoint  string `koanf:"endpoint" mapstructure:"endpoint"`
	Secret    string `koanf:"secret" mapstructure:"secret"`
	TimeoutMS int    `koanf:"timeout_ms" mapstructure:"timeout_ms"`
}

type Config struct {
	AppID             string            `koanf:"app_id" mapstructure:"app_id"`
	ResponseTimeoutMS int               `koanf:"response_timeout_ms" mapstructure:"response_timeout_ms"`
	RateLimit         RateLimitConfig   `koanf:"rate_limit" mapstructure:"rate_limit"`
	Obfuscation       ObfuscationConfig `koanf:"obfuscation" mapstructure:"obfuscation"`
	Validation        ValidationConfig  `koanf:"validation" mapstructure:"validation"`
}

func DefaultConfig() Config {
	return Config{
		AppID:             "app",
		ResponseTimeoutMS: 10_000,
		RateLimit: RateLimitConfig{
			Limit:    100,
			WindowMS: 60_000,
		},
		Obfuscation: ObfuscationConfig{
			Algorithm: "xor-stream",
			AllowList: []string{"uid", "uname", "token"},
		},
		Validation: ValidationConfig{
			TimeoutMS: 5_000,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AppID) == "" {
		return fmt.Errorf("core: app_id is required")
	}
	if c.ResponseTimeoutMS <= 0 {
		return fmt.Errorf("core: response_timeout_ms must be positive")
	}
	if c.RateLimit.Limit < 0 || c.RateLimit.WindowMS < 0 {
		return fmt.Errorf("core: rate_limit values must not be negative")
	}
	return nil
}

// ResponseTimeout is the correlated-call deadline as a duration.
func (c Config) ResponseTimeout() time.Duration {
	if c.ResponseTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ResponseTimeoutMS) * time.Millisecond
}

// ValidationTimeout is the credential-validation round-trip deadline.
func (c Config) ValidationTimeout() time.Duration {
	if c.Validation.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Validation.TimeoutMS) * time.Millisecond
}
