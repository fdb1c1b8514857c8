// Package config loads the backend configuration from defaults, an optional
// YAML file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvConfigFile names the variable consulted when no config path is given.
const EnvConfigFile = "CONFIG_FILE"

// DefaultCORSOrigin is allowed when no origin is configured.
const DefaultCORSOrigin = "http://localhost:3000"

// Config is the immutable configuration record. Keys match the environment
// variable names lowercased; YAML files use the same keys.
type Config struct {
	Port    int    `koanf:"port" json:"port" validate:"min=1,max=65535"`
	NodeEnv string `koanf:"node_env" json:"nodeEnv" validate:"required"`
	Version string `koanf:"version" json:"version" validate:"required"`

	CORSOrigins string `koanf:"cors_origins" json:"corsOrigins"`

	RateLimitWindowMS    int    `koanf:"rate_limit_window_ms" json:"rateLimitWindowMs" validate:"min=1"`
	RateLimitMaxRequests int    `koanf:"rate_limit_max_requests" json:"rateLimitMaxRequests" validate:"min=1"`
	RateLimitTrustProxy  bool   `koanf:"rate_limit_trust_proxy" json:"rateLimitTrustProxy"`
	RateLimitRedisURL    string `koanf:"rate_limit_redis_url" json:"rateLimitRedisUrl,omitempty" validate:"omitempty,url"`

	SorobanRPCURL            string `koanf:"soroban_rpc_url" json:"sorobanRpcUrl" validate:"required,url"`
	SorobanNetworkPassphrase string `koanf:"soroban_network_passphrase" json:"sorobanNetworkPassphrase" validate:"required"`
	SorobanContractID        string `koanf:"soroban_contract_id" json:"sorobanContractId,omitempty"`

	LogLevel  string `koanf:"log_level" json:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat string `koanf:"log_format" json:"logFormat" validate:"oneof=json text"`

	RequestTimeoutMS  int   `koanf:"request_timeout_ms" json:"requestTimeoutMs" validate:"min=0"`
	BodyLimitBytes    int64 `koanf:"body_limit_bytes" json:"bodyLimitBytes" validate:"min=1"`
	ShutdownTimeoutMS int   `koanf:"shutdown_timeout_ms" json:"shutdownTimeoutMs" validate:"min=0"`

	MetricsEnabled bool `koanf:"metrics_enabled" json:"metricsEnabled"`
	TracingEnabled bool `koanf:"tracing_enabled" json:"tracingEnabled"`
}

var defaults = map[string]any{
	"port":                       4000,
	"node_env":                   "development",
	"version":                    "0.1.0",
	"cors_origins":               DefaultCORSOrigin,
	"rate_limit_window_ms":       60000,
	"rate_limit_max_requests":    100,
	"rate_limit_trust_proxy":     false,
	"rate_limit_redis_url":       "",
	"soroban_rpc_url":            "https://soroban-testnet.stellar.org",
	"soroban_network_passphrase": "Test SDF Network ; September 2015",
	"soroban_contract_id":        "",
	"log_level":                  "info",
	"log_format":                 "json",
	"request_timeout_ms":         30000,
	"body_limit_bytes":           102400,
	"shutdown_timeout_ms":        10000,
	"metrics_enabled":            true,
	"tracing_enabled":            false,
}

// Load resolves the configuration. path names an optional YAML file; when
// empty, CONFIG_FILE is consulted. Environment variables override the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps a known environment variable onto its config key. Unknown
// variables map to "" and are skipped.
func envKey(name string) string {
	key := strings.ToLower(name)
	if _, ok := defaults[key]; !ok {
		return ""
	}
	return key
}

// Validate checks the record against its field constraints.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Origins splits CORSOrigins into trimmed, non-empty entries. A blank list
// falls back to DefaultCORSOrigin.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{DefaultCORSOrigin}
	}
	return out
}

// IsProduction reports whether NODE_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// RateLimitWindow returns the rate-limit window width.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMS) * time.Millisecond
}

// RequestTimeout returns the per-request deadline. Zero disables it.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
