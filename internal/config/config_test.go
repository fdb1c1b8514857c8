package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every known key so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		name := strings.ToUpper(key)
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv(EnvConfigFile, "")
	os.Unsetenv(EnvConfigFile)
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Port != 4000 {
			t.Errorf("Port = %d, want 4000", cfg.Port)
		}
		if cfg.NodeEnv != "development" {
			t.Errorf("NodeEnv = %q, want development", cfg.NodeEnv)
		}
		if cfg.Version != "0.1.0" {
			t.Errorf("Version = %q, want 0.1.0", cfg.Version)
		}
		if cfg.RateLimitWindow() != time.Minute {
			t.Errorf("RateLimitWindow() = %v, want 1m", cfg.RateLimitWindow())
		}
		if cfg.RateLimitMaxRequests != 100 {
			t.Errorf("RateLimitMaxRequests = %d, want 100", cfg.RateLimitMaxRequests)
		}
		if cfg.SorobanRPCURL != "https://soroban-testnet.stellar.org" {
			t.Errorf("SorobanRPCURL = %q", cfg.SorobanRPCURL)
		}
		if cfg.SorobanNetworkPassphrase != "Test SDF Network ; September 2015" {
			t.Errorf("SorobanNetworkPassphrase = %q", cfg.SorobanNetworkPassphrase)
		}
		if cfg.SorobanContractID != "" {
			t.Errorf("SorobanContractID = %q, want empty", cfg.SorobanContractID)
		}
		if cfg.BodyLimitBytes != 102400 {
			t.Errorf("BodyLimitBytes = %d, want 102400", cfg.BodyLimitBytes)
		}
		if !cfg.MetricsEnabled || cfg.TracingEnabled {
			t.Errorf("MetricsEnabled = %v, TracingEnabled = %v", cfg.MetricsEnabled, cfg.TracingEnabled)
		}
		if cfg.IsProduction() {
			t.Error("IsProduction() = true for development")
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9000")
		t.Setenv("NODE_ENV", "production")
		t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
		t.Setenv("RATE_LIMIT_TRUST_PROXY", "true")
		t.Setenv("SOROBAN_CONTRACT_ID", "CAAAA")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Port != 9000 {
			t.Errorf("Port = %d, want 9000", cfg.Port)
		}
		if !cfg.IsProduction() {
			t.Error("IsProduction() = false, want true")
		}
		if cfg.RateLimitMaxRequests != 5 {
			t.Errorf("RateLimitMaxRequests = %d, want 5", cfg.RateLimitMaxRequests)
		}
		if !cfg.RateLimitTrustProxy {
			t.Error("RateLimitTrustProxy = false, want true")
		}
		if cfg.SorobanContractID != "CAAAA" {
			t.Errorf("SorobanContractID = %q", cfg.SorobanContractID)
		}
	})

	t.Run("file then env", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "port: 5000\nversion: 2.0.0\ncors_origins: https://a.example, https://b.example\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("PORT", "6000")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Port != 6000 {
			t.Errorf("Port = %d, want env value 6000", cfg.Port)
		}
		if cfg.Version != "2.0.0" {
			t.Errorf("Version = %q, want file value 2.0.0", cfg.Version)
		}
		origins := cfg.Origins()
		if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
			t.Errorf("Origins() = %v", origins)
		}
	})

	t.Run("config file from env", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("version: 3.1.4\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv(EnvConfigFile, path)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Version != "3.1.4" {
			t.Errorf("Version = %q, want 3.1.4", cfg.Version)
		}
	})

	t.Run("blank cors origins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CORS_ORIGINS", "")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		origins := cfg.Origins()
		if len(origins) != 1 || origins[0] != DefaultCORSOrigin {
			t.Errorf("Origins() = %v, want [%s]", origins, DefaultCORSOrigin)
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error for missing config file")
		}
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"rpc url not a url", "SOROBAN_RPC_URL", "not a url"},
		{"port out of range", "PORT", "70000"},
		{"port not a number", "PORT", "abc"},
		{"zero window", "RATE_LIMIT_WINDOW_MS", "0"},
		{"zero max requests", "RATE_LIMIT_MAX_REQUESTS", "0"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"redis url not a url", "RATE_LIMIT_REDIS_URL", "::::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(""); err == nil {
				t.Fatalf("Load() with %s=%q succeeded, want error", tt.key, tt.value)
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "http://localhost:3000", []string{"http://localhost:3000"}},
		{"trimmed", " https://a.example ,https://b.example", []string{"https://a.example", "https://b.example"}},
		{"empty entries dropped", "https://a.example,,", []string{"https://a.example"}},
		{"empty", "", []string{DefaultCORSOrigin}},
		{"separators only", " , ,", []string{DefaultCORSOrigin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{CORSOrigins: tt.input}
			got := cfg.Origins()
			if len(got) != len(tt.want) {
				t.Fatalf("Origins() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Origins()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
