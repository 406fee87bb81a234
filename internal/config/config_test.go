package config

import (
	"os"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout %v, got %v", defaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Gateway.BaseURL != defaultGatewayBaseURL {
		t.Errorf("expected default gateway URL %q, got %q", defaultGatewayBaseURL, cfg.Gateway.BaseURL)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("expected scheduler enabled by default")
	}
	if cfg.Scheduler.CheckInterval != defaultCheckInterval {
		t.Errorf("expected default check interval %v, got %v", defaultCheckInterval, cfg.Scheduler.CheckInterval)
	}
	if cfg.Defaults.AccountHourlyLimit != defaultHourlyLimit {
		t.Errorf("expected default hourly limit %d, got %d", defaultHourlyLimit, cfg.Defaults.AccountHourlyLimit)
	}
	if cfg.Defaults.AccountFailureThreshold != defaultFailureThreshold {
		t.Errorf("expected default failure threshold %d, got %d", defaultFailureThreshold, cfg.Defaults.AccountFailureThreshold)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"SERVER_PORT":                      "9090",
		"SERVER_READ_TIMEOUT_SECONDS":      "30",
		"LOG_LEVEL":                        "debug",
		"LOG_FORMAT":                       "text",
		"GATEWAY_BASE_URL":                 "https://gateway.example.com",
		"SCHEDULER_ENABLED":                "false",
		"SCHEDULER_CHECK_INTERVAL_SECONDS": "30",
		"ACCOUNT_HOURLY_LIMIT":             "25",
		"ACCOUNT_FAILURE_THRESHOLD":        "5",
		"MIN_RANDOM_DELAY":                 "1",
		"MAX_RANDOM_DELAY":                 "2",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected overridden port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout 30s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.Logging.Level)
	}
	if cfg.Gateway.BaseURL != "https://gateway.example.com" {
		t.Errorf("unexpected gateway URL %q", cfg.Gateway.BaseURL)
	}
	if cfg.Scheduler.Enabled {
		t.Error("expected scheduler disabled")
	}
	if cfg.Scheduler.CheckInterval != 30*time.Second {
		t.Errorf("expected check interval 30s, got %v", cfg.Scheduler.CheckInterval)
	}
	if cfg.Defaults.AccountHourlyLimit != 25 {
		t.Errorf("expected hourly limit 25, got %d", cfg.Defaults.AccountHourlyLimit)
	}
	if cfg.Defaults.MinRandomDelaySeconds != 1 || cfg.Defaults.MaxRandomDelaySeconds != 2 {
		t.Errorf("unexpected delay range [%d,%d]", cfg.Defaults.MinRandomDelaySeconds, cfg.Defaults.MaxRandomDelaySeconds)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad log level", key: "LOG_LEVEL", value: "verbose"},
		{name: "bad log format", key: "LOG_FORMAT", value: "xml"},
		{name: "negative timeout", key: "SERVER_READ_TIMEOUT_SECONDS", value: "-1"},
		{name: "non-numeric limit", key: "ACCOUNT_HOURLY_LIMIT", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadRejectsInvertedDelayRange(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MIN_RANDOM_DELAY", "10")
	t.Setenv("MAX_RANDOM_DELAY", "5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for inverted delay range")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS", "SERVER_WRITE_TIMEOUT_SECONDS", "SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"LOG_LEVEL", "LOG_FORMAT",
		"DATABASE_URL", "TOKEN_ENCRYPTION_KEY",
		"GATEWAY_BASE_URL", "GATEWAY_API_KEY",
		"SCHEDULER_ENABLED", "SCHEDULER_CHECK_INTERVAL_SECONDS",
		"ACCOUNT_HOURLY_LIMIT", "ACCOUNT_FAILURE_THRESHOLD",
		"MIN_RANDOM_DELAY", "MAX_RANDOM_DELAY",
		"ACCOUNT_STRATEGY", "TEMPLATE_STRATEGY",
	}
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			t.Setenv(key, v)
		}
		os.Unsetenv(key)
	}
}
