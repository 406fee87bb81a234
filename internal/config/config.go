package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Vault     VaultConfig
	Gateway   GatewayConfig
	Scheduler SchedulerConfig
	Defaults  DefaultsConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig holds the PostgreSQL connection string.
type DatabaseConfig struct {
	URL string
}

// VaultConfig holds the base64 key used to seal account tokens at rest.
type VaultConfig struct {
	EncryptionKey string
}

// GatewayConfig holds the third-party platform gateway defaults. Both values
// can be overridden by the settings table at runtime.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
}

// SchedulerConfig controls the tick drivers.
type SchedulerConfig struct {
	Enabled       bool
	CheckInterval time.Duration
}

// DefaultsConfig carries tunables that the settings table may override.
type DefaultsConfig struct {
	AccountHourlyLimit      int
	AccountFailureThreshold int
	MinRandomDelaySeconds   int
	MaxRandomDelaySeconds   int
	AccountStrategy         string
	TemplateStrategy        string
}

const (
	defaultPort        = "8080"
	defaultReadTimeout = 10 * time.Second
	// Manual-trigger handlers run paced gateway calls, so responses can
	// legitimately take tens of seconds.
	defaultWriteTimeout    = 2 * time.Minute
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultGatewayBaseURL = "https://api.twitterapi.io"

	defaultCheckInterval = 1 * time.Minute

	defaultHourlyLimit      = 10
	defaultFailureThreshold = 3
	defaultMinRandomDelay   = 3
	defaultMaxRandomDelay   = 20
	defaultAccountStrategy  = "round_robin"
	defaultTemplateStrategy = "round_robin"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Vault: VaultConfig{
			EncryptionKey: os.Getenv("TOKEN_ENCRYPTION_KEY"),
		},
		Gateway: GatewayConfig{
			BaseURL: getEnv("GATEWAY_BASE_URL", defaultGatewayBaseURL),
			APIKey:  os.Getenv("GATEWAY_API_KEY"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getEnv("SCHEDULER_ENABLED", "true") != "false",
			CheckInterval: defaultCheckInterval,
		},
		Defaults: DefaultsConfig{
			AccountHourlyLimit:      defaultHourlyLimit,
			AccountFailureThreshold: defaultFailureThreshold,
			MinRandomDelaySeconds:   defaultMinRandomDelay,
			MaxRandomDelaySeconds:   defaultMaxRandomDelay,
			AccountStrategy:         defaultAccountStrategy,
			TemplateStrategy:        defaultTemplateStrategy,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("SCHEDULER_CHECK_INTERVAL_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCHEDULER_CHECK_INTERVAL_SECONDS: %w", err)
		}
		if d > 0 {
			cfg.Scheduler.CheckInterval = d
		}
	}

	for _, override := range []struct {
		env string
		dst *int
	}{
		{"ACCOUNT_HOURLY_LIMIT", &cfg.Defaults.AccountHourlyLimit},
		{"ACCOUNT_FAILURE_THRESHOLD", &cfg.Defaults.AccountFailureThreshold},
		{"MIN_RANDOM_DELAY", &cfg.Defaults.MinRandomDelaySeconds},
		{"MAX_RANDOM_DELAY", &cfg.Defaults.MaxRandomDelaySeconds},
	} {
		if v := os.Getenv(override.env); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return Config{}, fmt.Errorf("invalid %s: must be a non-negative integer", override.env)
			}
			*override.dst = n
		}
	}

	if cfg.Defaults.MaxRandomDelaySeconds < cfg.Defaults.MinRandomDelaySeconds {
		return Config{}, fmt.Errorf("MAX_RANDOM_DELAY must be >= MIN_RANDOM_DELAY")
	}

	if v := os.Getenv("ACCOUNT_STRATEGY"); v != "" {
		cfg.Defaults.AccountStrategy = v
	}
	if v := os.Getenv("TEMPLATE_STRATEGY"); v != "" {
		cfg.Defaults.TemplateStrategy = v
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
