package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Auth        AuthConfig
	Webhook     WebhookConfig
	Monitor     MonitorConfig
	Remediation RemediationConfig
	Scanner     ScannerConfig
	Retention   RetentionConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret         string
	JWTExpiry         time.Duration
	AdminUsername     string
	AdminPasswordHash string
}

type WebhookConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	RequestTimeout    time.Duration
	ReconcileInterval time.Duration
}

type MonitorConfig struct {
	Enabled         bool
	Interval        time.Duration
	CPUThreshold    float64
	MemoryThreshold float64
}

type RemediationConfig struct {
	Driver  string // docker or noop
	Timeout time.Duration
}

type ScannerConfig struct {
	Binary  string
	Timeout time.Duration
}

type RetentionConfig struct {
	Interval       time.Duration
	SpanMaxAge     time.Duration
	DeliveryMaxAge time.Duration
}

type CORSConfig struct {
	AllowedOrigins string
}

func Load() (*Config, error) {
	jwtExpiry, err := envDuration("DRYDOCK_JWT_EXPIRY", "24h")
	if err != nil {
		return nil, err
	}

	maxAttempts, err := envInt("DRYDOCK_WEBHOOK_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	backoffBase, err := envDuration("DRYDOCK_WEBHOOK_BACKOFF_BASE", "30s")
	if err != nil {
		return nil, err
	}
	backoffCap, err := envDuration("DRYDOCK_WEBHOOK_BACKOFF_CAP", "1h")
	if err != nil {
		return nil, err
	}
	requestTimeout, err := envDuration("DRYDOCK_WEBHOOK_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	reconcileInterval, err := envDuration("DRYDOCK_WEBHOOK_RECONCILE_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}

	monitorEnabled, err := envBool("DRYDOCK_MONITOR_ENABLED", true)
	if err != nil {
		return nil, err
	}
	monitorInterval, err := envDuration("DRYDOCK_MONITOR_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	cpuThreshold, err := envFloat("DRYDOCK_MONITOR_CPU_THRESHOLD", 90)
	if err != nil {
		return nil, err
	}
	memThreshold, err := envFloat("DRYDOCK_MONITOR_MEMORY_THRESHOLD", 90)
	if err != nil {
		return nil, err
	}

	remediationTimeout, err := envDuration("DRYDOCK_REMEDIATION_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	scannerTimeout, err := envDuration("DRYDOCK_SCANNER_TIMEOUT", "120s")
	if err != nil {
		return nil, err
	}

	retentionInterval, err := envDuration("DRYDOCK_RETENTION_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	spanMaxAge, err := envDuration("DRYDOCK_RETENTION_SPAN_MAX_AGE", "168h")
	if err != nil {
		return nil, err
	}
	deliveryMaxAge, err := envDuration("DRYDOCK_RETENTION_DELIVERY_MAX_AGE", "720h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: envOrDefault("DRYDOCK_HOST", "0.0.0.0"),
			Port: envOrDefault("DRYDOCK_PORT", "8080"),
		},
		DB: DBConfig{
			Host:     envOrDefault("DRYDOCK_DB_HOST", "localhost"),
			Port:     envOrDefault("DRYDOCK_DB_PORT", "5432"),
			Name:     envOrDefault("DRYDOCK_DB_NAME", "drydock"),
			User:     envOrDefault("DRYDOCK_DB_USER", "drydock"),
			Password: envOrDefault("DRYDOCK_DB_PASSWORD", "drydock"),
			SSLMode:  envOrDefault("DRYDOCK_DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:         envOrDefault("DRYDOCK_JWT_SECRET", "change-me-in-production"),
			JWTExpiry:         jwtExpiry,
			AdminUsername:     envOrDefault("DRYDOCK_ADMIN_USERNAME", "admin"),
			AdminPasswordHash: envOrDefault("DRYDOCK_ADMIN_PASSWORD_HASH", ""),
		},
		Webhook: WebhookConfig{
			MaxAttempts:       maxAttempts,
			BackoffBase:       backoffBase,
			BackoffCap:        backoffCap,
			RequestTimeout:    requestTimeout,
			ReconcileInterval: reconcileInterval,
		},
		Monitor: MonitorConfig{
			Enabled:         monitorEnabled,
			Interval:        monitorInterval,
			CPUThreshold:    cpuThreshold,
			MemoryThreshold: memThreshold,
		},
		Remediation: RemediationConfig{
			Driver:  envOrDefault("DRYDOCK_REMEDIATION_DRIVER", "docker"),
			Timeout: remediationTimeout,
		},
		Scanner: ScannerConfig{
			Binary:  envOrDefault("DRYDOCK_SCANNER_BINARY", "grype"),
			Timeout: scannerTimeout,
		},
		Retention: RetentionConfig{
			Interval:       retentionInterval,
			SpanMaxAge:     spanMaxAge,
			DeliveryMaxAge: deliveryMaxAge,
		},
		CORS: CORSConfig{
			AllowedOrigins: envOrDefault("DRYDOCK_CORS_ORIGINS", "http://localhost:3000"),
		},
	}

	if cfg.Webhook.MaxAttempts < 1 {
		return nil, fmt.Errorf("DRYDOCK_WEBHOOK_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
