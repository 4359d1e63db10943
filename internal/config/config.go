package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Audit delivery policies. BestEffort submits entries synchronously and logs
// failures; Outbox queues entries durably and drains them in the background.
const (
	AuditDeliveryBestEffort = "best_effort"
	AuditDeliveryOutbox     = "outbox"
)

// Config holds all configuration for the GateKit server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Audit    AuditConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Port              int
	Env               string
	RequestsPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuditConfig struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	Delivery      string
	FlushInterval time.Duration
	BatchSize     int
	MaxAttempts   int
}

type SessionConfig struct {
	JWTSecret string
}

var validDeliveries = map[string]bool{
	AuditDeliveryBestEffort: true,
	AuditDeliveryOutbox:     true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:              envInt("GATEKIT_PORT", 8080),
			Env:               envString("GATEKIT_ENV", "development"),
			RequestsPerMinute: envInt("GATEKIT_REQUESTS_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Audit: AuditConfig{
			BaseURL:       os.Getenv("AUDIT_BASE_URL"),
			Token:         os.Getenv("AUDIT_TOKEN"),
			Timeout:       envDuration("AUDIT_TIMEOUT", 10*time.Second),
			Delivery:      envString("AUDIT_DELIVERY", AuditDeliveryBestEffort),
			FlushInterval: envDuration("AUDIT_FLUSH_INTERVAL", 5*time.Second),
			BatchSize:     envInt("AUDIT_BATCH_SIZE", 50),
			MaxAttempts:   envInt("AUDIT_MAX_ATTEMPTS", 10),
		},
		Session: SessionConfig{
			JWTSecret: os.Getenv("SESSION_JWT_SECRET"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Audit.BaseURL == "" {
		return fmt.Errorf("AUDIT_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Audit.BaseURL, "http://") && !strings.HasPrefix(c.Audit.BaseURL, "https://") {
		return fmt.Errorf("AUDIT_BASE_URL must start with http:// or https://, got %q", c.Audit.BaseURL)
	}
	if !validDeliveries[c.Audit.Delivery] {
		return fmt.Errorf("AUDIT_DELIVERY must be one of best_effort, outbox; got %q", c.Audit.Delivery)
	}
	if c.Audit.BatchSize <= 0 {
		return fmt.Errorf("AUDIT_BATCH_SIZE must be positive, got %d", c.Audit.BatchSize)
	}
	if c.Audit.MaxAttempts <= 0 {
		return fmt.Errorf("AUDIT_MAX_ATTEMPTS must be positive, got %d", c.Audit.MaxAttempts)
	}

	if c.Session.JWTSecret == "" {
		return fmt.Errorf("SESSION_JWT_SECRET is required")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
