// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret is the HMAC signing secret for organizer API tokens.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim on organizer tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the organizer access token lifetime (e.g. "12h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// QRBaseURL is the front-end base URL embedded in pushed QR payloads
	// (e.g. https://rollcall.example.com). Differs per deployment.
	QRBaseURL string `mapstructure:"QR_BASE_URL"`
	// QRTokenWindow is the rolling-token rotation window (e.g. "20s").
	QRTokenWindow string `mapstructure:"QR_TOKEN_WINDOW"`
	// CheckinLateAfter is how long after round start a check-in is marked LATE (e.g. "5m").
	CheckinLateAfter string `mapstructure:"CHECKIN_LATE_AFTER"`
	// KeepaliveInterval is the SSE ping cadence (e.g. "25s").
	KeepaliveInterval string `mapstructure:"KEEPALIVE_INTERVAL"`
	// SweepSchedule is the cron spec for round status maintenance (cmd/sweeper).
	SweepSchedule string `mapstructure:"SWEEP_SCHEDULE"`

	// Events (optional). When Kafka brokers are set, successful check-ins and
	// round transitions are emitted to Kafka.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AttendanceKafkaTopic is the Kafka topic for attendance events.
	AttendanceKafkaTopic string `mapstructure:"ATTENDANCE_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the event worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC endpoint for metrics; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	// LogLevel is debug, info, warn, error, or fatal.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or console.
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// LogOutput is stdout, stderr, or a file path.
	LogOutput string `mapstructure:"LOG_OUTPUT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "rollcall-api")
	v.SetDefault("JWT_ACCESS_TTL", "12h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("QR_BASE_URL", "http://localhost:3000")
	v.SetDefault("QR_TOKEN_WINDOW", "20s")
	v.SetDefault("CHECKIN_LATE_AFTER", "5m")
	v.SetDefault("KEEPALIVE_INTERVAL", "25s")
	v.SetDefault("SWEEP_SCHEDULE", "@every 1m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ATTENDANCE_KAFKA_TOPIC", "rollcall-attendance")
	v.SetDefault("KAFKA_GROUP_ID", "rollcall-event-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if w := cfg.TokenWindow(); w < time.Second || w > time.Minute {
		return nil, fmt.Errorf("config: QR_TOKEN_WINDOW must be between 1s and 1m, got %s", cfg.QRTokenWindow)
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// TokenWindow parses QRTokenWindow as a time.Duration. Returns 20s if unset or invalid.
func (c *Config) TokenWindow() time.Duration {
	d, err := time.ParseDuration(c.QRTokenWindow)
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}

// LateAfter parses CheckinLateAfter as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) LateAfter() time.Duration {
	d, err := time.ParseDuration(c.CheckinLateAfter)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Keepalive parses KeepaliveInterval as a time.Duration. Returns 25s if unset or invalid.
func (c *Config) Keepalive() time.Duration {
	d, err := time.ParseDuration(c.KeepaliveInterval)
	if err != nil || d <= 0 {
		return 25 * time.Second
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event emission is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
