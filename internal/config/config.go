// Package config loads application configuration from config files and
// environment variables via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/regintake/internal/database"
	"github.com/jonesrussell/regintake/internal/intake"
	"github.com/jonesrussell/regintake/internal/logger"
)

// Default server timeouts.
const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// defaultUserAgent identifies the service to publishing hosts.
const defaultUserAgent = "regintake/1.0 (+https://github.com/jonesrussell/regintake)"

// defaultCronSchedule drives periodic intake runs in serve mode.
const defaultCronSchedule = "@every 30m"

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// MinioConfig holds object storage settings for raw snapshots.
type MinioConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	Bucket        string        `mapstructure:"bucket"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// IntakeConfig holds the feed allowlist and run settings.
type IntakeConfig struct {
	UserAgent        string        `mapstructure:"user_agent"`
	CronSchedule     string        `mapstructure:"cron_schedule"`
	AllowedDomains   []string      `mapstructure:"allowed_domains"`
	StripQueryParams []string      `mapstructure:"strip_query_params"`
	Feeds            []intake.Feed `mapstructure:"feeds"`
}

// Config is the root configuration.
type Config struct {
	App      AppConfig       `mapstructure:"app"`
	Logger   logger.Config   `mapstructure:"logger"`
	Server   ServerConfig    `mapstructure:"server"`
	Database database.Config `mapstructure:"database"`
	Minio    MinioConfig     `mapstructure:"minio"`
	Intake   IntakeConfig    `mapstructure:"intake"`
}

// Load builds the configuration from viper's current state (config file,
// environment bindings, and defaults set by the command layer).
func Load() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Intake.AllowedDomains) == 0 {
		return nil, fmt.Errorf("intake.allowed_domains must not be empty")
	}

	return &cfg, nil
}

// setDefaults sets production-safe default configuration values.
func setDefaults() {
	viper.SetDefault("app", map[string]any{
		"name":        "regintake",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	viper.SetDefault("server", map[string]any{
		"address":       ":8080",
		"read_timeout":  defaultReadTimeout.String(),
		"write_timeout": defaultWriteTimeout.String(),
		"idle_timeout":  defaultIdleTimeout.String(),
	})

	viper.SetDefault("database", map[string]any{
		"host":    "127.0.0.1",
		"port":    "5432",
		"user":    "regintake",
		"dbname":  "regintake",
		"sslmode": "disable",
	})

	viper.SetDefault("minio", map[string]any{
		"endpoint":       "127.0.0.1:9000",
		"use_ssl":        false,
		"bucket":         "regintake-snapshots",
		"presign_expiry": "1h",
	})

	viper.SetDefault("intake", map[string]any{
		"user_agent":         defaultUserAgent,
		"cron_schedule":      defaultCronSchedule,
		"strip_query_params": []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"},
	})
}

// BindEnv maps environment variables onto config keys. Called once by the
// command layer before Load.
func BindEnv() error {
	bindings := map[string][]string{
		"app.environment":    {"APP_ENV"},
		"app.debug":          {"APP_DEBUG"},
		"logger.level":       {"LOG_LEVEL"},
		"logger.encoding":    {"LOG_FORMAT"},
		"server.address":     {"SERVER_ADDRESS"},
		"database.host":      {"DATABASE_HOST"},
		"database.port":      {"DATABASE_PORT"},
		"database.user":      {"DATABASE_USER"},
		"database.password":  {"DATABASE_PASSWORD"},
		"database.dbname":    {"DATABASE_NAME"},
		"database.sslmode":   {"DATABASE_SSLMODE"},
		"minio.endpoint":     {"MINIO_ENDPOINT"},
		"minio.access_key":   {"MINIO_ACCESS_KEY", "MINIO_ROOT_USER"},
		"minio.secret_key":   {"MINIO_SECRET_KEY", "MINIO_ROOT_PASSWORD"},
		"minio.bucket":       {"MINIO_BUCKET"},
		"intake.user_agent":  {"INTAKE_USER_AGENT"},
	}

	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := viper.BindEnv(args...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	return nil
}
