// Package config loads Forge server configuration.
//
// Values are resolved with this precedence (highest first):
//  1. command-line flags
//  2. environment variables
//  3. the .env file (loaded with godotenv; never overrides a set variable)
//  4. defaults
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Auth      AuthConfig
	Share     ShareConfig
	Autosave  AutosaveConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Environment string
	DataPath    string // sqlite database, badger KV, search index and auth key live here
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string
	PublicURL      string // used to build links in invite emails
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// AuthConfig holds token lifetimes. The signing key is loaded from DataPath.
type AuthConfig struct {
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// ShareConfig holds page share token defaults.
type ShareConfig struct {
	DefaultTTL time.Duration
}

// AutosaveConfig holds autosave tracking settings.
type AutosaveConfig struct {
	// SessionTTL bounds how long per-session save sequences are remembered.
	SessionTTL time.Duration
}

// MailConfig holds SMTP settings. An empty Host disables delivery and
// invite emails are only logged.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether SMTP delivery is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

// RateLimitConfig holds limits for unauthenticated endpoints.
type RateLimitConfig struct {
	PublicPerMinute int
	PublicBurst     int
	AuthPerMinute   int
	AuthBurst       int
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from args and the environment.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("forge", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for the database, search index and keys")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	port := fs.String("port", "", "Server port (default: 8080)")
	publicURL := fs.String("public-url", "", "Public base URL of the web app")
	origins := fs.String("allowed-origins", "", "Comma-separated CORS origins")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	accessTTL := fs.String("access-token-duration", "", "Access token lifetime (default: 15m)")
	refreshTTL := fs.String("refresh-token-duration", "", "Refresh token lifetime (default: 720h)")
	shareTTL := fs.String("share-ttl", "", "Default share token lifetime (default: 168h)")

	smtpHost := fs.String("smtp-host", "", "SMTP host for invite emails")
	smtpPort := fs.String("smtp-port", "", "SMTP port (default: 587)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: value(*env, "ENV", "development"),
			DataPath:    value(*dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: value(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           value(*port, "SERVER_PORT", "8080"),
			PublicURL:      value(*publicURL, "PUBLIC_URL", "http://localhost:3000"),
			AllowedOrigins: splitList(value(*origins, "ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Mail: MailConfig{
			Host:     value(*smtpHost, "SMTP_HOST", ""),
			Port:     intValue(*smtpPort, "SMTP_PORT", 587),
			Username: value("", "SMTP_USERNAME", ""),
			Password: value("", "SMTP_PASSWORD", ""),
			From:     value("", "MAIL_FROM", "Forge <no-reply@forge.local>"),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute: intValue("", "PUBLIC_RATE_PER_MINUTE", 120),
			PublicBurst:     intValue("", "PUBLIC_RATE_BURST", 30),
			AuthPerMinute:   intValue("", "AUTH_RATE_PER_MINUTE", 20),
			AuthBurst:       intValue("", "AUTH_RATE_BURST", 10),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Auth.AccessTokenDuration, *accessTTL, "ACCESS_TOKEN_DURATION", "15m"},
		{&cfg.Auth.RefreshTokenDuration, *refreshTTL, "REFRESH_TOKEN_DURATION", "720h"},
		{&cfg.Share.DefaultTTL, *shareTTL, "SHARE_TTL", "168h"},
		{&cfg.Autosave.SessionTTL, "", "AUTOSAVE_SESSION_TTL", "24h"},
	}
	for _, d := range durations {
		raw := value(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.App.DataPath == "" {
		return errors.New("data path cannot be empty")
	}

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port: %q", c.Server.Port)
	}

	if c.Share.DefaultTTL <= 0 {
		return errors.New("share ttl must be positive")
	}
	return nil
}

// DatabasePath is the sqlite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.App.DataPath, "forge.db")
}

// KVPath is the badger directory.
func (c *Config) KVPath() string {
	return filepath.Join(c.App.DataPath, "kv")
}

func (c *Config) expandDataPath() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.App.DataPath, filepath.Join(home, "Forge", "data"))
	if err != nil {
		return err
	}
	c.App.DataPath = expanded
	return nil
}

// expandPath resolves "~/" and relative paths; empty input yields fallback.
func expandPath(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// value returns the flag value, else the environment variable, else fallback.
func value(flagValue, envKey, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}

func intValue(flagValue, envKey string, fallback int) int {
	raw := value(flagValue, envKey, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadEnvFile populates unset environment variables from a .env file.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return godotenv.Load(path)
}
