package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	AWS           AWSConfig           `yaml:"aws"`
	APNs          APNsConfig          `yaml:"apns"`
	Sweep         SweepConfig         `yaml:"sweep"`
	Notifications NotificationsConfig `yaml:"notifications"`
	CORS          CORSConfig          `yaml:"cors"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string `yaml:"url"` // Takes precedence over the discrete fields when set
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// AWSConfig holds the image bucket configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"` // Custom endpoint for S3-compatible storage
}

// APNsConfig holds push notification credentials.
// Push is disabled when KeyFile is empty.
type APNsConfig struct {
	KeyFile    string `yaml:"key_file"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
	Workers    int    `yaml:"workers"`
}

// SweepConfig controls the periodic expiry sweep
type SweepConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // Standard 5-field cron expression
}

// NotificationsConfig controls event notifications
type NotificationsConfig struct {
	// UTCOffset is the reference zone event times are compared in, e.g. "-07:00"
	UTCOffset string `yaml:"utc_offset"`
	Listen    bool   `yaml:"listen"`
}

// CORSConfig holds allowed origins
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds per-IP rate limiting for the trigger endpoints
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when a field is left unset
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable", MaxConns: 10},
		AWS:      AWSConfig{Region: "us-west-1"},
		APNs:     APNsConfig{Workers: 8},
		Sweep:    SweepConfig{Enabled: true, Schedule: "*/15 * * * *"},
		Notifications: NotificationsConfig{
			UTCOffset: "-07:00",
			Listen:    true,
		},
		CORS:      CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: RateLimitConfig{Enabled: true, Requests: 60, Window: time.Minute},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies environment overrides.
// A missing file is not an error; defaults and the environment are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() {
	c.Database.URL = envOr("DATABASE_URL", c.Database.URL)
	c.AWS.Region = envOr("AWS_REGION", c.AWS.Region)
	c.AWS.S3Bucket = envOr("S3_BUCKET", c.AWS.S3Bucket)
	c.AWS.AccessKey = envOr("AWS_ACCESS_KEY_ID", c.AWS.AccessKey)
	c.AWS.SecretKey = envOr("AWS_SECRET_ACCESS_KEY", c.AWS.SecretKey)
	c.AWS.Endpoint = envOr("S3_ENDPOINT", c.AWS.Endpoint)
	c.APNs.KeyFile = envOr("APNS_KEY_FILE", c.APNs.KeyFile)
	c.Log.Level = envOr("LOG_LEVEL", c.Log.Level)
	c.Server.Port = envInt("PORT", c.Server.Port)
}

// Normalize fills zero values with defaults so partial configs still work
func (c *Config) Normalize() {
	d := Default()
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = d.Database.MaxConns
	}
	if c.APNs.Workers <= 0 {
		c.APNs.Workers = d.APNs.Workers
	}
	if c.Sweep.Schedule == "" {
		c.Sweep.Schedule = d.Sweep.Schedule
	}
	if c.Notifications.UTCOffset == "" {
		c.Notifications.UTCOffset = d.Notifications.UTCOffset
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = d.CORS.AllowedOrigins
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = d.RateLimit.Requests
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = d.RateLimit.Window
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate checks values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.Sweep.Schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", c.Sweep.Schedule, err)
	}
	if _, err := c.Notifications.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the fixed zone described by UTCOffset
func (n *NotificationsConfig) Location() (*time.Location, error) {
	return ParseUTCOffset(n.UTCOffset)
}

// ParseUTCOffset converts "+hh:mm" / "-hh:mm" into a fixed time zone
func ParseUTCOffset(offset string) (*time.Location, error) {
	t, err := time.Parse("-07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("invalid utc offset %q: %w", offset, err)
	}
	_, secs := t.Zone()
	return time.FixedZone("UTC"+offset, secs), nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Address returns the HTTP listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
