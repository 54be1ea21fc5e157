package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment `mapstructure:"-"`

	// Server configuration
	ServerHost  string   `mapstructure:"server_host"`
	ServerPort  string   `mapstructure:"server_port"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Database configuration
	DBDriver   string `mapstructure:"db_driver"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBSSLMode  string `mapstructure:"db_ssl_mode"`
	SQLitePath string `mapstructure:"sqlite_path"`

	// Redis configuration. An empty URL disables caching and rate limiting.
	RedisURL      string `mapstructure:"redis_url"`
	RedisPassword string `mapstructure:"redis_password"`

	// JWT configuration
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	// Photo storage. An empty bucket disables photo uploads.
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3Region        string `mapstructure:"s3_region"`
	S3Endpoint      string `mapstructure:"s3_endpoint"`
	S3PublicBaseURL string `mapstructure:"s3_public_base_url"`
	S3UsePathStyle  bool   `mapstructure:"s3_use_path_style"`

	// Static S3 credentials. When either is empty the default AWS chain is used.
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`

	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// envBindings maps config keys to the environment variables they are read from
var envBindings = map[string]string{
	"server_host":           "SERVER_HOST",
	"server_port":           "SERVER_PORT",
	"cors_origins":          "CORS_ORIGINS",
	"db_driver":             "DB_DRIVER",
	"db_host":               "DB_HOST",
	"db_port":               "DB_PORT",
	"db_user":               "DB_USER",
	"db_password":           "DB_PASSWORD",
	"db_name":               "DB_NAME",
	"db_ssl_mode":           "DB_SSL_MODE",
	"sqlite_path":           "SQLITE_PATH",
	"redis_url":             "REDIS_URL",
	"redis_password":        "REDIS_PASSWORD",
	"jwt_secret":            "JWT_SECRET",
	"token_ttl":             "TOKEN_TTL",
	"s3_bucket":             "S3_BUCKET_NAME",
	"s3_region":             "AWS_REGION",
	"s3_endpoint":           "S3_ENDPOINT",
	"s3_public_base_url":    "S3_PUBLIC_BASE_URL",
	"s3_use_path_style":     "S3_USE_PATH_STYLE",
	"aws_access_key_id":     "AWS_ACCESS_KEY_ID",
	"aws_secret_access_key": "AWS_SECRET_ACCESS_KEY",
	"cache_ttl":             "CACHE_TTL",
	"rate_limit_per_minute": "RATE_LIMIT_PER_MINUTE",
	"log_level":             "LOG_LEVEL",
	"log_format":            "LOG_FORMAT",
}

// secretKeys are config keys that may be overridden by a Docker secret file of the same name
var secretKeys = []string{
	"db_user",
	"db_password",
	"redis_password",
	"jwt_secret",
	"aws_access_key_id",
	"aws_secret_access_key",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8080")
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "fitcheck")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("sqlite_path", "fitcheck.db")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("cache_ttl", 10*time.Minute)
	v.SetDefault("rate_limit_per_minute", 120)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// LoadConfig builds a Config from defaults, environment variables and Docker secrets
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// Secrets take precedence over plain environment variables
	for _, key := range secretKeys {
		if value := readSecret(key); value != "" {
			v.Set(key, value)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Environment = GetEnvironment()

	// Production logs are shipped as JSON unless explicitly overridden
	if cfg.Environment == Production && os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "json"
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// PostgresDSN returns the connection string for the configured PostgreSQL database
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// RedisEnabled reports whether a Redis URL was configured
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// PhotosEnabled reports whether an S3 bucket was configured
func (c *Config) PhotosEnabled() bool {
	return c.S3Bucket != ""
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	data, err := os.ReadFile(filepath.Join(secretsDir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
