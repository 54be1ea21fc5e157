package config

import (
	"fmt"
	"strings"
)

const minProductionSecretLength = 32

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a configuration
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "\n")
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if cfg.ServerPort == "" {
		add("SERVER_PORT", "is required")
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DBHost == "" {
			add("DB_HOST", "is required for postgres")
		}
		if cfg.DBPort == "" {
			add("DB_PORT", "is required for postgres")
		}
		if cfg.DBUser == "" {
			add("DB_USER", "is required for postgres")
		}
		if cfg.DBName == "" {
			add("DB_NAME", "is required for postgres")
		}
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			add("SQLITE_PATH", "is required for sqlite")
		}
		if cfg.Environment == Production {
			add("DB_DRIVER", "sqlite is not supported in production")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.JWTSecret == "" {
		add("JWT_SECRET", "is required (env var or jwt_secret secret)")
	} else if cfg.Environment == Production && len(cfg.JWTSecret) < minProductionSecretLength {
		add("JWT_SECRET", fmt.Sprintf("must be at least %d characters in production", minProductionSecretLength))
	}

	if cfg.Environment == Production || cfg.Environment == CI {
		if cfg.DBDriver == DriverPostgres && cfg.DBPassword == "" {
			add("DB_PASSWORD", "is required (env var or db_password secret)")
		}
	}

	if cfg.TokenTTL <= 0 {
		add("TOKEN_TTL", "must be positive")
	}
	if cfg.CacheTTL <= 0 {
		add("CACHE_TTL", "must be positive")
	}
	if cfg.RateLimitPerMinute < 0 {
		add("RATE_LIMIT_PER_MINUTE", "must not be negative")
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		add("LOG_FORMAT", "must be text or json")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
