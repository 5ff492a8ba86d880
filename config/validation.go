package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	supportedDrivers  = map[string]bool{"postgres": true, "mysql": true, "sqlite": true}
	supportedStorages = map[string]bool{"local": true, "s3": true}
	supportedLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// ValidateConfig checks if the configuration meets the requirements for the given environment
func ValidateConfig(cfg *Config, env Environment) error {
	var errors []string
	add := func(field, message string) {
		errors = append(errors, ValidationError{Field: field, Message: message}.Error())
	}

	if cfg.ServerPort == "" {
		add("SERVER_PORT", "is required")
	}
	if !supportedDrivers[cfg.DBDriver] {
		add("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}
	if cfg.DBDriver == "sqlite" && cfg.DBPath == "" {
		add("DB_PATH", "is required for the sqlite driver")
	}
	if cfg.DBDriver != "sqlite" && cfg.DBHost == "" {
		add("DB_HOST", "is required")
	}
	if cfg.JWTSecret == "" {
		add("JWT_SECRET", "is required")
	}
	if cfg.JWTTTLMinutes <= 0 {
		add("JWT_TTL_MINUTES", "must be positive")
	}
	if !supportedStorages[cfg.MediaStorage] {
		add("MEDIA_STORAGE", fmt.Sprintf("unsupported storage %q", cfg.MediaStorage))
	}
	if cfg.MediaStorage == "s3" && cfg.S3BucketName == "" {
		add("S3_BUCKET_NAME", "is required for s3 media storage")
	}
	if cfg.RecipeCreateLimit <= 0 {
		add("RECIPE_CREATE_LIMIT", "must be positive")
	}
	if !supportedLevels[cfg.LogLevel] {
		add("LOG_LEVEL", fmt.Sprintf("unsupported level %q", cfg.LogLevel))
	}

	if env == Production {
		// In production, sensitive values must come from Docker secrets
		if cfg.JWTSecret == defaultJWTSecret {
			add("jwt_secret", "secret is required in production")
		}
		if cfg.DBDriver != "sqlite" && (cfg.DBPassword == "" || cfg.DBPassword == "postgres") {
			add("db_password", "secret is required in production")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
