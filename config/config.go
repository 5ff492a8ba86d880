package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const defaultJWTSecret = "foodgram-dev-secret"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort  string   `toml:"server_port"`
	ServerHost  string   `toml:"server_host"`
	GinMode     string   `toml:"gin_mode"`
	CORSOrigins []string `toml:"cors_origins"`

	// Database configuration
	DBDriver    string `toml:"db_driver"`
	DBHost      string `toml:"db_host"`
	DBPort      string `toml:"db_port"`
	DBUser      string `toml:"db_user"`
	DBPassword  string `toml:"db_password"`
	DBName      string `toml:"db_name"`
	DBSSLMode   string `toml:"db_ssl_mode"`
	DBPath      string `toml:"db_path"`
	AutoMigrate bool   `toml:"auto_migrate"`

	// Redis configuration, empty host and url disable redis
	RedisURL      string `toml:"redis_url"`
	RedisHost     string `toml:"redis_host"`
	RedisPort     string `toml:"redis_port"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	// JWT configuration
	JWTSecret     string `toml:"jwt_secret"`
	JWTTTLMinutes int    `toml:"jwt_ttl_minutes"`

	// Media configuration
	MediaStorage string `toml:"media_storage"`
	MediaDir     string `toml:"media_dir"`
	MediaURL     string `toml:"media_url"`
	S3BucketName string `toml:"s3_bucket_name"`
	AWSRegion    string `toml:"aws_region"`
	S3Endpoint   string `toml:"s3_endpoint"`

	// Recipes a single user may create per hour
	RecipeCreateLimit int `toml:"recipe_create_limit"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// LoadConfig builds the configuration from defaults, an optional TOML file,
// environment variables and docker secrets, in that order
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	loadEnvConfig(cfg)

	switch env {
	case CI:
		loadCIConfig(cfg)
	case Production:
		loadSecrets(cfg)
	case Development, Test:
		// secrets are optional outside production
		loadSecrets(cfg)
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	if err := ValidateConfig(cfg, env); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ServerPort:        "8080",
		ServerHost:        "0.0.0.0",
		GinMode:           "debug",
		CORSOrigins:       []string{"http://localhost:3000"},
		DBDriver:          "postgres",
		DBHost:            "localhost",
		DBPort:            "5432",
		DBUser:            "postgres",
		DBPassword:        "postgres",
		DBName:            "foodgram",
		DBSSLMode:         "disable",
		DBPath:            "foodgram.db",
		AutoMigrate:       true,
		RedisPort:         "6379",
		JWTSecret:         defaultJWTSecret,
		JWTTTLMinutes:     24 * 60,
		MediaStorage:      "local",
		MediaDir:          "media",
		MediaURL:          "/media",
		AWSRegion:         "us-east-1",
		RecipeCreateLimit: 30,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// loadEnvConfig overrides values that are present in the environment
func loadEnvConfig(cfg *Config) {
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.ServerHost = getEnv("SERVER_HOST", cfg.ServerHost)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.CORSOrigins = getEnvAsSlice("CORS_ORIGINS", cfg.CORSOrigins)

	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBSSLMode = getEnv("DB_SSL_MODE", cfg.DBSSLMode)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", cfg.AutoMigrate)

	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvAsInt("REDIS_DB", cfg.RedisDB)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTTTLMinutes = getEnvAsInt("JWT_TTL_MINUTES", cfg.JWTTTLMinutes)

	cfg.MediaStorage = getEnv("MEDIA_STORAGE", cfg.MediaStorage)
	cfg.MediaDir = getEnv("MEDIA_DIR", cfg.MediaDir)
	cfg.MediaURL = getEnv("MEDIA_URL", cfg.MediaURL)
	cfg.S3BucketName = getEnv("S3_BUCKET_NAME", cfg.S3BucketName)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)

	cfg.RecipeCreateLimit = getEnvAsInt("RECIPE_CREATE_LIMIT", cfg.RecipeCreateLimit)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
}

// loadCIConfig reads the GitHub Actions secrets exposed as TEST_* variables
func loadCIConfig(cfg *Config) {
	cfg.DBPassword = getEnv("TEST_DB_PASSWORD", cfg.DBPassword)
	cfg.JWTSecret = getEnv("TEST_JWT_SECRET", cfg.JWTSecret)
	cfg.RedisPassword = getEnv("TEST_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisURL = getEnv("TEST_REDIS_URL", cfg.RedisURL)
}

// loadSecrets applies docker secrets on top of the environment
func loadSecrets(cfg *Config) {
	if v := readSecret("db_user"); v != "" {
		cfg.DBUser = v
	}
	if v := readSecret("db_password"); v != "" {
		cfg.DBPassword = v
	}
	if v := readSecret("jwt_secret"); v != "" {
		cfg.JWTSecret = v
	}
	if v := readSecret("redis_password"); v != "" {
		cfg.RedisPassword = v
	}
	if v := readSecret("redis_url"); v != "" {
		cfg.RedisURL = v
	}
}

// RedisEnabled reports whether a redis server was configured
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
