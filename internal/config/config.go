package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Events   EventsConfig
	Tracing  TracingConfig
	Secrets  SecretsConfig
	CORS     CORSConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string
	LogLevel    string
}

// CacheConfig configures the optional Redis line item cache
type CacheConfig struct {
	RedisURL string
}

// EventsConfig configures the optional NATS publisher
type EventsConfig struct {
	NATSURL string
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	OTLPEndpoint string
}

// SecretsConfig points at the database password in Google Secret Manager
type SecretsConfig struct {
	GCPProjectID     string
	DBPasswordSecret string
}

// CORSConfig restricts the echoed origins. Empty means every origin is echoed.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "commerce"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Events: EventsConfig{
			NATSURL: getEnv("NATS_URL", ""),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		Secrets: SecretsConfig{
			GCPProjectID:     getEnv("GCP_PROJECT_ID", ""),
			DBPasswordSecret: getEnv("DB_PASSWORD_SECRET", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		},
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid SERVER_PORT %d", config.Server.Port)
	}
	if config.Secrets.DBPasswordSecret != "" && config.Secrets.GCPProjectID == "" {
		return nil, fmt.Errorf("DB_PASSWORD_SECRET requires GCP_PROJECT_ID")
	}

	return config, nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesSecretManager reports whether the database password comes from Secret Manager
func (c *Config) UsesSecretManager() bool {
	return c.Secrets.DBPasswordSecret != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
