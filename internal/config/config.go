package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"textboxer/internal/logger"
)

type Config struct {
	// Google Cloud Configuration
	Bucket                  string
	GoogleCloudProject      string
	GoogleServiceAccountKey string

	// Annotation Configuration
	RefreshOutputs bool

	// HTTP Server Configuration
	ServerPort     string
	ServerMode     string
	AllowedOrigins []string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		Bucket:                  getEnv("ANNOTATION_BUCKET", ""),
		GoogleCloudProject:      getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleServiceAccountKey: getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		RefreshOutputs:          getEnvBool("ANNOTATION_REFRESH", false),
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerMode:              getEnv("SERVER_MODE", "release"),
		AllowedOrigins:          splitList(getEnv("SERVER_ALLOWED_ORIGINS", "*")),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:           getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:               getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("ANNOTATION_BUCKET is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
