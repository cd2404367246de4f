// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration loaded from the environment
type Config struct {
	Port          string
	DataDir       string
	ExportDir     string
	LogDir        string
	AutosaveDelay time.Duration
	DebugMode     bool
}

// Load reads configuration from the environment, with an optional .env file
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:          getEnv("PORT", "8080"),
		DataDir:       getEnvPath("DATA_DIR", "data"),
		ExportDir:     getEnvPath("EXPORT_DIR", "data/exports"),
		LogDir:        getEnvPath("LOG_DIR", "logs"),
		AutosaveDelay: getEnvDuration("AUTOSAVE_DELAY_MS", 2000),
		DebugMode:     getEnvBool("DEBUG_MODE", true),
	}

	if config.AutosaveDelay <= 0 {
		log.Println("warning: AUTOSAVE_DELAY_MS must be positive, using 2000ms")
		config.AutosaveDelay = 2 * time.Second
	}

	return config, nil
}

// getEnv returns an environment variable or the default when unset
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns a directory path from the environment, creating the
// directory when missing
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool returns a boolean environment variable
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

// getEnvDuration returns a millisecond-valued environment variable as a
// time.Duration
func getEnvDuration(key string, defaultMillis int) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultMillis) * time.Millisecond
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return time.Duration(defaultMillis) * time.Millisecond
	}
	return time.Duration(parsed) * time.Millisecond
}
