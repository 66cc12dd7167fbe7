// Package config loads client settings from the environment and an optional .env file.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds settings for the detection client and the mock backend
type Config struct {
	APIURL            string
	AlertPollInterval time.Duration
	OutputDir         string
	MetricsAddr       string
	RequestTimeout    time.Duration
	MockBackendAddr   string

	// MockModelLoadDelay keeps the mock backend's model unloaded for a while after start
	MockModelLoadDelay time.Duration
}

// Load reads .env when present and then the process environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env
func FromEnv() *Config {
	return &Config{
		APIURL:            getEnv("DETECTION_API_URL", "http://localhost:5000"),
		AlertPollInterval: getEnvDuration("ALERT_POLL_INTERVAL", 30*time.Second),
		OutputDir:         getEnv("OUTPUT_DIR", "."),
		MetricsAddr:       getEnv("METRICS_ADDR", ""),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		MockBackendAddr:   getEnv("MOCK_BACKEND_ADDR", ":5000"),

		MockModelLoadDelay: getEnvDuration("MOCK_MODEL_LOAD_DELAY", 0),
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("WARNING: invalid %s=%q, using %v", key, v, defaultVal)
		return defaultVal
	}
	return d
}
