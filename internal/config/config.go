package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv        string
	AppPort       int
	RunMigrations bool

	// Database settings (audit mirror only, spec.md 2)
	DatabaseURL                string
	DatabaseMaxConnections     int
	DatabaseMaxIdleConnections int
	DatabaseConnectionLifetime time.Duration

	// Catalog settings
	MPCPath    string
	VendorPath string
	UTSFDir    string

	// UTSF control plane settings
	StrictMode        bool
	CompressThreshold int

	// Dispatcher settings
	DispatcherWorkerCount int
	DispatcherBatchMin    int
	RequestDeadline       time.Duration

	// CORS settings
	CORSAllowedOrigins   string
	CORSAllowCredentials bool

	// Logging
	LogLevel  string
	LogFormat string

	// NATS settings
	NATSURL string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		AppPort:       getEnvAsInt("APP_PORT", 8080),
		RunMigrations: getEnvAsBool("RUN_MIGRATIONS", false),

		DatabaseURL:                getEnv("DATABASE_URL", ""),
		DatabaseMaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 25),
		DatabaseMaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		DatabaseConnectionLifetime: getEnvAsDuration("DATABASE_CONNECTION_LIFETIME", 5*time.Minute),

		MPCPath:    getEnv("MPC_PATH", "./data/mpc.json"),
		VendorPath: getEnv("VENDOR_CATALOG_PATH", "./data/vendors.json"),
		UTSFDir:    getEnv("UTSF_DIR", "./data/utsf"),

		StrictMode:        getEnvAsBool("UTSF_STRICT_MODE", true),
		CompressThreshold: getEnvAsInt("UTSF_COMPRESS_THRESHOLD", 3),

		DispatcherWorkerCount: getEnvAsInt("DISPATCHER_WORKER_COUNT", 8),
		DispatcherBatchMin:    getEnvAsInt("DISPATCHER_BATCH_MIN", 10),
		RequestDeadline:       getEnvAsDuration("REQUEST_DEADLINE", 10*time.Second),

		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		CORSAllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.MPCPath == "" {
		return fmt.Errorf("MPC_PATH is required")
	}
	if c.UTSFDir == "" {
		return fmt.Errorf("UTSF_DIR is required")
	}
	if c.DispatcherWorkerCount < 1 {
		return fmt.Errorf("DISPATCHER_WORKER_COUNT must be at least 1")
	}
	return nil
}

// Helper functions for reading environment variables.

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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
