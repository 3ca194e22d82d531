// Package config handles environment variable loading for the coordinator:
// the database connection string, the admin password, the orchestrator
// namespace, and the log level filter.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every value the coordinator reads from its environment.
type Config struct {
	// DatabaseURL is the Postgres connection string for the state store.
	DatabaseURL string

	// AdminPassword is compared against the password half of HTTP Basic
	// auth on every non-public REST endpoint.
	AdminPassword string

	// Namespace is the Kubernetes namespace the orchestrator manages.
	Namespace string

	// LogLevel filters slog output: debug, info, warn, or error.
	LogLevel string

	// HTTPPort is the port the REST facade listens on.
	HTTPPort int

	// OTELEndpoint is the OTLP/gRPC collector address for tracing. Empty
	// disables tracing export.
	OTELEndpoint string
}

// Load reads configuration from the environment, loading a .env file
// first if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	adminPassword := os.Getenv("FALCONERI_ADMIN_PASSWORD")
	if adminPassword == "" {
		return nil, fmt.Errorf("FALCONERI_ADMIN_PASSWORD is required")
	}

	namespace := os.Getenv("FALCONERI_NAMESPACE")
	if namespace == "" {
		namespace = "default"
	}

	logLevel := os.Getenv("FALCONERI_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	port := 8089
	if portStr := os.Getenv("FALCONERI_PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid FALCONERI_PORT: %w", err)
		}
		port = p
	}

	return &Config{
		DatabaseURL:   databaseURL,
		AdminPassword: adminPassword,
		Namespace:     namespace,
		LogLevel:      logLevel,
		HTTPPort:      port,
		OTELEndpoint:  os.Getenv("FALCONERI_OTEL_ENDPOINT"),
	}, nil
}
