package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion        string
	ConnectionsTable string
	SourceIndexName  string // GSI1 - connections by source document
	TargetIndexName  string // GSI2 - connections by target document
	EventBusName     string
	EventSource      string
	DynamoDBEndpoint string
	MetricsNamespace string

	// Document store
	DatabaseURL     string
	DatabaseMaxConn int

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Connection discovery
	DiscoveryThreshold float64
	DiscoveryLimit     int

	// Feature flags
	EnableMetrics  bool
	EnableTracing  bool
	EnableCORS     bool
	AllowedOrigins string
}

// LoadConfig loads configuration from environment variables. Outside
// production a .env file in the working directory is read first; variables
// already set in the environment win.
func LoadConfig() (*Config, error) {
	if getEnv("ENVIRONMENT", "development") != "production" {
		_ = godotenv.Load()
	}

	cfg := &Config{
		ServerAddress:    getEnv("SERVER_ADDRESS", ":8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		ConnectionsTable: getEnv("CONNECTIONS_TABLE", "docgraph-connections"),
		SourceIndexName:  getEnv("SOURCE_INDEX_NAME", "GSI1"),
		TargetIndexName:  getEnv("TARGET_INDEX_NAME", "GSI2"),
		EventBusName:     getEnv("EVENT_BUS_NAME", "docgraph-events"),
		EventSource:      getEnv("EVENT_SOURCE", "docgraph.connections"),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "DocGraph"),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabaseMaxConn: getEnvInt("DATABASE_MAX_CONNS", 10),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "docgraph"),

		DiscoveryThreshold: getEnvFloat("DISCOVERY_THRESHOLD", 0.75),
		DiscoveryLimit:     getEnvInt("DISCOVERY_LIMIT", 10),

		// Logging and features
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		EnableMetrics:  getEnvBool("ENABLE_METRICS", false),
		EnableTracing:  getEnvBool("ENABLE_TRACING", false),
		EnableCORS:     getEnvBool("ENABLE_CORS", true),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
	}

	if cfg.AWSLambdaRuntime() {
		cfg.IsLambda = true
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.DiscoveryThreshold < 0 || c.DiscoveryThreshold > 1 {
		return fmt.Errorf("DISCOVERY_THRESHOLD must be between 0 and 1, got %v", c.DiscoveryThreshold)
	}
	if c.DiscoveryLimit < 1 || c.DiscoveryLimit > 100 {
		return fmt.Errorf("DISCOVERY_LIMIT must be between 1 and 100, got %d", c.DiscoveryLimit)
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		if c.ConnectionsTable == "" {
			return fmt.Errorf("CONNECTIONS_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// AWSLambdaRuntime reports whether the process runs inside Lambda
func (c *Config) AWSLambdaRuntime() bool {
	return c.LambdaFunctionName != ""
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
