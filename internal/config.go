package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     uint16
	BaseURL  string

	Collaborators CollaboratorConfig
	Intake        IntakeConfig
	Storage       StorageConfig
	CORS          CORSConfig
}

// CollaboratorConfig holds the base URLs of the services the workflow
// calls: the interpreter, the catalog, the geocoder, the identity
// service, and the order backend.
type CollaboratorConfig struct {
	InterpreterURL string
	CatalogURL     string
	GeocoderURL    string
	IdentityURL    string
	BackendURL     string
}

// IntakeConfig tunes the workflow itself.
type IntakeConfig struct {
	// SearchDebounce is the pause after the last product-name
	// keystroke before a catalog search fires.
	SearchDebounce time.Duration

	// MetricsNamespace prefixes every Prometheus metric.
	MetricsNamespace string
}

type StorageConfig struct {
	LocalPath string
	LocalURL  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func NewConfig() (*Config, error) {
	// Try .env in the working directory, then walk up to find it.
	if err := godotenv.Load(); err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 3000),
		BaseURL:  getEnv("BASE_URL", "http://localhost:3000"),
		Collaborators: CollaboratorConfig{
			InterpreterURL: getEnv("INTERPRETER_URL", "http://localhost:8081"),
			CatalogURL:     getEnv("CATALOG_URL", "http://localhost:8082"),
			GeocoderURL:    getEnv("GEOCODER_URL", "http://localhost:8083"),
			IdentityURL:    getEnv("IDENTITY_URL", "http://localhost:8084"),
			BackendURL:     getEnv("BACKEND_URL", "http://localhost:8085"),
		},
		Intake: IntakeConfig{
			SearchDebounce:   getEnvDuration("SEARCH_DEBOUNCE", 325*time.Millisecond),
			MetricsNamespace: getEnv("METRICS_NAMESPACE", "registroventas"),
		},
		Storage: StorageConfig{
			LocalPath: getEnv("LOCAL_STORAGE_PATH", "./uploads"),
			LocalURL:  getEnv("LOCAL_STORAGE_URL", "/uploads"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGIN", "*")},
		},
	}

	if cfg.Env != "dev" && cfg.Env != "prod" {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Env == "prod" && cfg.Collaborators.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL must be set in production environment")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
		slog.Default().Warn("Invalid integer value. Using default",
			slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Default().Warn("Invalid duration value. Using default",
			slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}
