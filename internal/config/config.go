package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// RosterFile is the CSV file backing the student store.
	RosterFile string

	// HTTP
	HTTPAddr        string
	AllowedOrigins  []string
	UploadDir       string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	Database DatabaseConfig
}

// DatabaseConfig selects and configures the archive database.
type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"

	// sqlite
	Path string

	// postgres
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string

	LogQueries bool
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host + " user=" + c.User + " password=" + c.Password + " dbname=" + c.Name + " port=" + c.Port + " sslmode=" + c.SSLMode
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := &Config{
		RosterFile:     getEnv("ROSTER_FILE", "students.csv"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "students.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "studentdb"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	var err error
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("config: SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.Database.LogQueries, err = strconv.ParseBool(getEnv("DB_LOG_QUERIES", "false")); err != nil {
		return nil, fmt.Errorf("config: DB_LOG_QUERIES: %w", err)
	}
	if err = cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RosterFile) == "" {
		return fmt.Errorf("config: ROSTER_FILE is required")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("config: DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.Database.User == "" {
			return fmt.Errorf("config: DB_USER is required for postgres")
		}
	default:
		return fmt.Errorf("config: DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
