package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port string
	// Store selects the document backend: "postgres" or "memory".
	Store              string
	DatabaseURL        string
	JWTSecret          string
	LogLevel           string
	CascadeConcurrency int
	AllowedOrigins     []string
}

// Load reads a .env file when present, then the process environment.
// The bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	foundEnv := godotenv.Load() == nil

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Store:          strings.ToLower(getEnv("DOCUMENT_STORE", StorePostgres)),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, foundEnv, fmt.Errorf("DOCUMENT_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL()
	}

	concurrency, err := strconv.Atoi(getEnv("CASCADE_CONCURRENCY", "8"))
	if err != nil || concurrency < 1 {
		return nil, foundEnv, fmt.Errorf("CASCADE_CONCURRENCY must be a positive integer, got %q", os.Getenv("CASCADE_CONCURRENCY"))
	}
	cfg.CascadeConcurrency = concurrency

	if cfg.JWTSecret == "" {
		return nil, foundEnv, errors.New("JWT_SECRET environment variable not set")
	}
	return cfg, foundEnv, nil
}

// buildDatabaseURL assembles a postgres URL from the discrete connection variables.
func buildDatabaseURL() string {
	dbUser := strings.TrimSpace(os.Getenv("user"))
	dbPass := strings.TrimSpace(os.Getenv("password"))
	dbHost := strings.TrimSpace(os.Getenv("host"))
	dbPort := strings.TrimSpace(os.Getenv("port"))
	dbName := strings.TrimSpace(os.Getenv("dbname"))
	sslMode := getEnv("DB_SSLMODE", "require")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", dbUser, dbPass, dbHost, dbPort, dbName, sslMode)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
