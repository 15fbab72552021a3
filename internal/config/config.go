package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	HorizonsAPIURL  string
	HorizonsRetries int
	HorizonsTimeout time.Duration
	DatabaseURL     string
	Neo4jURI        string
	Neo4jUser       string
	Neo4jPassword   string
	WorkerCount     int
	// DefaultCenter is the Horizons body id that positions are relative to
	// when a command does not name one.
	DefaultCenter int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		HorizonsAPIURL:  getEnv("HORIZONS_API_URL", "https://ssd.jpl.nasa.gov/api/horizons.api"),
		HorizonsRetries: getEnvInt("HORIZONS_RETRIES", 10),
		HorizonsTimeout: time.Duration(getEnvInt("HORIZONS_TIMEOUT_SECONDS", 60)) * time.Second,
		DatabaseURL:     getEnv("DATABASE_URL", "postgres://localhost:5432/horizons?sslmode=disable"),
		Neo4jURI:        getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:       getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:   getEnv("NEO4J_PASSWORD", "password"),
		WorkerCount:     getEnvInt("WORKER_COUNT", 8),
		DefaultCenter:   getEnvInt("DEFAULT_CENTER", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-numeric setting")
		return fallback
	}
	return n
}
