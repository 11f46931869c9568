// Package config loads runtime configuration from the environment.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration for the trending service.
type Config struct {
	ListenAddr string
	SQLitePath string

	// DatabaseURL selects the PostgreSQL backend when set; otherwise the
	// service runs on SQLite at SQLitePath.
	DatabaseURL string

	// FeedsOPMLPath optionally replaces the built-in news source list
	// with feeds from an OPML file.
	FeedsOPMLPath string

	LLMAPIKey  string
	LLMModel   string
	LLMBaseURL string
}

// FromEnv creates a configuration instance sourced from environment
// variables, loading a .env file first when one is present.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:    getEnv("TRENDING_LISTEN_ADDR", ":8080"),
		SQLitePath:    getEnv("TRENDING_DB_PATH", "trending.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		FeedsOPMLPath: os.Getenv("TRENDING_FEEDS_OPML"),
		LLMAPIKey:     os.Getenv("TRENDING_LLM_API_KEY"),
		LLMModel:      getEnv("TRENDING_LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:    os.Getenv("TRENDING_LLM_BASE_URL"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
