package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the server.
type Config struct {
	Addr           string
	DatabaseURL    string
	JWTSecret      string
	AllowedOrigins []string

	// Sliding-window rate limits, requests per window. Auth-prefixed
	// paths get the stricter auth limit.
	RateLimitWindow  time.Duration
	GeneralRateLimit int
	AuthRateLimit    int
}

// Load reads configuration from environment variables with sane defaults.
// A .env file is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:             strings.TrimSpace(os.Getenv("ADDR")),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AllowedOrigins:   splitOrigins(os.Getenv("ALLOWED_ORIGINS")),
		RateLimitWindow:  time.Minute,
		GeneralRateLimit: parseCount(os.Getenv("RATE_LIMIT_PER_MINUTE"), 100),
		AuthRateLimit:    parseCount(os.Getenv("AUTH_RATE_LIMIT_PER_MINUTE"), 10),
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskboard.db"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func parseCount(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}
