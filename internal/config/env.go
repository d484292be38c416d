package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env holds process settings read from the environment and an optional
// .env file in the working directory.
type Env struct {
	DataDir  string
	LogLevel string
	Addr     string
	// CORSOrigins empty allows any origin.
	CORSOrigins []string
}

func LoadEnv() Env {
	// a missing .env is fine
	godotenv.Load()

	return Env{
		DataDir:  getEnv("MAGBRAKE_DATA", ".magbrake"),
		LogLevel: getEnv("MAGBRAKE_LOG_LEVEL", "info"),
		Addr:     getEnv("MAGBRAKE_ADDR", ":8080"),

		CORSOrigins: splitList(os.Getenv("MAGBRAKE_CORS_ORIGINS")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
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
