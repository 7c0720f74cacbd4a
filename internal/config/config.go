package config

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingDBURL = errors.New("database URL is not configured (set DATABASE_URL or the DB_* variables)")

type Config struct {
	Env  string
	Port int

	DBURL string

	JWTSecret  string
	JWTTTLDays int

	AdminEmail    string
	AdminPassword string
	AdminUsername string

	UploadMaxBytes int64

	AllowedOrigins []string

	OTLPEndpoint string
}

// Load reads the process environment once. A .env file is honored when
// present so local runs match deployment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:            getEnv("APP_ENV", "dev"),
		Port:           getEnvInt("PORT", 8080),
		DBURL:          dbURL(),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTLDays:     getEnvInt("JWT_TTL_DAYS", 30),
		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminUsername:  getEnv("ADMIN_USERNAME", "admin"),
		UploadMaxBytes: getEnvInt64("UPLOAD_MAX_BYTES", 10<<20),
		AllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DBURL == "" {
		return Config{}, ErrMissingDBURL
	}

	return cfg, nil
}

func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLDays) * 24 * time.Hour
}

func dbURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := os.Getenv("DB_HOST")

	if host == "" {
		return ""
	}

	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "sheetlens")
	pass := getEnv("DB_PASSWORD", "sheetlens")
	name := getEnv("DB_NAME", "sheetlens")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err == nil {
			return num
		}
	}

	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.ParseInt(v, 10, 64)

		if err == nil {
			return num
		}
	}

	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
