package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisAddr string

	JWTSecret   string
	CORSOrigins []string

	BlobBasePath string
	SignedURLTTL time.Duration

	FavoritesCap int
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		glog.Warningf(".env file not found, using process environment")
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		HTTPAddr:     envOr("HTTP_ADDR", ":8080"),
		PublicURL:    strings.TrimSuffix(os.Getenv("PUBLIC_URL"), "/"),
		DBHost:       envOr("DB_HOST", "localhost"),
		DBPort:       envOr("DB_PORT", "5432"),
		DBUser:       os.Getenv("DB_USER"),
		DBPassword:   os.Getenv("DB_PASSWORD"),
		DBName:       os.Getenv("DB_NAME"),
		DBSSLMode:    envOr("DB_SSLMODE", "disable"),
		RedisAddr:    envOr("REDIS_ADDR", "localhost:6379"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		CORSOrigins:  csvOr("CORS_ORIGINS", "http://localhost:3000"),
		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),
	}

	ttl, err := time.ParseDuration(envOr("SIGNED_URL_TTL", "60s"))
	if err != nil || ttl <= 0 {
		return Config{}, errors.Errorf("invalid SIGNED_URL_TTL %q", os.Getenv("SIGNED_URL_TTL"))
	}
	cfg.SignedURLTTL = ttl

	favCap, err := strconv.Atoi(envOr("FAVORITES_CAP", "300"))
	if err != nil || favCap < 1 {
		return Config{}, errors.Errorf("invalid FAVORITES_CAP %q", os.Getenv("FAVORITES_CAP"))
	}
	cfg.FavoritesCap = favCap

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
