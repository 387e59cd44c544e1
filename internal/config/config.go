package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port           string
	Store          string
	PostgresDSN    string
	RedisAddr      string
	RedisPassword  string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MongoURI       string
	MongoDB        string
	SessionSecret  string
	SessionTTL     time.Duration
	// AdminUser is compared lower-cased against the login identifier.
	AdminUser         string
	AdminPassword     string
	AdminPasswordHash string
	CORSOrigins       []string
	LogLevel          string
	LogDev            bool
}

// Load reads .env (when present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getenv("PORT", "8080"),
		Store:             getenv("STORE", "postgres"),
		PostgresDSN:       getenv("POSTGRES_DSN", ""),
		RedisAddr:         getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:     getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey:    getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:    getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:       getenv("MINIO_BUCKET", "blog-uploads"),
		MinioUseSSL:       getenv("MINIO_USE_SSL", "false") == "true",
		MongoURI:          getenv("MONGO_URI", ""),
		MongoDB:           getenv("MONGO_DB", "blog"),
		SessionSecret:     getenv("SESSION_SECRET", ""),
		SessionTTL:        getduration("SESSION_TTL", 24*time.Hour),
		AdminUser:         strings.ToLower(strings.TrimSpace(getenv("ADMIN_USER", ""))),
		AdminPassword:     getenv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: getenv("ADMIN_PASSWORD_HASH", ""),
		CORSOrigins:       splitList(getenv("CORS_ORIGINS", "http://localhost:8080")),
		LogLevel:          getenv("LOG_LEVEL", ""),
		LogDev:            getenv("LOG_DEV", "") == "1",
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Store != "postgres" && c.Store != "memory" {
		errs = append(errs, errors.New("STORE must be postgres or memory"))
	}
	if c.Store == "postgres" && c.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.AdminUser != "" && c.AdminPassword == "" && c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_USER needs ADMIN_PASSWORD or ADMIN_PASSWORD_HASH"))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
