package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	AppEnv      string
	BaseURL     string
	// ShortURLBase is prefixed to "/<code>" to build public short URLs.
	ShortURLBase string

	CodeLength      int
	CodeMaxAttempts int
	StoreTimeout    time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	FrontendURL        string
	AllowedOrigin      string

	LogLevel string
	LogFile  string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		BaseURL:            baseURL,
		ShortURLBase:       strings.TrimRight(getEnv("SHORT_URL_BASE", baseURL), "/"),
		CodeLength:         getEnvInt("CODE_LENGTH", 6),
		CodeMaxAttempts:    getEnvInt("CODE_MAX_ATTEMPTS", 10),
		StoreTimeout:       getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:8080"), "/"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "*"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
	}
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(getEnv(key, "")))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(getEnv(key, "")))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
