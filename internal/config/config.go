package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"siachat-backend/pkg/zlog"
)

// Config holds application configuration values loaded from environment
// variables.
type Config struct {
	HTTPPort       string
	DatabaseURL    string
	AllowedOrigins []string
	LogLevel       string

	AdminJWTSecret  string
	TokenExpiration time.Duration

	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMTemperature float64
	LLMTopP        float64
	LLMMaxTokens   int64

	DemoBookingURL       string
	FallbackContactEmail string
	HistoryLimit         int
}

// LoadConfig loads configuration from environment variables. It looks for
// a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zlog.Info("no .env file loaded, using environment variables only")
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	apiKey := getEnv("LLM_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY environment variable is not set")
	}

	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseURL:    dbURL,
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		AdminJWTSecret:  getEnv("ADMIN_JWT_SECRET", "default-super-secret-key"),
		TokenExpiration: time.Hour * time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)),

		LLMAPIKey:      apiKey,
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		LLMModel:       getEnv("LLM_MODEL", "gemini-2.5-flash"),
		LLMTimeout:     time.Second * time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 30)),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMTopP:        getEnvFloat("LLM_TOP_P", 0.95),
		LLMMaxTokens:   int64(getEnvInt("LLM_MAX_TOKENS", 1024)),

		DemoBookingURL:       getEnv("DEMO_BOOKING_URL", "https://calendly.com/sia-demo/30min"),
		FallbackContactEmail: getEnv("FALLBACK_CONTACT_EMAIL", "hello@sia-assistant.com"),
		HistoryLimit:         getEnvInt("HISTORY_LIMIT", 10),
	}

	zlog.Info("configuration loaded",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("llm_model", cfg.LLMModel),
		zap.Duration("llm_timeout", cfg.LLMTimeout),
		zap.Int("history_limit", cfg.HistoryLimit),
	)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		zlog.Warn("invalid integer env value, using default",
			zap.String("key", key), zap.String("value", raw), zap.Int("default", fallback))
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		zlog.Warn("invalid float env value, using default",
			zap.String("key", key), zap.String("value", raw), zap.Float64("default", fallback))
		return fallback
	}
	return v
}
