// Package config reads service settings from the environment, loading a .env file first
// when one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port          string
	StoreBackend  string
	SchemaVersion string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration

	NatsURL       string
	UploadDir     string
	SessionSecret string
	SweepSchedule string
	CORSOrigins   []string
}

// Load reads the .env file if it exists and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		StoreBackend:  strings.ToLower(getenv("STORE_BACKEND", BackendMemory)),
		SchemaVersion: getenv("SCHEMA_VERSION", "4.0"),
		DBHost:        getenv("DB_HOST", "localhost"),
		DBPort:        getenv("DB_PORT", "5432"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        getenv("DB_NAME", "screedflow"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		GeminiAPIKey:  os.Getenv("API_KEY"),
		GeminiModel:   getenv("GEMINI_MODEL", "gemini-3-flash-preview"),
		NatsURL:       os.Getenv("NATS_URL"),
		UploadDir:     getenv("UPLOAD_DIR", "./uploads"),
		SessionSecret: getenv("SESSION_SECRET", "screedflow-dev-secret"),
		SweepSchedule: getenv("SWEEP_SCHEDULE", "30 6 * * *"),
		CORSOrigins:   splitList(getenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	redisDB, err := strconv.Atoi(getenv("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	cfg.AITimeout, err = time.ParseDuration(getenv("AI_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("AI_TIMEOUT: %w", err)
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendPostgres, BackendRedis:
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.StoreBackend)
	}
	return cfg, nil
}

// PostgresDSN is the key/value connection string shared by lib/pq and the gorm driver.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
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
