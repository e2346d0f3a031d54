// Package config reads process settings from the environment, after loading
// a .env file when one is present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/votechain/internal/adapters/repository/postgres"
)

type Config struct {
	Postgres    postgres.Config
	HTTPAddr    string
	JWTSecret   string
	TokenTTL    time.Duration
	LockTimeout time.Duration
	MaxRetries  uint64
	LogLevel    string
}

// Load never fails on a missing .env; the environment alone is enough.
func Load(log logrus.FieldLogger) Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found")
	}

	return Config{
		Postgres: postgres.Config{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   os.Getenv("POSTGRES_DB"),
			SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
		},
		HTTPAddr:    getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenTTL:    getDuration(log, "TOKEN_TTL", 24*time.Hour),
		LockTimeout: getDuration(log, "LOCK_TIMEOUT", 2*time.Second),
		MaxRetries:  getUint(log, "CAST_MAX_RETRIES", 3),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(log logrus.FieldLogger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithField(key, v).Warn("invalid duration, using default")
		return fallback
	}
	return d
}

func getUint(log logrus.FieldLogger, key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		log.WithField(key, v).Warn("invalid number, using default")
		return fallback
	}
	return n
}
