// Package config loads server settings from the environment, with an optional
// .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string

	// JWTSecret signs session tokens. Required outside local development.
	JWTSecret string
	TokenTTL  time.Duration

	// IdleTimeout evicts games with no inbound commands.
	IdleTimeout time.Duration
	// AIDelay paces computer moves so humans can follow along.
	AIDelay time.Duration
	// SweepInterval is how often the store janitor runs.
	SweepInterval time.Duration

	// DatabaseURL enables finished-game persistence when set.
	DatabaseURL string
	// RedisAddr enables the statistics recorder when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel logrus.Level
}

// Load reads the environment, after loading .env if one exists. A missing
// .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          getEnv("RACHEL_ADDR", ":8080"),
		JWTSecret:     getEnv("RACHEL_JWT_SECRET", "dev-secret-change-me"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("RACHEL_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout, err = getDuration("RACHEL_IDLE_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.AIDelay, err = getDuration("RACHEL_AI_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("RACHEL_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}

	level := getEnv("RACHEL_LOG_LEVEL", "info")
	cfg.LogLevel, err = logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("config: RACHEL_LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
