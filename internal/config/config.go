// Package config loads server settings from the environment.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OrderCacheTTLSeconds int
	PostTimeoutSeconds   int
}

func Load() Config {
	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "*"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		OrderCacheTTLSeconds: getEnvInt("ORDER_CACHE_TTL_SECONDS", 300),
		PostTimeoutSeconds:   getEnvInt("POST_TIMEOUT_SECONDS", 5),
	}
	// A zero cache TTL means no expiry, but a zero post timeout would
	// expire every transaction before it starts.
	if cfg.PostTimeoutSeconds < 1 {
		cfg.PostTimeoutSeconds = 5
	}
	return cfg
}

func (c Config) Address() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
