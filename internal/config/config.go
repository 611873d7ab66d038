package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr       string
	MySQLDSN       string
	RedisAddr      string
	QueueGroup     string
	ConsumerName   string
	RebuildWorkers int
}

// FromEnv builds the configuration from environment overrides with local
// defaults.
func FromEnv() *Config {
	return &Config{
		HTTPAddr:       envOr("HTTP_ADDR", ":8081"),
		MySQLDSN:       envOr("MYSQL_DSN", "root:root@tcp(localhost:3306)/voucherrush?parseTime=true"),
		RedisAddr:      envOr("REDIS_ADDR", "localhost:6379"),
		QueueGroup:     envOr("QUEUE_GROUP", "g1"),
		ConsumerName:   envOr("CONSUMER_NAME", "c1"),
		RebuildWorkers: envIntOr("REBUILD_WORKERS", 10),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
