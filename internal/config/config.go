package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr string
	// SessionIdleTimeout is how long a session with no subscribers
	// survives before the hub evicts it.
	SessionIdleTimeout time.Duration
	MaxPlayers         int
}

func Load() *Config {
	return &Config{
		Addr:               getEnv("ADDR", ":8080"),
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute),
		MaxPlayers:         getInt("SESSION_MAX_PLAYERS", 10),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
