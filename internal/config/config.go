// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is read once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     logrus.Level

	// StoreBackend is "postgres" or "memory".
	StoreBackend string
	DatabaseURL  string

	// EventsBackend is "redis" or "memory".
	EventsBackend string
	RedisAddr     string
	RedisDB       int
	HistoryQueue  string

	// TokenTTL of zero means tokens never expire.
	TokenTTL       time.Duration
	PrivateKeyPath string
	PublicKeyPath  string

	MaxRounds int

	HistorianBatchSize int
	HistorianFlush     time.Duration
}

// Load builds a Config from environment variables. Missing values take defaults;
// malformed values are an error.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	c := Config{
		Port:           env("PORT", "8080"),
		StoreBackend:   env("STORE_BACKEND", "postgres"),
		EventsBackend:  env("EVENTS_BACKEND", "redis"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		HistoryQueue:   env("HISTORIAN_QUEUE_NAME", "rockps_lobby_events"),
		PrivateKeyPath: getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:  getenv("JWT_PUBLIC_KEY_PATH"),
	}

	var err error
	if c.LogLevel, err = logrus.ParseLevel(env("LOG_LEVEL", "info")); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.ReadTimeout, err = time.ParseDuration(env("HTTP_READ_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("HTTP_READ_TIMEOUT: %w", err)
	}
	if c.WriteTimeout, err = time.ParseDuration(env("HTTP_WRITE_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("HTTP_WRITE_TIMEOUT: %w", err)
	}
	if c.RedisDB, err = strconv.Atoi(env("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	if c.MaxRounds, err = strconv.Atoi(env("MAX_ROUNDS", "99")); err != nil || c.MaxRounds < 1 {
		return Config{}, fmt.Errorf("MAX_ROUNDS must be a positive integer, got %q", getenv("MAX_ROUNDS"))
	}
	if c.HistorianBatchSize, err = strconv.Atoi(env("HISTORIAN_BATCH_SIZE", "20")); err != nil || c.HistorianBatchSize < 1 {
		return Config{}, fmt.Errorf("HISTORIAN_BATCH_SIZE must be a positive integer, got %q", getenv("HISTORIAN_BATCH_SIZE"))
	}
	flushMs, err := strconv.Atoi(env("HISTORIAN_FLUSH_MS", "500"))
	if err != nil || flushMs < 1 {
		return Config{}, fmt.Errorf("HISTORIAN_FLUSH_MS must be a positive integer, got %q", getenv("HISTORIAN_FLUSH_MS"))
	}
	c.HistorianFlush = time.Duration(flushMs) * time.Millisecond

	switch expire := getenv("TOKEN_EXPIRE_TIME"); expire {
	case "", "never", "0":
		c.TokenTTL = 0
	default:
		if c.TokenTTL, err = time.ParseDuration(expire); err != nil {
			return Config{}, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
		}
	}

	switch c.StoreBackend {
	case "memory":
	case "postgres":
		c.DatabaseURL = getenv("DATABASE_URL")
		if c.DatabaseURL == "" {
			c.DatabaseURL = fmt.Sprintf(
				"postgres://%s:%s@%s:%s/%s",
				getenv("POSTGRES_USER"),
				getenv("POSTGRES_PASSWORD"),
				env("PG_HOST", "localhost"),
				env("PG_PORT", "5432"),
				getenv("PG_DATABASE"),
			)
		}
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.StoreBackend)
	}

	switch c.EventsBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("EVENTS_BACKEND must be redis or memory, got %q", c.EventsBackend)
	}

	return c, nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}
