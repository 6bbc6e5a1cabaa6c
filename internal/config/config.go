// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	LogLevel        string
	ShutdownTimeout time.Duration

	MySQLDSN         string
	ArchiveWorkers   int
	ArchiveQueueSize int

	RedisAddr       string
	CheckoutLockTTL time.Duration

	PaymentGatewayURL string
	PaymentTimeout    time.Duration
}

// Load reads envPath (if present) into the process environment and then
// builds the config, falling back to defaults for unset keys. A set key that
// does not parse is an error.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	var errs []error
	envInt := func(key string, def int) int {
		n, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:          getEnv("GRPC_ADDR", ":50051"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout:   time.Duration(envInt("SHUTDOWN_TIMEOUT_S", 5)) * time.Second,
		MySQLDSN:          os.Getenv("MYSQL_DSN"),
		ArchiveWorkers:    envInt("ARCHIVE_WORKERS", 4),
		ArchiveQueueSize:  envInt("ARCHIVE_QUEUE_SIZE", 1000),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		CheckoutLockTTL:   time.Duration(envInt("CHECKOUT_LOCK_TTL_S", 30)) * time.Second,
		PaymentGatewayURL: os.Getenv("PAYMENT_GATEWAY_URL"),
		PaymentTimeout:    time.Duration(envInt("PAYMENT_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.ArchiveWorkers < 1 {
		return nil, fmt.Errorf("ARCHIVE_WORKERS must be positive, got %d", cfg.ArchiveWorkers)
	}
	if cfg.ArchiveQueueSize < 1 {
		return nil, fmt.Errorf("ARCHIVE_QUEUE_SIZE must be positive, got %d", cfg.ArchiveQueueSize)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
