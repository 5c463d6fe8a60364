// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	StaffKey     string

	RedisURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	CallBatchSize       int
	SkipReinsertBatches int
	MaxSkips            int

	ResultWindow    time.Duration
	SuccessWindow   time.Duration
	ScanLatchWindow time.Duration

	CodePrefix string
}

// ParseFlags reads flags, then a .env file, then the environment. Flags win
// over the environment, and variables already set win over the .env file.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string

	fs := flag.NewFlagSet("pilrt", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or memory)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for cross-instance change relay")
	fs.StringVar(&envFile, "env-file", ".env", "Optional dotenv file")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.StaffKey, "staff-key", "", "Shared staff key (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		port, err := envInt("PORT", 3318)
		if err != nil {
			return Config{}, err
		}
		cfg.Port = port
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = envString("DATABASE_TYPE", "sqlite")
	}
	switch cfg.DatabaseType {
	case "sqlite", "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" && cfg.DatabaseType != "memory" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	// Secrets - MUST be provided
	if cfg.StaffKey == "" {
		cfg.StaffKey = os.Getenv("STAFF_KEY")
	}
	if cfg.StaffKey == "" {
		return Config{}, errors.New("STAFF_KEY required")
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}

	cfg.MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
	cfg.MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.MinioBucket = envString("MINIO_BUCKET", "pilrt-audit")
	cfg.MinioUseSSL = os.Getenv("MINIO_USE_SSL") == "true"

	var err error
	if cfg.CallBatchSize, err = envInt("CALL_BATCH_SIZE", 3); err != nil {
		return Config{}, err
	}
	if cfg.SkipReinsertBatches, err = envInt("SKIP_REINSERT_BATCHES", 3); err != nil {
		return Config{}, err
	}
	if cfg.MaxSkips, err = envInt("MAX_SKIPS", 3); err != nil {
		return Config{}, err
	}
	if cfg.CallBatchSize < 1 || cfg.SkipReinsertBatches < 1 || cfg.MaxSkips < 1 {
		return Config{}, errors.New("CALL_BATCH_SIZE, SKIP_REINSERT_BATCHES and MAX_SKIPS must be positive")
	}

	if cfg.ResultWindow, err = envDuration("RESULT_WINDOW", 4*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SuccessWindow, err = envDuration("SUCCESS_WINDOW", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ScanLatchWindow, err = envDuration("SCAN_LATCH_WINDOW", 2*time.Second); err != nil {
		return Config{}, err
	}

	cfg.CodePrefix = envString("CODE_PREFIX", "RT12")

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return d, nil
}
