package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Auth
	EditorAPIKey string

	// Document service (load/save)
	DocstoreURL    string
	DocstoreAPIKey string

	// Validation service
	ValidationURL     string
	ValidationAPIKey  string
	ValidationTimeout time.Duration

	// Normdata service
	NormdataURL      string
	NormdataCacheTTL time.Duration

	// Save worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF import
	PDFFallbackPdftotext bool

	// Save policy
	ValidateBeforeSave bool
	BlockSaveOnErrors  bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),

		EditorAPIKey: os.Getenv("EDITOR_API_KEY"),

		DocstoreURL:    envOr("DOCSTORE_URL", "http://localhost:8080"),
		DocstoreAPIKey: os.Getenv("DOCSTORE_API_KEY"),

		ValidationURL:     os.Getenv("VALIDATION_URL"),
		ValidationAPIKey:  os.Getenv("VALIDATION_API_KEY"),
		ValidationTimeout: envDuration("VALIDATION_TIMEOUT", 30*time.Second),

		NormdataURL:      os.Getenv("NORMDATA_URL"),
		NormdataCacheTTL: envDuration("NORMDATA_CACHE_TTL", 15*time.Minute),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		ValidateBeforeSave: envBool("VALIDATE_BEFORE_SAVE", true),
		BlockSaveOnErrors:  envBool("BLOCK_SAVE_ON_ERRORS", false),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = 30 * time.Second
	}
	if cfg.ValidationAPIKey == "" {
		cfg.ValidationAPIKey = cfg.DocstoreAPIKey
	}
	if cfg.NormdataCacheTTL <= 0 {
		cfg.NormdataCacheTTL = 15 * time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.DocstoreAPIKey == "" {
		return fmt.Errorf("DOCSTORE_API_KEY is required")
	}
	if c.EditorAPIKey == "" {
		return fmt.Errorf("EDITOR_API_KEY is required")
	}
	if c.BlockSaveOnErrors && !c.ValidateBeforeSave {
		return fmt.Errorf("BLOCK_SAVE_ON_ERRORS requires VALIDATE_BEFORE_SAVE")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c Config) NewLogger() *slog.Logger {
	lvl, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
