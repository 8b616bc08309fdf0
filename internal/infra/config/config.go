package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultTargetDate     = "20251231"
	defaultMovieNo        = "30000774"
	defaultSiteNo         = "0013"
	defaultCheckInterval  = 60 // seconds
	defaultCGVAPIURL      = "https://api.cgv.co.kr"
	defaultCGVCompanyCode = "A420"
	defaultTelegramAPIURL = "https://api.telegram.org"

	targetDateLayout = "20060102"
)

// MissingError reports required environment variables that were not set.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("required configuration not set: %s", strings.Join(e.Keys, ", "))
}

// AppConfig holds all configuration for the application.
// It is built once by Load and never mutated afterwards.
type AppConfig struct {
	TelegramBotToken string
	TelegramChatID   string
	TelegramAPIURL   string

	CGVSecretKey   string
	CGVAPIURL      string
	CGVCompanyCode string

	TargetDate string // YYYYMMDD
	MovieNo    string
	SiteNo     string

	CheckInterval      time.Duration
	PollSchedule       string // Optional cron spec, overrides CheckInterval
	MaxAttempts        int    // 0 means unbounded
	StopOnUnauthorized bool

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	missing := &MissingError{}
	cfg.TelegramBotToken = requireEnv("TELEGRAM_BOT_TOKEN", missing)
	cfg.TelegramChatID = requireEnv("TELEGRAM_CHAT_ID", missing)
	cfg.CGVSecretKey = requireEnv("CGV_SECRET_KEY", missing)
	if len(missing.Keys) > 0 {
		return nil, missing
	}

	cfg.TelegramAPIURL = strings.TrimRight(envOrDefault("TELEGRAM_API_URL", defaultTelegramAPIURL), "/")
	cfg.CGVAPIURL = strings.TrimRight(envOrDefault("CGV_API_URL", defaultCGVAPIURL), "/")
	cfg.CGVCompanyCode = envOrDefault("CGV_CO_CD", defaultCGVCompanyCode)

	cfg.TargetDate = envOrDefault("TARGET_DATE", defaultTargetDate)
	if _, err = time.Parse(targetDateLayout, cfg.TargetDate); err != nil {
		return nil, fmt.Errorf("invalid TARGET_DATE %q, expected YYYYMMDD: %w", cfg.TargetDate, err)
	}
	cfg.MovieNo = envOrDefault("MOVIE_NO", defaultMovieNo)
	cfg.SiteNo = envOrDefault("SITE_NO", defaultSiteNo)

	intervalSeconds := defaultCheckInterval
	if raw := os.Getenv("CHECK_INTERVAL"); raw != "" {
		intervalSeconds, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CHECK_INTERVAL: %w", err)
		}
		if intervalSeconds <= 0 {
			return nil, fmt.Errorf("invalid CHECK_INTERVAL: must be positive, got %d", intervalSeconds)
		}
	}
	cfg.CheckInterval = time.Duration(intervalSeconds) * time.Second

	cfg.PollSchedule = strings.TrimSpace(os.Getenv("POLL_SCHEDULE"))

	if raw := os.Getenv("MAX_ATTEMPTS"); raw != "" {
		cfg.MaxAttempts, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_ATTEMPTS: %w", err)
		}
		if cfg.MaxAttempts < 0 {
			return nil, fmt.Errorf("invalid MAX_ATTEMPTS: must not be negative, got %d", cfg.MaxAttempts)
		}
	}

	if raw := os.Getenv("STOP_ON_UNAUTHORIZED"); raw != "" {
		cfg.StopOnUnauthorized, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STOP_ON_UNAUTHORIZED: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

func requireEnv(key string, missing *MissingError) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		missing.Keys = append(missing.Keys, key)
	}
	return v
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
