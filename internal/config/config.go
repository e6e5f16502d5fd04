// Package config loads and validates configuration at startup.
// Fail-fast: an invalid value stops the process before anything listens.
//
// Sources, lowest precedence first: built-in defaults, the YAML file named
// by UPDRIFT_CONFIG, a .env file in the working directory, then the process
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AdzunaConfig holds Adzuna credentials and quota.
type AdzunaConfig struct {
	AppID        string `yaml:"app_id"`
	AppKey       string `yaml:"app_key"`
	Country      string `yaml:"country"` // e.g. "us", "gb"
	MonthlyLimit int    `yaml:"monthly_limit"`
}

// JSearchConfig holds RapidAPI credentials and quota.
type JSearchConfig struct {
	APIKey       string `yaml:"api_key"`
	Host         string `yaml:"host"`
	MonthlyLimit int    `yaml:"monthly_limit"`
}

// Config holds all runtime configuration for the search service.
type Config struct {
	Port                 string        `yaml:"port"`
	GRPCPort             string        `yaml:"grpc_port"` // empty disables gRPC health
	LogLevel             string        `yaml:"log_level"`
	DatabaseURL          string        `yaml:"database_url"` // empty disables snapshots
	RedisURL             string        `yaml:"redis_url"`    // empty keeps the cache in memory
	CleanupIntervalHours int           `yaml:"cleanup_interval_hours"`
	QuotaWarnPercent     float64       `yaml:"quota_warn_percent"`
	DedupByPublisher     bool          `yaml:"dedup_by_publisher"`
	NominatimUserAgent   string        `yaml:"nominatim_user_agent"`
	Adzuna               AdzunaConfig  `yaml:"adzuna"`
	JSearch              JSearchConfig `yaml:"jsearch"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Port:                 "8080",
		LogLevel:             "info",
		CleanupIntervalHours: 24,
		QuotaWarnPercent:     80,
		Adzuna:               AdzunaConfig{Country: "us", MonthlyLimit: 1000},
		JSearch:              JSearchConfig{Host: "jsearch.p.rapidapi.com", MonthlyLimit: 200},
	}
}

// Load reads every source and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()

	if path, ok := lookup("UPDRIFT_CONFIG"); ok && path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read UPDRIFT_CONFIG: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	str(&cfg.Port, "PORT")
	str(&cfg.GRPCPort, "GRPC_PORT")
	str(&cfg.LogLevel, "LOG_LEVEL")
	str(&cfg.DatabaseURL, "DATABASE_URL")
	str(&cfg.RedisURL, "REDIS_URL")
	str(&cfg.NominatimUserAgent, "NOMINATIM_USER_AGENT")
	str(&cfg.Adzuna.AppID, "ADZUNA_APP_ID")
	str(&cfg.Adzuna.AppKey, "ADZUNA_APP_KEY")
	str(&cfg.Adzuna.Country, "ADZUNA_COUNTRY")
	str(&cfg.JSearch.APIKey, "JSEARCH_API_KEY", "RAPIDAPI_KEY")
	str(&cfg.JSearch.Host, "JSEARCH_HOST")

	ints := []struct {
		key string
		dst *int
	}{
		{"ADZUNA_MONTHLY_LIMIT", &cfg.Adzuna.MonthlyLimit},
		{"JSEARCH_MONTHLY_LIMIT", &cfg.JSearch.MonthlyLimit},
		{"CLEANUP_INTERVAL_HOURS", &cfg.CleanupIntervalHours},
	}
	for _, it := range ints {
		s, ok := lookup(it.key)
		if !ok || s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("%s must be a positive integer, got %q", it.key, s)
		}
		*it.dst = v
	}

	if s, ok := lookup("QUOTA_WARN_PERCENT"); ok && s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("QUOTA_WARN_PERCENT must be a number, got %q", s)
		}
		cfg.QuotaWarnPercent = v
	}
	if s, ok := lookup("DEDUP_BY_PUBLISHER"); ok && s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("DEDUP_BY_PUBLISHER must be a boolean, got %q", s)
		}
		cfg.DedupByPublisher = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules and value ranges.
func (c *Config) Validate() error {
	for name, port := range map[string]string{"PORT": c.Port, "GRPC_PORT": c.GRPCPort} {
		if port == "" && name == "GRPC_PORT" {
			continue
		}
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("%s must be a port number, got %q", name, port)
		}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if (c.Adzuna.AppID == "") != (c.Adzuna.AppKey == "") {
		return fmt.Errorf("ADZUNA_APP_ID and ADZUNA_APP_KEY must be set together")
	}
	if c.Adzuna.MonthlyLimit < 1 || c.JSearch.MonthlyLimit < 1 {
		return fmt.Errorf("monthly limits must be positive")
	}
	if c.CleanupIntervalHours < 1 {
		return fmt.Errorf("CLEANUP_INTERVAL_HOURS must be a positive integer, got %d", c.CleanupIntervalHours)
	}
	if c.QuotaWarnPercent <= 0 || c.QuotaWarnPercent > 100 {
		return fmt.Errorf("QUOTA_WARN_PERCENT must be in (0, 100], got %v", c.QuotaWarnPercent)
	}
	return nil
}

// MonthlyLimits returns the quota limit per provider id.
func (c *Config) MonthlyLimits() map[string]int {
	return map[string]int{
		"adzuna":  c.Adzuna.MonthlyLimit,
		"jsearch": c.JSearch.MonthlyLimit,
	}
}

// ParseLevel maps a LOG_LEVEL value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s)
}
