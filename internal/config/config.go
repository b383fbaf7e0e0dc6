// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"MIRROR_DB_PATH" envDefault:"./data/mirror.db"`
	ServerHost string `env:"MIRROR_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"MIRROR_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"MIRROR_ENV" envDefault:"development"`
	LogLevel   string `env:"MIRROR_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL    string `env:"MIRROR_REDIS_URL"`                       // Optional Redis URL for distributed caching
	CachePrefix string `env:"MIRROR_CACHE_PREFIX" envDefault:"mirror:"` // Redis key prefix
	CacheTTL    int    `env:"MIRROR_CACHE_TTL" envDefault:"1800"`     // Default cache TTL in seconds

	// Translation provider configuration
	OpenAIAPIKey  string `env:"MIRROR_OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"MIRROR_OPENAI_BASE_URL"` // Any OpenAI-compatible endpoint
	ChatModel     string `env:"MIRROR_CHAT_MODEL" envDefault:"gpt-4o-mini"`

	// Worker configuration
	WorkerPollSeconds  int     `env:"MIRROR_WORKER_POLL_SECONDS" envDefault:"5"`
	WorkerMaxPerSecond float64 `env:"MIRROR_WORKER_MAX_PER_SECOND" envDefault:"1"`
	DebounceSeconds    int     `env:"MIRROR_DEBOUNCE_SECONDS" envDefault:"2"`

	// BackfillCron optionally schedules a recurring backfill scan
	// (standard cron expression, e.g. "0 3 * * *").
	BackfillCron string `env:"MIRROR_BACKFILL_CRON"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// WorkerPollInterval returns the worker poll interval as a duration.
func (c Config) WorkerPollInterval() time.Duration {
	return time.Duration(c.WorkerPollSeconds) * time.Second
}

// DebounceInterval returns the edit-coalescing window as a duration.
func (c Config) DebounceInterval() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("MIRROR_SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.WorkerPollSeconds < 1 {
		return nil, fmt.Errorf("MIRROR_WORKER_POLL_SECONDS must be at least 1, got %d", cfg.WorkerPollSeconds)
	}
	if cfg.DebounceSeconds < 0 {
		return nil, fmt.Errorf("MIRROR_DEBOUNCE_SECONDS must not be negative, got %d", cfg.DebounceSeconds)
	}

	return cfg, nil
}
