// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	BotToken             string                `yaml:"bot_token"`
	BotDebug             bool                  `yaml:"bot_debug"`
	GeminiKey            string                `yaml:"gemini_key"`
	GeminiModel          string                `yaml:"gemini_model"`
	DBPath               string                `yaml:"db_path"`
	Port                 string                `yaml:"port"`
	GRPCHealthPort       string                `yaml:"grpc_health_port"`
	ProviderTimeout      time.Duration         `yaml:"provider_timeout"`
	MaxConcurrentUpdates int                   `yaml:"max_concurrent_updates"`
	LogLevel             string                `yaml:"log_level"`
	RateLimit            RateLimitConfig       `yaml:"rate_limit"`
	ConversationLog      ConversationLogConfig `yaml:"conversation_log"`
}

// RateLimitConfig bounds provider calls per user.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	QueueSize int    `yaml:"queue_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GeminiModel:          "gemini-2.5-flash",
		DBPath:               "./data/agents.db",
		Port:                 "8080",
		ProviderTimeout:      60 * time.Second,
		MaxConcurrentUpdates: 16,
		LogLevel:             "info",
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
		ConversationLog: ConversationLogConfig{
			Dir:       "./data/logs/conversations",
			QueueSize: 1000,
		},
	}
}

// Load builds configuration from defaults, then the optional YAML file at
// path, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BotToken = getEnv("BOT_TOKEN", c.BotToken)
	c.BotDebug = getEnvBool("BOT_DEBUG", c.BotDebug)
	c.GeminiKey = getEnv("GEMINI_KEY", c.GeminiKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.Port = getEnv("PORT", c.Port)
	c.GRPCHealthPort = getEnv("GRPC_HEALTH_PORT", c.GRPCHealthPort)
	c.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", c.ProviderTimeout)
	c.MaxConcurrentUpdates = getEnvInt("MAX_CONCURRENT_UPDATES", c.MaxConcurrentUpdates)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)
	c.ConversationLog.Enabled = getEnvBool("CONVERSATION_LOG_ENABLED", c.ConversationLog.Enabled)
	c.ConversationLog.Dir = getEnv("CONVERSATION_LOG_DIR", c.ConversationLog.Dir)
	c.ConversationLog.QueueSize = getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", c.ConversationLog.QueueSize)
}

// Validate checks settings every command needs.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.ProviderTimeout < 0 {
		return errors.New("PROVIDER_TIMEOUT cannot be negative")
	}
	if c.MaxConcurrentUpdates <= 0 {
		return errors.New("MAX_CONCURRENT_UPDATES must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return errors.New("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return errors.New("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ValidateServe checks the credentials the bot process needs.
func (c *Config) ValidateServe() error {
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if c.GeminiKey == "" {
		return errors.New("GEMINI_KEY is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
