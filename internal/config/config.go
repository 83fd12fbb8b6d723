package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultPersonaInstruction is the deployment's conversational stance. The
// {name} token is replaced with the caller's display name at prompt time.
const DefaultPersonaInstruction = "As a caring companion, address {name} in a human-like, helpful and non-judgemental way. Respond with advice and ask follow-up questions regarding their concerns. Never answer as an AI model, and never say you cannot help."

// Config contains all runtime settings for the companion chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	StoreMode   string
	DatabaseURL string

	LLMProvider    string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	HistoryWindow          int
	PersonaInstruction     string
	PersonaPlaceholderName string

	RateLimitPerMin int
	RateLimitBurst  int
}

// Load reads environment variables and applies safe defaults. Missing
// credentials for the selected backends are startup errors, never
// per-request ones.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:               envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "solace"),
		AllowAnyOrigin:         false,
		StoreMode:              envOrDefault("STORE_MODE", "postgres"),
		DatabaseURL:            stringsTrimSpace("DATABASE_URL"),
		LLMProvider:            envOrDefault("LLM_PROVIDER", "openai"),
		OpenAIAPIKey:           stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:          stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAIModel:            envOrDefault("OPENAI_MODEL", "gpt-4"),
		LLMMaxTokens:           150,
		LLMTemperature:         0.3,
		LLMTimeout:             60 * time.Second,
		HistoryWindow:          25,
		PersonaInstruction:     envOrDefault("PERSONA_INSTRUCTION", DefaultPersonaInstruction),
		PersonaPlaceholderName: envOrDefault("PERSONA_PLACEHOLDER_NAME", "friend"),
		RateLimitPerMin:        60,
		RateLimitBurst:         10,
		ShutdownTimeout:        15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMMaxTokens, err = intFromEnv("LLM_MAX_TOKENS", cfg.LLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTemperature, err = floatFromEnv("LLM_TEMPERATURE", cfg.LLMTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("CHAT_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitPerMin, err = intFromEnv("RATE_LIMIT_PER_MIN", cfg.RateLimitPerMin)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimitBurst, err = intFromEnv("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(cfg.StoreMode) {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required (or set STORE_MODE=memory)")
		}
	case "memory":
	default:
		return Config{}, fmt.Errorf("invalid STORE_MODE: %q (expected postgres|memory)", cfg.StoreMode)
	}

	switch strings.ToLower(cfg.LLMProvider) {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required for LLM_PROVIDER=openai")
		}
	case "mock":
	default:
		return Config{}, fmt.Errorf("invalid LLM_PROVIDER: %q (expected openai|mock)", cfg.LLMProvider)
	}

	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("CHAT_HISTORY_WINDOW must be positive")
	}
	if cfg.LLMMaxTokens <= 0 {
		return Config{}, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return Config{}, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}
	if cfg.RateLimitPerMin <= 0 || cfg.RateLimitBurst <= 0 {
		return Config{}, fmt.Errorf("rate limit settings must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
