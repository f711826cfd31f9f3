// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// server
	HTTPPort    int
	CORSOrigins []string
	StaticDir   string // built UI, empty serves the API only

	// session store
	StoreDriver string // sqlite, postgres or redis
	StoreDSN    string
	RedisURL    string
	SessionKey  string

	// nats (empty url disables event publishing)
	NatsURL string

	// llm
	LLMBaseURL        string
	LLMAPIKey         string
	LLMModels         []string
	LLMRetryDelays    []time.Duration
	LLMMaxTokens      int
	LLMTemperature    float64
	LLMTimeoutSec     int
	LLMRequestsPerSec float64

	// connectivity
	ProbeURL         string
	ProbeIntervalSec int

	// interview
	QuestionBankFile string
	TimerTick        time.Duration

	// logging
	LogLevel  string
	LogFormat string // console or json
	LogFile   string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 3100),
		CORSOrigins:       getEnvList("CORS_ORIGINS", []string{"*"}),
		StaticDir:         getEnv("STATIC_DIR", ""),
		StoreDriver:       getEnv("STORE_DRIVER", "sqlite"),
		StoreDSN:          getEnv("STORE_DSN", "./data/interview.db"),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionKey:        getEnv("SESSION_KEY", "interview-os-state"),
		NatsURL:           getEnv("NATS_URL", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModels:         getEnvList("LLM_MODELS", []string{"gemini-2.5-flash", "gemini-3-flash", "gemini-2.5-flash-lite"}),
		LLMMaxTokens:      getEnvInt("LLM_MAX_TOKENS", 2048),
		LLMTemperature:    getEnvFloat("LLM_TEMPERATURE", 0.4),
		LLMTimeoutSec:     getEnvInt("LLM_TIMEOUT_SECONDS", 60),
		LLMRequestsPerSec: getEnvFloat("LLM_RPS", 2),
		ProbeURL:          getEnv("CONNECTIVITY_PROBE_URL", ""),
		ProbeIntervalSec:  getEnvInt("CONNECTIVITY_INTERVAL_SECONDS", 15),
		QuestionBankFile:  getEnv("QUESTION_BANK_FILE", ""),
		TimerTick:         time.Duration(getEnvInt("TIMER_TICK_MS", 500)) * time.Millisecond,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		LogFile:           getEnv("LOG_FILE", "./logs/interview.log"),
	}

	for _, ms := range getEnvList("LLM_RETRY_DELAYS_MS", []string{"1000", "2000"}) {
		if d, err := strconv.Atoi(ms); err == nil && d >= 0 {
			cfg.LLMRetryDelays = append(cfg.LLMRetryDelays, time.Duration(d)*time.Millisecond)
		}
	}

	return cfg, nil
}

// LLMEnabled reports whether an API key for the online service is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
