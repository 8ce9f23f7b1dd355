package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted in AI_PROVIDER
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
)

// AI holds settings for the generative model backing summaries and replies
type AI struct {
	Provider      string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	DeepSeekKey   string
	DeepSeekModel string
	Timeout       time.Duration
}

// Config is the process configuration shared by the bot and the API server
type Config struct {
	Port               string
	DatabaseURL        string
	TelegramToken      string
	TelegramDebug      bool
	ConfigDir          string
	BackendURL         string
	RelaySecret        string
	RateLimitPerMinute float64
	AI                 AI
}

// Load reads .env (if present) and the process environment
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	return &Config{
		Port:               getEnv("PORT", "5001"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		TelegramToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramDebug:      getBool("TELEGRAM_DEBUG", false),
		ConfigDir:          getEnv("CONFIG_DIR", "configs"),
		BackendURL:         getEnv("BACKEND_URL", "http://localhost:5001"),
		RelaySecret:        getEnv("RELAY_SECRET", ""),
		RateLimitPerMinute: getFloat("RATE_LIMIT_PER_MINUTE", 100),
		AI: AI{
			Provider:      getEnv("AI_PROVIDER", ProviderGemini),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			DeepSeekKey:   getEnv("DEEPSEEK_API_KEY", ""),
			DeepSeekModel: getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			Timeout:       getDuration("AI_TIMEOUT", 30*time.Second),
		},
	}
}

// RequireBot checks the keys the Telegram bot cannot start without
func (c *Config) RequireBot() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return c.AI.validate()
}

// RequireServer checks the keys the HTTP API cannot start without.
// The AI key is optional here; the chat endpoint answers with a
// configuration notice when it is missing.
func (c *Config) RequireServer() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// Path resolves a file name inside the configuration directory
func (c *Config) Path(name string) string {
	return filepath.Join(c.ConfigDir, name)
}

// Configured reports whether an API key is present for the selected provider
func (a AI) Configured() bool {
	return a.validate() == nil
}

func (a AI) validate() error {
	switch a.Provider {
	case ProviderGemini:
		if a.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required")
		}
	case ProviderOpenAI:
		if a.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required")
		}
	case ProviderDeepSeek:
		if a.DeepSeekKey == "" {
			return errors.New("DEEPSEEK_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", a.Provider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
