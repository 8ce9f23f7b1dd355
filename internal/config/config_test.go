package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("AI_TIMEOUT", "")
	t.Setenv("CONFIG_DIR", "")

	cfg := Load()

	if cfg.Port != "5001" {
		t.Errorf("Port = %q, want 5001", cfg.Port)
	}
	if cfg.AI.Provider != ProviderGemini {
		t.Errorf("Provider = %q, want %q", cfg.AI.Provider, ProviderGemini)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.AI.Timeout)
	}
	if got := cfg.Path("facilities.json"); got != "configs/facilities.json" {
		t.Errorf("Path = %q", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("TELEGRAM_DEBUG", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()

	if cfg.AI.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.AI.Timeout)
	}
	if !cfg.TelegramDebug {
		t.Error("TelegramDebug should be true")
	}
	if cfg.RateLimitPerMinute != 100 {
		t.Errorf("RateLimitPerMinute = %v, want default 100", cfg.RateLimitPerMinute)
	}
}

func TestRequireBot(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "missing token",
			cfg:     Config{AI: AI{Provider: ProviderGemini, GeminiAPIKey: "k"}},
			wantErr: true,
		},
		{
			name:    "missing gemini key",
			cfg:     Config{TelegramToken: "t", AI: AI{Provider: ProviderGemini}},
			wantErr: true,
		},
		{
			name:    "openai configured",
			cfg:     Config{TelegramToken: "t", AI: AI{Provider: ProviderOpenAI, OpenAIAPIKey: "k"}},
			wantErr: false,
		},
		{
			name:    "deepseek configured",
			cfg:     Config{TelegramToken: "t", AI: AI{Provider: ProviderDeepSeek, DeepSeekKey: "k"}},
			wantErr: false,
		},
		{
			name:    "unknown provider",
			cfg:     Config{TelegramToken: "t", AI: AI{Provider: "llama"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.RequireBot()
			if (err != nil) != tt.wantErr {
				t.Errorf("RequireBot() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireServer(t *testing.T) {
	if err := (&Config{}).RequireServer(); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
	if err := (&Config{DatabaseURL: "postgres://x"}).RequireServer(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
