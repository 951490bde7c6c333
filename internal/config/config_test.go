package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chat.HistoryLimit != 50 {
		t.Fatalf("expected history limit 50, got %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Chat.ContextFetch != 10 || cfg.Chat.ContextWindow != 5 {
		t.Fatalf("unexpected context bounds %d/%d", cfg.Chat.ContextFetch, cfg.Chat.ContextWindow)
	}
	if cfg.Security.SessionTTL != 168*time.Hour {
		t.Fatalf("expected 7 day session ttl, got %s", cfg.Security.SessionTTL)
	}
	if cfg.Security.CookieName != "session_id" {
		t.Fatalf("unexpected cookie name %q", cfg.Security.CookieName)
	}
	if cfg.AI.PrimaryModel != "o1-mini" || cfg.AI.FallbackModel != "gpt-4o-mini" {
		t.Fatalf("unexpected models %q/%q", cfg.AI.PrimaryModel, cfg.AI.FallbackModel)
	}
	if cfg.AI.APIKey != "" {
		t.Fatalf("expected empty api key")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORTAL_CHAT_HISTORYLIMIT", "25")
	t.Setenv("PORTAL_AI_TIMEOUT", "5s")
	t.Setenv("PORTAL_ALLOWCORSORIGINS", "http://a.test,http://b.test")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := load(viper.New())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chat.HistoryLimit != 25 {
		t.Fatalf("expected 25, got %d", cfg.Chat.HistoryLimit)
	}
	if cfg.AI.Timeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.AI.Timeout)
	}
	if len(cfg.AllowCORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowCORSOrigins)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Fatalf("expected api key from OPENAI_API_KEY")
	}
}
