package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"FINCLAW_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"FINCLAW_BASE_URL", "FINCLAW_MARKET_API_KEY", "ALPHA_VANTAGE_API_KEY",
		"FINCLAW_BRAVE_API_KEY", "FINCLAW_TELEGRAM_TOKEN",
		"FINCLAW_KNOWLEDGE_DB_PATH", "FINCLAW_SESSION_DIR",
		"FINCLAW_EMBEDDING_ENABLED", "FINCLAW_SESSION_MAX_HISTORY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return home
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Agent.Model != DefaultModel {
		t.Errorf("model = %q", cfg.Agent.Model)
	}
	if cfg.Session.MaxHistory != DefaultMaxHistory {
		t.Errorf("maxHistory = %d", cfg.Session.MaxHistory)
	}
	if cfg.Knowledge.TopK != DefaultKnowledgeTopK {
		t.Errorf("topK = %d", cfg.Knowledge.TopK)
	}
	if cfg.Market.BaseURL != DefaultMarketBaseURL {
		t.Errorf("market base url = %q", cfg.Market.BaseURL)
	}
	if cfg.Gateway.Port != DefaultPort {
		t.Errorf("port = %d", cfg.Gateway.Port)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	home := isolateHome(t)

	dir := filepath.Join(home, ".finclaw")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `{
		"provider": {"apiKey": "file-key", "type": "openai"},
		"session": {"maxHistory": 10},
		"channels": {"telegram": {"enabled": true, "token": "tg-token"}}
	}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider.APIKey != "file-key" || cfg.Provider.Type != "openai" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Session.MaxHistory != 10 {
		t.Errorf("maxHistory = %d, want 10", cfg.Session.MaxHistory)
	}
	if !cfg.Channels.Telegram.Enabled || cfg.Channels.Telegram.Token != "tg-token" {
		t.Errorf("telegram = %+v", cfg.Channels.Telegram)
	}
	// File values merge over defaults, not replace them.
	if cfg.Agent.Model != DefaultModel {
		t.Errorf("model = %q, want default preserved", cfg.Agent.Model)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("FINCLAW_API_KEY", "env-key")
	t.Setenv("FINCLAW_MARKET_API_KEY", "mk")
	t.Setenv("FINCLAW_BRAVE_API_KEY", "bk")
	t.Setenv("FINCLAW_SESSION_MAX_HISTORY", "7")
	t.Setenv("FINCLAW_EMBEDDING_ENABLED", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider.APIKey != "env-key" {
		t.Errorf("apiKey = %q", cfg.Provider.APIKey)
	}
	if cfg.Market.APIKey != "mk" || cfg.Search.BraveAPIKey != "bk" {
		t.Errorf("market/search keys = %q/%q", cfg.Market.APIKey, cfg.Search.BraveAPIKey)
	}
	if cfg.Session.MaxHistory != 7 {
		t.Errorf("maxHistory = %d, want 7", cfg.Session.MaxHistory)
	}
	if !cfg.Knowledge.Embedding.Enabled {
		t.Error("embedding not enabled by env override")
	}
}

func TestOpenAIKeyImpliesProviderType(t *testing.T) {
	isolateHome(t)
	t.Setenv("OPENAI_API_KEY", "oa-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider.APIKey != "oa-key" || cfg.Provider.Type != "openai" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
}

func TestFinclawKeyWinsOverVendorKeys(t *testing.T) {
	isolateHome(t)
	t.Setenv("FINCLAW_API_KEY", "primary")
	t.Setenv("ANTHROPIC_API_KEY", "vendor")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider.APIKey != "primary" {
		t.Errorf("apiKey = %q, want primary", cfg.Provider.APIKey)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	isolateHome(t)

	cfg := DefaultConfig()
	cfg.Provider.APIKey = "saved-key"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Provider.APIKey != "saved-key" {
		t.Errorf("apiKey = %q, want saved-key", loaded.Provider.APIKey)
	}
}

func TestPathResolution(t *testing.T) {
	home := isolateHome(t)

	cfg := DefaultConfig()
	if got := cfg.SessionDir(); got != filepath.Join(home, ".finclaw", "sessions") {
		t.Errorf("SessionDir = %q", got)
	}
	if got := cfg.KnowledgeDBPath(); got != filepath.Join(home, ".finclaw", "data", "knowledge.db") {
		t.Errorf("KnowledgeDBPath = %q", got)
	}

	cfg.Session.Dir = "/tmp/custom-sessions"
	cfg.Knowledge.DBPath = "/tmp/custom.db"
	if cfg.SessionDir() != "/tmp/custom-sessions" || cfg.KnowledgeDBPath() != "/tmp/custom.db" {
		t.Errorf("explicit paths not honored: %q %q", cfg.SessionDir(), cfg.KnowledgeDBPath())
	}
}
