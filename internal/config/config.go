package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel           = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens       = 4096
	DefaultTemperature     = 0.7
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 18891
	DefaultBufSize         = 100
	DefaultMaxHistory      = 50
	DefaultKnowledgeTopK   = 3
	DefaultMarketBaseURL   = "https://www.alphavantage.co"
	DefaultSearchBaseURL   = "https://api.search.brave.com"
	DefaultMarketTimeoutMs = 10000
	DefaultSearchTimeoutMs = 10000
	DefaultQuoteTTLSec     = 300

	DefaultEmbeddingTimeoutMs = 15000
	DefaultEmbeddingBatchSize = 16
)

type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Provider  ProviderConfig  `json:"provider"`
	Market    MarketConfig    `json:"market"`
	Search    SearchConfig    `json:"search"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Session   SessionConfig   `json:"session"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
}

type AgentConfig struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type ProviderConfig struct {
	Type    string `json:"type,omitempty"` // "anthropic" (default) or "openai"
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
}

type MarketConfig struct {
	APIKey      string `json:"apiKey,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty"`
	TimeoutMs   int    `json:"timeoutMs,omitempty"`
	QuoteTTLSec int    `json:"quoteTtlSec,omitempty"`
}

type SearchConfig struct {
	BraveAPIKey string `json:"braveApiKey,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty"`
	TimeoutMs   int    `json:"timeoutMs,omitempty"`
}

type KnowledgeConfig struct {
	DBPath    string          `json:"dbPath,omitempty"`
	TopK      int             `json:"topK,omitempty"`
	Embedding EmbeddingConfig `json:"embedding"`
}

type EmbeddingConfig struct {
	Enabled   bool   `json:"enabled"`
	Model     string `json:"model,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
}

type SessionConfig struct {
	Dir        string `json:"dir,omitempty"`
	MaxHistory int    `json:"maxHistory,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	WebUI    WebUIConfig    `json:"webui"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty"`
}

type WebUIConfig struct {
	Enabled   bool     `json:"enabled"`
	AllowFrom []string `json:"allowFrom"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Provider: ProviderConfig{},
		Market: MarketConfig{
			BaseURL:     DefaultMarketBaseURL,
			TimeoutMs:   DefaultMarketTimeoutMs,
			QuoteTTLSec: DefaultQuoteTTLSec,
		},
		Search: SearchConfig{
			BaseURL:   DefaultSearchBaseURL,
			TimeoutMs: DefaultSearchTimeoutMs,
		},
		Knowledge: KnowledgeConfig{
			TopK: DefaultKnowledgeTopK,
			Embedding: EmbeddingConfig{
				TimeoutMs: DefaultEmbeddingTimeoutMs,
				BatchSize: DefaultEmbeddingBatchSize,
			},
		},
		Session: SessionConfig{
			MaxHistory: DefaultMaxHistory,
		},
		Channels: ChannelsConfig{},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".finclaw")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// SessionDir resolves the session storage directory, defaulting under the
// config dir when unset.
func (c *Config) SessionDir() string {
	if c.Session.Dir != "" {
		return c.Session.Dir
	}
	return filepath.Join(ConfigDir(), "sessions")
}

// KnowledgeDBPath resolves the knowledge store path.
func (c *Config) KnowledgeDBPath() string {
	if c.Knowledge.DBPath != "" {
		return c.Knowledge.DBPath
	}
	return filepath.Join(ConfigDir(), "data", "knowledge.db")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("FINCLAW_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
		if cfg.Provider.Type == "" {
			cfg.Provider.Type = "openai"
		}
	}
	if url := os.Getenv("FINCLAW_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if key := os.Getenv("FINCLAW_MARKET_API_KEY"); key != "" {
		cfg.Market.APIKey = key
	}
	if key := os.Getenv("ALPHA_VANTAGE_API_KEY"); key != "" && cfg.Market.APIKey == "" {
		cfg.Market.APIKey = key
	}
	if key := os.Getenv("FINCLAW_BRAVE_API_KEY"); key != "" {
		cfg.Search.BraveAPIKey = key
	}
	if token := os.Getenv("FINCLAW_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if dbPath := os.Getenv("FINCLAW_KNOWLEDGE_DB_PATH"); dbPath != "" {
		cfg.Knowledge.DBPath = dbPath
	}
	if dir := os.Getenv("FINCLAW_SESSION_DIR"); dir != "" {
		cfg.Session.Dir = dir
	}
	if enabled := os.Getenv("FINCLAW_EMBEDDING_ENABLED"); enabled != "" {
		if parsed, err := strconv.ParseBool(enabled); err == nil {
			cfg.Knowledge.Embedding.Enabled = parsed
		}
	}
	if model := os.Getenv("FINCLAW_EMBEDDING_MODEL"); model != "" {
		cfg.Knowledge.Embedding.Model = model
	}
	if key := os.Getenv("FINCLAW_EMBEDDING_API_KEY"); key != "" {
		cfg.Knowledge.Embedding.APIKey = key
	}
	if url := os.Getenv("FINCLAW_EMBEDDING_BASE_URL"); url != "" {
		cfg.Knowledge.Embedding.BaseURL = url
	}
	if maxHistory := os.Getenv("FINCLAW_SESSION_MAX_HISTORY"); maxHistory != "" {
		if parsed, err := strconv.Atoi(maxHistory); err == nil && parsed > 0 {
			cfg.Session.MaxHistory = parsed
		}
	}

	if cfg.Session.MaxHistory <= 0 {
		cfg.Session.MaxHistory = DefaultMaxHistory
	}
	if cfg.Knowledge.TopK <= 0 {
		cfg.Knowledge.TopK = DefaultKnowledgeTopK
	}
	if cfg.Market.BaseURL == "" {
		cfg.Market.BaseURL = DefaultMarketBaseURL
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = DefaultSearchBaseURL
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
