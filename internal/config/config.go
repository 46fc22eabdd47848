package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultAssistantName = "Warehouse Assistant"
	DefaultModel         = "gpt-4o-mini"
	DefaultMaxTokens     = 1024
	DefaultTemperature   = 0.7
	DefaultTurnTimeout   = 10 // seconds, per store/LLM call within a turn
	DefaultHistoryLimit  = 10
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 18890
	DefaultBufSize       = 100
)

type Config struct {
	Assistant AssistantConfig `json:"assistant"`
	Store     StoreConfig     `json:"store"`
	Provider  ProviderConfig  `json:"provider"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Reminders []Reminder      `json:"reminders,omitempty"`
}

type AssistantConfig struct {
	Name               string `json:"name"`
	TurnTimeoutSeconds int    `json:"turnTimeoutSeconds"`
	TemplatesDir       string `json:"templatesDir,omitempty"`
}

type StoreConfig struct {
	DBPath string `json:"dbPath,omitempty"`
}

// ProviderConfig points at an OpenAI-compatible completion endpoint. It is
// consulted only for the unclassified-intent fallback reply; an empty APIKey
// disables the fallback entirely.
type ProviderConfig struct {
	APIKey      string  `json:"apiKey,omitempty"`
	BaseURL     string  `json:"baseUrl,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ChannelsConfig struct {
	Web      WebConfig      `json:"web"`
	Telegram TelegramConfig `json:"telegram"`
}

type WebConfig struct {
	Enabled   bool     `json:"enabled"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom,omitempty"`
	Proxy     string   `json:"proxy,omitempty"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Reminder is a scheduled outbound nudge, e.g. "time to log inventory".
type Reminder struct {
	Name     string `json:"name"`
	CronExpr string `json:"cron"`
	Channel  string `json:"channel"`
	To       string `json:"to"`
	Message  string `json:"message"`
}

func DefaultConfig() *Config {
	return &Config{
		Assistant: AssistantConfig{
			Name:               DefaultAssistantName,
			TurnTimeoutSeconds: DefaultTurnTimeout,
		},
		Provider: ProviderConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Channels: ChannelsConfig{
			Web: WebConfig{Enabled: true},
		},
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
	return filepath.Join(home, ".wareline")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DBPath resolves the SQLite path, defaulting under the config dir.
func (c *Config) DBPath() string {
	if c.Store.DBPath != "" {
		return c.Store.DBPath
	}
	return filepath.Join(ConfigDir(), "data", "inventory.db")
}

// TemplatesDir resolves the column-template directory.
func (c *Config) TemplatesDir() string {
	if c.Assistant.TemplatesDir != "" {
		return c.Assistant.TemplatesDir
	}
	return filepath.Join(ConfigDir(), "templates")
}

func LoadConfig() (*Config, error) {
	return LoadConfigFrom(ConfigPath())
}

func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
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
	if key := os.Getenv("WARELINE_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("WARELINE_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("WARELINE_MODEL"); model != "" {
		cfg.Provider.Model = model
	}
	if token := os.Getenv("WARELINE_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if dbPath := os.Getenv("WARELINE_DB_PATH"); dbPath != "" {
		cfg.Store.DBPath = dbPath
	}
	if port := os.Getenv("WARELINE_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Gateway.Port = parsed
		}
	}

	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = DefaultAssistantName
	}
	if cfg.Assistant.TurnTimeoutSeconds <= 0 {
		cfg.Assistant.TurnTimeoutSeconds = DefaultTurnTimeout
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = DefaultMaxTokens
	}
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = DefaultHost
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	return SaveConfigTo(cfg, ConfigPath())
}

func SaveConfigTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
