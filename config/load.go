package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string        `yaml:"env"`
	Listen      string        `yaml:"listen"`
	MetricsAddr string        `yaml:"metricsAddr"`
	Webhook     WebhookConfig `yaml:"webhook"`
	Gateway     GatewayConfig `yaml:"gateway"`
	Redis       RedisConfig   `yaml:"redis"`
	Dedup       DedupConfig   `yaml:"dedup"`
	Trading     TradingConfig `yaml:"trading"`
	Symbols     SymbolTables  `yaml:"symbols"`
	Actions     ActionsConfig `yaml:"actions"`
	Log         LogConfig     `yaml:"log"`
	Notify      NotifyConfig  `yaml:"notify"`
}

type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

type GatewayConfig struct {
	APIKey       string  `yaml:"apiKey"`
	APISecret    string  `yaml:"apiSecret"`
	BaseURL      string  `yaml:"baseURL"`
	WSURL        string  `yaml:"wsURL"`
	RecvWindowMs int     `yaml:"recvWindowMs"`
	RestRate     float64 `yaml:"restRate"`
	RestBurst    int     `yaml:"restBurst"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// DedupConfig 按动作类别区分去重窗口：入场短、软退出长、其余默认。
type DedupConfig struct {
	Prefix        string `yaml:"prefix"`
	TTLEnterSec   int    `yaml:"ttlEnterSec"`
	TTLExitSec    int    `yaml:"ttlExitSec"`
	TTLDefaultSec int    `yaml:"ttlDefaultSec"`
}

type TradingConfig struct {
	DefaultQty          string            `yaml:"defaultQty"`
	QtyBySymbol         map[string]string `yaml:"qtyBySymbol"`
	EnterIfPositionOpen bool              `yaml:"enterIfPositionOpen"`
	PollAttempts        int               `yaml:"pollAttempts"`
	PollIntervalMs      int               `yaml:"pollIntervalMs"`
}

// SymbolTables 保存允许列表与 TV→交易所 的符号/价格映射，可热更新。
type SymbolTables struct {
	Allowlist []string           `yaml:"allowlist"`
	Translate map[string]string  `yaml:"translate"`
	PriceMult map[string]float64 `yaml:"priceMult"`
}

// ActionsConfig maps deployment-specific alert tokens onto the canonical
// action vocabulary (e.g. BUY -> ENTER_LONG).
type ActionsConfig struct {
	Aliases map[string]string `yaml:"aliases"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type NotifyConfig struct {
	WebhookURL  string `yaml:"webhookURL"`
	ThrottleSec int    `yaml:"throttleSec"`
}

// load parses the file and applies defaults without validating: secrets may
// arrive via env overrides only.
func load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg, err := load(path)
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env
// vars if present. Validation runs after the overrides.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("TV_WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("BYBIT_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("BYBIT_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "https://api.bybit.com"
	}
	if cfg.Gateway.RecvWindowMs <= 0 {
		cfg.Gateway.RecvWindowMs = 5000
	}
	if cfg.Gateway.RestRate <= 0 {
		cfg.Gateway.RestRate = 5
	}
	if cfg.Gateway.RestBurst <= 0 {
		cfg.Gateway.RestBurst = 10
	}
	if cfg.Dedup.Prefix == "" {
		cfg.Dedup.Prefix = "dedup:tv"
	}
	if cfg.Dedup.TTLEnterSec <= 0 {
		cfg.Dedup.TTLEnterSec = 21600 // 6h
	}
	if cfg.Dedup.TTLExitSec <= 0 {
		cfg.Dedup.TTLExitSec = 604800 // 7d
	}
	if cfg.Dedup.TTLDefaultSec <= 0 {
		cfg.Dedup.TTLDefaultSec = 86400 // 24h
	}
	if cfg.Trading.DefaultQty == "" {
		cfg.Trading.DefaultQty = "0.5"
	}
	if cfg.Trading.PollAttempts <= 0 {
		cfg.Trading.PollAttempts = 12
	}
	if cfg.Trading.PollIntervalMs <= 0 {
		cfg.Trading.PollIntervalMs = 250
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Notify.ThrottleSec <= 0 {
		cfg.Notify.ThrottleSec = 300
	}
}

// QtyFor returns the configured order quantity for a normalized symbol.
func (t TradingConfig) QtyFor(symbol string) string {
	if q, ok := t.QtyBySymbol[symbol]; ok && q != "" {
		return q
	}
	return t.DefaultQty
}
