package configs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/songzhibin97/futuresbot/internal/validation"
)

const (
	DefaultTestnetURL = "https://testnet.binancefuture.com"
	DefaultLogPath    = "logs/trading_bot.log"
	DefaultKeyEnv     = "BINANCE_TEST_KEY"
	DefaultSecretEnv  = "BINANCE_TEST_SECRET"
)

type Config struct {
	// 余额查询默认资产
	BalanceAsset string `json:"balance_asset" yaml:"balance_asset"`

	// 交易所配置
	ExchangeConfig ExchangeConfig `json:"exchange" yaml:"exchange"`

	// 日志配置
	LogConfig LogConfig `json:"log" yaml:"log"`

	// 下单校验参数
	Validation ValidationConfig `json:"validation" yaml:"validation"`
}

type ExchangeConfig struct {
	Testnet        bool   `json:"testnet" yaml:"testnet"`
	BaseURL        string `json:"base_url" yaml:"base_url"`
	APIKey         string `json:"api_key" yaml:"api_key"`       // 交易所API密钥
	SecretKey      string `json:"secret_key" yaml:"secret_key"` // 交易所密钥
	KeyEnv         string `json:"key_env" yaml:"key_env"`       // 保存 API 密钥的环境变量名
	SecretEnv      string `json:"secret_env" yaml:"secret_env"`
	HTTPTimeoutSec int64  `json:"http_timeout_sec" yaml:"http_timeout_sec"`
	Proxy          string `json:"proxy" yaml:"proxy"`
}

type LogConfig struct {
	Path       string `json:"path" yaml:"path"`
	Level      string `json:"level" yaml:"level"` // 控制台日志级别
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

type ValidationConfig struct {
	SymbolPattern string  `json:"symbol_pattern" yaml:"symbol_pattern"`
	MinQuantity   Decimal `json:"min_quantity" yaml:"min_quantity"`
	MaxQuantity   Decimal `json:"max_quantity" yaml:"max_quantity"`
	MaxPrice      Decimal `json:"max_price" yaml:"max_price"`
	MaxNotional   Decimal `json:"max_notional" yaml:"max_notional"`
}

// Rules converts the validation block into validator rules.
func (v ValidationConfig) Rules() validation.Rules {
	return validation.Rules{
		SymbolPattern: v.SymbolPattern,
		MinQuantity:   v.MinQuantity.Decimal,
		MaxQuantity:   v.MaxQuantity.Decimal,
		MaxPrice:      v.MaxPrice.Decimal,
		MaxNotional:   v.MaxNotional.Decimal,
	}
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	cfg := Config{ExchangeConfig: ExchangeConfig{Testnet: true}}
	cfg.normalize()
	cfg.applyDefaults()
	return cfg
}

// Load reads a single YAML document from path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}

	cfg := Config{ExchangeConfig: ExchangeConfig{Testnet: true}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("config must contain a single YAML document")
		}
		return Config{}, err
	}
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.BalanceAsset = strings.ToUpper(strings.TrimSpace(c.BalanceAsset))
	c.ExchangeConfig.BaseURL = strings.TrimRight(strings.TrimSpace(c.ExchangeConfig.BaseURL), "/")
	c.ExchangeConfig.APIKey = strings.TrimSpace(c.ExchangeConfig.APIKey)
	c.ExchangeConfig.SecretKey = strings.TrimSpace(c.ExchangeConfig.SecretKey)
	c.ExchangeConfig.KeyEnv = strings.TrimSpace(c.ExchangeConfig.KeyEnv)
	c.ExchangeConfig.SecretEnv = strings.TrimSpace(c.ExchangeConfig.SecretEnv)
	c.ExchangeConfig.Proxy = strings.TrimSpace(c.ExchangeConfig.Proxy)
	c.LogConfig.Path = strings.TrimSpace(c.LogConfig.Path)
	c.LogConfig.Level = strings.ToLower(strings.TrimSpace(c.LogConfig.Level))
	c.Validation.SymbolPattern = strings.TrimSpace(c.Validation.SymbolPattern)
}

func (c *Config) applyDefaults() {
	if c.BalanceAsset == "" {
		c.BalanceAsset = "USDT"
	}
	if c.ExchangeConfig.BaseURL == "" && c.ExchangeConfig.Testnet {
		c.ExchangeConfig.BaseURL = DefaultTestnetURL
	}
	if c.ExchangeConfig.KeyEnv == "" {
		c.ExchangeConfig.KeyEnv = DefaultKeyEnv
	}
	if c.ExchangeConfig.SecretEnv == "" {
		c.ExchangeConfig.SecretEnv = DefaultSecretEnv
	}
	if c.ExchangeConfig.HTTPTimeoutSec == 0 {
		c.ExchangeConfig.HTTPTimeoutSec = 15
	}
	if c.LogConfig.Path == "" {
		c.LogConfig.Path = DefaultLogPath
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.LogConfig.MaxSizeMB == 0 {
		c.LogConfig.MaxSizeMB = 10
	}
	if c.LogConfig.MaxBackups == 0 {
		c.LogConfig.MaxBackups = 3
	}
	if c.LogConfig.MaxAgeDays == 0 {
		c.LogConfig.MaxAgeDays = 28
	}
	if c.Validation.SymbolPattern == "" {
		c.Validation.SymbolPattern = validation.DefaultSymbolPattern
	}
}

func (c Config) Validate() error {
	if c.ExchangeConfig.BaseURL == "" {
		return fmt.Errorf("exchange base_url is required when testnet is disabled")
	}
	if err := validateURL(c.ExchangeConfig.BaseURL, "http", "https"); err != nil {
		return fmt.Errorf("exchange base_url %v", err)
	}
	if c.ExchangeConfig.Proxy != "" {
		if err := validateURL(c.ExchangeConfig.Proxy, "http", "https", "socks5"); err != nil {
			return fmt.Errorf("exchange proxy %v", err)
		}
	}
	if c.ExchangeConfig.HTTPTimeoutSec < 1 || c.ExchangeConfig.HTTPTimeoutSec > 120 {
		return fmt.Errorf("exchange http_timeout_sec must be between 1 and 120")
	}
	switch c.LogConfig.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn, or error")
	}
	if c.LogConfig.MaxSizeMB < 1 || c.LogConfig.MaxSizeMB > 1024 {
		return fmt.Errorf("log max_size_mb must be between 1 and 1024")
	}
	if c.LogConfig.MaxBackups < 0 || c.LogConfig.MaxAgeDays < 0 {
		return fmt.Errorf("log max_backups/max_age_days must be >= 0")
	}
	if !isAlnum(c.BalanceAsset) {
		return fmt.Errorf("balance_asset must be alphanumeric")
	}
	if err := c.Validation.Rules().Validate(); err != nil {
		return fmt.Errorf("validation: %w", err)
	}
	return nil
}

func isAlnum(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
}
