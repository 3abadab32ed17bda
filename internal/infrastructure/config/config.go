package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存 HTTP API、掃描器及外部相依的執行設定。
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	DB      DBConfig      `yaml:"db"`
	Log     LogConfig     `yaml:"log"`
	Scanner ScannerConfig `yaml:"scanner"`
	Quote   QuoteConfig   `yaml:"quote"`
	Push    PushConfig    `yaml:"push"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxIdleTime     time.Duration `yaml:"max_idle_time"`
	ConnectAttempts uint          `yaml:"connect_attempts"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// ScannerConfig 控制背景掃描週期。
type ScannerConfig struct {
	Interval            time.Duration `yaml:"interval"`
	CycleTimeout        time.Duration `yaml:"cycle_timeout"`
	DeliveryConcurrency int           `yaml:"delivery_concurrency"`
}

type QuoteConfig struct {
	Provider       string        `yaml:"provider"`
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrency int           `yaml:"max_concurrency"`
}

// PushConfig 為 Web Push（VAPID）設定；私鑰為空時停用推播。
type PushConfig struct {
	VAPIDPublicKey  string        `yaml:"vapid_public_key"`
	VAPIDPrivateKey string        `yaml:"vapid_private_key"`
	Subject         string        `yaml:"subject"`
	TTL             time.Duration `yaml:"ttl"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	Timeout         time.Duration `yaml:"timeout"`
	ClickURL        string        `yaml:"click_url"`
}

// Enabled 表示是否具備送出推播所需的金鑰。
func (p PushConfig) Enabled() bool {
	return p.VAPIDPrivateKey != ""
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.DB.ConnectAttempts == 0 {
		cfg.DB.ConnectAttempts = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Scanner.Interval == 0 {
		cfg.Scanner.Interval = time.Minute
	}
	if cfg.Scanner.CycleTimeout == 0 {
		cfg.Scanner.CycleTimeout = 45 * time.Second
	}
	if cfg.Scanner.DeliveryConcurrency == 0 {
		cfg.Scanner.DeliveryConcurrency = 8
	}
	if cfg.Quote.Provider == "" {
		cfg.Quote.Provider = "finnhub"
	}
	if cfg.Quote.Timeout == 0 {
		cfg.Quote.Timeout = 5 * time.Second
	}
	if cfg.Quote.MaxConcurrency == 0 {
		cfg.Quote.MaxConcurrency = 8
	}
	if cfg.Push.Subject == "" {
		cfg.Push.Subject = "mailto:alerts@example.com"
	}
	if cfg.Push.TTL == 0 {
		cfg.Push.TTL = 24 * time.Hour
	}
	if cfg.Push.TokenTTL == 0 {
		cfg.Push.TokenTTL = 12 * time.Hour
	}
	if cfg.Push.Timeout == 0 {
		cfg.Push.Timeout = 10 * time.Second
	}
	if cfg.Push.ClickURL == "" {
		cfg.Push.ClickURL = "/alerts?ticker={ticker}"
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("DB_CONNECT_ATTEMPTS"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil && n > 0 {
			cfg.DB.ConnectAttempts = uint(n)
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("SCAN_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.Scanner.Interval = d
		}
	}
	if val := os.Getenv("QUOTE_PROVIDER"); val != "" {
		cfg.Quote.Provider = val
	}
	if val := os.Getenv("QUOTE_BASE_URL"); val != "" {
		cfg.Quote.BaseURL = val
	}
	if val := os.Getenv("QUOTE_API_KEY"); val != "" {
		cfg.Quote.APIKey = val
	}
	if val := os.Getenv("VAPID_PUBLIC_KEY"); val != "" {
		cfg.Push.VAPIDPublicKey = val
	}
	if val := os.Getenv("VAPID_PRIVATE_KEY"); val != "" {
		cfg.Push.VAPIDPrivateKey = val
	}
	if val := os.Getenv("VAPID_SUBJECT"); val != "" {
		cfg.Push.Subject = val
	}
	return cfg
}
