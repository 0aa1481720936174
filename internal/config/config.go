package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Destination drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Source providers.
const (
	ProviderHyperliquid = "hyperliquid"
	ProviderBinance     = "binance"
	ProviderMock        = "mock"
)

// TableConfig describes one destination table.
type TableConfig struct {
	Table         string `yaml:"table" toml:"table"`
	ConflictKey   string `yaml:"conflict_key" toml:"conflict_key"`
	TimeType      string `yaml:"time_type" toml:"time_type"`
	KeyedBySymbol *bool  `yaml:"keyed_by_symbol" toml:"keyed_by_symbol"`
}

// Config holds all application configuration.
type Config struct {
	Source struct {
		Provider       string `yaml:"provider" toml:"provider"`
		BaseURL        string `yaml:"base_url" toml:"base_url"`
		Interval       string `yaml:"interval" toml:"interval"`
		Count          int    `yaml:"count" toml:"count"`
		SymbolLimit    int    `yaml:"symbol_limit" toml:"symbol_limit"`
		Concurrency    int    `yaml:"concurrency" toml:"concurrency"`
		TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
	} `yaml:"source" toml:"source"`
	Destination struct {
		Driver      string      `yaml:"driver" toml:"driver"`
		DSN         string      `yaml:"dsn" toml:"dsn"`
		Schema      string      `yaml:"schema" toml:"schema"`
		ChunkSize   int         `yaml:"chunk_size" toml:"chunk_size"`
		AutoMigrate *bool       `yaml:"auto_migrate" toml:"auto_migrate"`
		Candles     TableConfig `yaml:"candles" toml:"candles"`
		Indicators  TableConfig `yaml:"indicators" toml:"indicators"`
	} `yaml:"destination" toml:"destination"`
	Mirror struct {
		RedisAddr     string `yaml:"redis_addr" toml:"redis_addr"`
		RedisPassword string `yaml:"redis_password" toml:"redis_password"`
		RedisDB       int    `yaml:"redis_db" toml:"redis_db"`
		KeyPrefix     string `yaml:"key_prefix" toml:"key_prefix"`
	} `yaml:"mirror" toml:"mirror"`
	Schedule struct {
		Cron string `yaml:"cron" toml:"cron"`
	} `yaml:"schedule" toml:"schedule"`
	HTTP struct {
		Addr string `yaml:"addr" toml:"addr"`
	} `yaml:"http" toml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token" toml:"bot_token"`
		ChatID   string `yaml:"chat_id" toml:"chat_id"`
	} `yaml:"telegram" toml:"telegram"`
	StateFile string `yaml:"state_file" toml:"state_file"`
	Proxy     string `yaml:"proxy" toml:"proxy"`
}

// Load reads config from a YAML or TOML file, then applies environment
// variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if strings.HasSuffix(strings.ToLower(path), ".toml") {
			err = toml.Unmarshal(data, cfg)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Source.Provider, "SOURCE_PROVIDER")
	setString(&c.Source.BaseURL, "SOURCE_BASE_URL")
	setString(&c.Source.Interval, "INTERVAL")
	setInt(&c.Source.Count, "CANDLE_COUNT")
	setInt(&c.Source.SymbolLimit, "SYMBOL_LIMIT")

	setString(&c.Destination.Driver, "DB_DRIVER")
	setString(&c.Destination.DSN, "DB_DSN")
	setString(&c.Destination.Schema, "DB_SCHEMA")
	setString(&c.Destination.Candles.Table, "CANDLES_TABLE")
	setString(&c.Destination.Indicators.Table, "INDICATORS_TABLE")
	setString(&c.Destination.Candles.TimeType, "CANDLES_TIME_TYPE")
	setString(&c.Destination.Indicators.TimeType, "INDICATORS_TIME_TYPE")
	setString(&c.Destination.Candles.ConflictKey, "ONCONFLICT")
	setString(&c.Destination.Indicators.ConflictKey, "ONCONFLICT")
	setString(&c.Destination.Candles.ConflictKey, "ONCONFLICT_CANDLES")
	setString(&c.Destination.Indicators.ConflictKey, "ONCONFLICT_INDICATORS")

	setString(&c.Mirror.RedisAddr, "REDIS_ADDR")
	setString(&c.Schedule.Cron, "CRON_INGEST")
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Proxy, "HTTPS_PROXY")
	setString(&c.StateFile, "STATE_FILE")
}

func (c *Config) applyDefaults() {
	if c.Source.Provider == "" {
		c.Source.Provider = ProviderHyperliquid
	}
	if c.Source.Interval == "" {
		c.Source.Interval = "4h"
	}
	if c.Source.Count == 0 {
		c.Source.Count = 200
	}
	if c.Source.SymbolLimit == 0 {
		c.Source.SymbolLimit = 100
	}
	if c.Source.Concurrency == 0 {
		c.Source.Concurrency = 1
	}
	if c.Source.TimeoutSeconds == 0 {
		c.Source.TimeoutSeconds = 30
	}

	d := &c.Destination
	if d.Driver == "" {
		d.Driver = DriverSQLite
	}
	if d.Driver == DriverSQLite && d.DSN == "" {
		d.DSN = "data/market_pulse.db"
	}
	if d.Schema == "" {
		d.Schema = "public"
	}
	if d.ChunkSize == 0 {
		d.ChunkSize = 500
	}
	if d.AutoMigrate == nil {
		d.AutoMigrate = boolPtr(d.Driver == DriverSQLite)
	}

	d.Candles.Table = normalizeTableName(d.Candles.Table)
	d.Indicators.Table = normalizeTableName(d.Indicators.Table)
	if d.Candles.Table == "" {
		d.Candles.Table = "candles"
	}
	if d.Indicators.Table == "" {
		d.Indicators.Table = "indicators"
	}
	if d.Candles.ConflictKey == "" {
		d.Candles.ConflictKey = "symbol"
	}
	if d.Indicators.ConflictKey == "" {
		d.Indicators.ConflictKey = "symbol"
	}
	if d.Candles.TimeType == "" {
		d.Candles.TimeType = "timestamp"
	}
	if d.Indicators.TimeType == "" {
		d.Indicators.TimeType = d.Candles.TimeType
	}
	if d.Candles.KeyedBySymbol == nil {
		d.Candles.KeyedBySymbol = boolPtr(false)
	}
	if d.Indicators.KeyedBySymbol == nil {
		d.Indicators.KeyedBySymbol = boolPtr(true)
	}

	if c.Mirror.KeyPrefix == "" {
		c.Mirror.KeyPrefix = "pulse"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 5 */4 * * *"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.StateFile == "" {
		c.StateFile = "data/last_run.json"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Source.Provider {
	case ProviderHyperliquid, ProviderBinance, ProviderMock:
	default:
		return fmt.Errorf("source.provider %q is not supported", c.Source.Provider)
	}
	if c.Source.Count <= 0 {
		return fmt.Errorf("source.count must be positive")
	}
	if c.Source.SymbolLimit <= 0 {
		return fmt.Errorf("source.symbol_limit must be positive")
	}
	if c.Source.Concurrency <= 0 {
		return fmt.Errorf("source.concurrency must be positive")
	}
	switch c.Destination.Driver {
	case DriverSQLite:
		if c.Destination.DSN == "" {
			return fmt.Errorf("destination.dsn (sqlite path) is required")
		}
	case DriverPostgres:
		if c.Destination.DSN == "" {
			return fmt.Errorf("destination.dsn is required for postgres")
		}
	case DriverNone:
	default:
		return fmt.Errorf("destination.driver %q is not supported", c.Destination.Driver)
	}
	if c.Destination.ChunkSize <= 0 {
		return fmt.Errorf("destination.chunk_size must be positive")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// normalizeTableName strips quotes and a leading public. schema prefix.
func normalizeTableName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
	if len(name) >= 7 && strings.EqualFold(name[:7], "public.") {
		name = name[7:]
	}
	return name
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func boolPtr(b bool) *bool { return &b }
