// Package config loads and validates the bot configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

// Config is the full bot configuration. Loaded from a JSON/YAML file
// with BOT_* environment overrides.
type Config struct {
	TradingEnabled bool `mapstructure:"tradingEnabled"`
	TestMode       bool `mapstructure:"testMode"`

	Ledger   LedgerConfig         `mapstructure:"ledger"`
	Quote    QuoteConfig          `mapstructure:"quote"`
	Scanner  ScannerConfig        `mapstructure:"scanner"`
	Monitor  MonitorConfig        `mapstructure:"monitor"`
	Storage  StorageConfig        `mapstructure:"storage"`
	Defaults domain.TradingParams `mapstructure:"defaults"`

	// PatternsPath points at the JSON trading-pattern file.
	PatternsPath string `mapstructure:"patternsPath"`

	// MetricsAddr serves /metrics when non-empty.
	MetricsAddr string `mapstructure:"metricsAddr"`

	// StatusInterval spaces the aggregate status log line.
	StatusInterval time.Duration `mapstructure:"statusInterval"`
}

// LedgerConfig locates the chain and the launch platform.
type LedgerConfig struct {
	RPCEndpoint string `mapstructure:"rpcEndpoint"`
	WSEndpoint  string `mapstructure:"wsEndpoint"` // optional newHeads nudge

	PlatformAddress string `mapstructure:"platformAddress"`
	CreateSelector  string `mapstructure:"createSelector"` // 0x-hex, 4 bytes
	InfoSelector    string `mapstructure:"infoSelector"`   // 0x-hex, 4 bytes
	TokenLogOffset  int    `mapstructure:"tokenLogOffset"`

	WrappedNativeAddress string   `mapstructure:"wrappedNativeAddress"`
	StableAssets         []string `mapstructure:"stableAssets"`
}

// QuoteConfig drives the quote-asset fiat price cache.
type QuoteConfig struct {
	APIBaseURL    string        `mapstructure:"apiBaseURL"`
	CoinID        string        `mapstructure:"coinID"`
	Currency      string        `mapstructure:"currency"`
	TTL           time.Duration `mapstructure:"ttl"`
	FallbackPrice float64       `mapstructure:"fallbackPrice"`
	ReqPerSec     float64       `mapstructure:"reqPerSec"`
}

// ScannerConfig drives block discovery.
type ScannerConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	MaxBlocksPerScan uint64        `mapstructure:"maxBlocksPerScan"`
	StartBlock       uint64        `mapstructure:"startBlock"`
	MaxTrackedTokens int           `mapstructure:"maxTrackedTokens"`
}

// MonitorConfig drives the price/decision loop.
type MonitorConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	BatchSize   int           `mapstructure:"batchSize"`
	BatchDelay  time.Duration `mapstructure:"batchDelay"`
	ReadsPerSec float64       `mapstructure:"readsPerSec"`

	InactiveTimeout   time.Duration `mapstructure:"inactiveTimeout"`
	LowPriceFloorFiat float64       `mapstructure:"lowPriceFloorFiat"`
	LowPriceTimeout   time.Duration `mapstructure:"lowPriceTimeout"`

	MinPlausibleFiat float64 `mapstructure:"minPlausibleFiat"`
	MaxPlausibleFiat float64 `mapstructure:"maxPlausibleFiat"`
}

// StorageConfig selects the persistence backends. UseMemory switches
// both stores to in-process implementations.
type StorageConfig struct {
	UseMemory     bool   `mapstructure:"useMemory"`
	PostgresDSN   string `mapstructure:"postgresDSN"`
	ClickhouseDSN string `mapstructure:"clickhouseDSN"`
}

// Load reads the configuration file at path, applies defaults,
// environment overrides and the given explicit overrides, and
// validates the result. Override keys use the dotted config notation,
// e.g. "ledger.rpcEndpoint".
func Load(path string, overrides map[string]interface{}) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Explicit overrides (command-line flags) beat both the file and
	// the environment.
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tradingEnabled", true)
	v.SetDefault("testMode", true)
	v.SetDefault("patternsPath", "patterns.json")
	v.SetDefault("statusInterval", time.Minute)

	v.SetDefault("ledger.tokenLogOffset", 0)

	v.SetDefault("quote.apiBaseURL", "https://api.coingecko.com/api/v3")
	v.SetDefault("quote.coinID", "ethereum")
	v.SetDefault("quote.currency", "usd")
	v.SetDefault("quote.ttl", time.Minute)
	v.SetDefault("quote.fallbackPrice", 3000.0)
	v.SetDefault("quote.reqPerSec", 0.5)

	v.SetDefault("scanner.interval", 3*time.Second)
	v.SetDefault("scanner.maxBlocksPerScan", 10)
	v.SetDefault("scanner.maxTrackedTokens", 200)

	v.SetDefault("monitor.interval", 5*time.Second)
	v.SetDefault("monitor.batchSize", 10)
	v.SetDefault("monitor.batchDelay", 500*time.Millisecond)
	v.SetDefault("monitor.readsPerSec", 20.0)
	v.SetDefault("monitor.inactiveTimeout", 10*time.Minute)
	v.SetDefault("monitor.lowPriceFloorFiat", 0.0)
	v.SetDefault("monitor.lowPriceTimeout", 15*time.Minute)
	v.SetDefault("monitor.minPlausibleFiat", 1e-12)
	v.SetDefault("monitor.maxPlausibleFiat", 1e6)

	v.SetDefault("storage.useMemory", true)

	v.SetDefault("defaults.buyThresholdFiat", 0.00003)
	v.SetDefault("defaults.reentryBuyThresholdFiat", 0.00005)
	v.SetDefault("defaults.buyAmountFiat", 5.0)
	v.SetDefault("defaults.firstSellPct", 0.20)
	v.SetDefault("defaults.secondSellPct", 0.50)
	v.SetDefault("defaults.stopLossPct", 0.15)
	v.SetDefault("defaults.noiseThresholdPct", 0.01)
	v.SetDefault("defaults.stagnationTimeout", 5*time.Minute)
	v.SetDefault("defaults.sellCooldown", 30*time.Second)
	v.SetDefault("defaults.maxTradesPerToken", 3)
	v.SetDefault("defaults.reentryEnabled", true)
}

// Validate rejects configurations the bot cannot run with.
func (c *Config) Validate() error {
	if c.Ledger.RPCEndpoint == "" {
		return fmt.Errorf("ledger.rpcEndpoint is required")
	}
	if c.Ledger.PlatformAddress == "" {
		return fmt.Errorf("ledger.platformAddress is required")
	}
	if selLen := hexLen(c.Ledger.CreateSelector); selLen != 4 {
		return fmt.Errorf("ledger.createSelector must be 4 bytes of 0x-hex, got %q", c.Ledger.CreateSelector)
	}
	if selLen := hexLen(c.Ledger.InfoSelector); selLen != 4 {
		return fmt.Errorf("ledger.infoSelector must be 4 bytes of 0x-hex, got %q", c.Ledger.InfoSelector)
	}
	if c.Ledger.TokenLogOffset < 0 {
		return fmt.Errorf("ledger.tokenLogOffset must not be negative")
	}
	if c.Monitor.BatchSize <= 0 {
		return fmt.Errorf("monitor.batchSize must be positive")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if c.Scanner.Interval <= 0 {
		return fmt.Errorf("scanner.interval must be positive")
	}
	if c.Monitor.MinPlausibleFiat >= c.Monitor.MaxPlausibleFiat {
		return fmt.Errorf("monitor plausible price band is inverted")
	}
	if !c.Storage.UseMemory {
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgresDSN is required unless storage.useMemory is set")
		}
	}
	return nil
}

// hexLen returns the byte length of a 0x-prefixed hex string, or -1 if
// it is not one.
func hexLen(s string) int {
	if len(s) < 2 || (s[:2] != "0x" && s[:2] != "0X") {
		return -1
	}
	rest := s[2:]
	if len(rest)%2 != 0 {
		return -1
	}
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return -1
		}
	}
	return len(rest) / 2
}
