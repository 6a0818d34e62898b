// Package config defines the top-level configuration for the solarb bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SOLARB_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Solana    SolanaConfig    `toml:"solana"`
	Jupiter   VenueConfig     `toml:"jupiter"`
	Raydium   VenueConfig     `toml:"raydium"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Executor  ExecutorConfig  `toml:"executor"`
	Tokens    []TokenOverride `toml:"tokens"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Feed      FeedConfig      `toml:"feed"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the Solana wallet credential source. Either a raw hex
// seed or an encrypted key file plus password.
type WalletConfig struct {
	RawSeed          string `toml:"raw_seed"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// SolanaConfig holds the RPC endpoint.
type SolanaConfig struct {
	RPCURL string `toml:"rpc_url"`
}

// VenueConfig holds the API root for one swap venue.
type VenueConfig struct {
	BaseURL string `toml:"base_url"`
}

// TokenOverride adds or replaces one entry in the built-in token table.
type TokenOverride struct {
	Symbol   string `toml:"symbol"`
	Mint     string `toml:"mint"`
	Decimals int    `toml:"decimals"`
}

// ArbitrageConfig holds detection parameters: the pair, the profit floors,
// the plausibility guard bounds, and the connectivity gate.
type ArbitrageConfig struct {
	BaseSymbol   string   `toml:"base_symbol"`
	QuoteSymbol  string   `toml:"quote_symbol"`
	NotionalUsd  float64  `toml:"notional_usd"`
	MinProfitUsd float64  `toml:"min_profit_usd"`
	MinProfitBps int      `toml:"min_profit_bps"`
	Interval     duration `toml:"interval"`

	// ReferencePriceUsd is the static fallback used when the feed has no
	// fresh price for the base token.
	ReferencePriceUsd float64  `toml:"reference_price_usd"`
	MaxPriceAge       duration `toml:"max_price_age"`

	ProbeEveryN           int      `toml:"probe_every_n"`
	ConnectivityEndpoints []string `toml:"connectivity_endpoints"`

	Guard GuardConfig `toml:"guard"`
}

// GuardConfig holds the plausibility bounds applied to every price and
// candidate opportunity.
type GuardConfig struct {
	MinPrice           float64   `toml:"min_price"`
	MaxPrice           float64   `toml:"max_price"`
	SentinelPrices     []float64 `toml:"sentinel_prices"`
	MaxProfitPct       float64   `toml:"max_profit_pct"`
	MaxProfitUsd       float64   `toml:"max_profit_usd"`
	MaxPriceDivergence float64   `toml:"max_price_divergence"`
}

// ExecutorConfig holds execution parameters.
type ExecutorConfig struct {
	SlippageBps     int      `toml:"slippage_bps"`
	MaxDailyTrades  int      `toml:"max_daily_trades"`
	DryRun          bool     `toml:"dry_run"`
	MaxTradeSizeSol float64  `toml:"max_trade_size_sol"`
	CooldownVenue   string   `toml:"cooldown_venue"`
	Cooldown        duration `toml:"cooldown"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the trade dump uploader.
type ArchiveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// FeedConfig holds the Pyth Hermes subscription. Feeds maps token symbol to
// Pyth feed ID (hex).
type FeedConfig struct {
	Enabled bool              `toml:"enabled"`
	WSURL   string            `toml:"ws_url"`
	Feeds   map[string]string `toml:"feeds"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Solana: SolanaConfig{
			RPCURL: "https://api.mainnet-beta.solana.com",
		},
		Jupiter: VenueConfig{
			BaseURL: "https://quote-api.jup.ag/v6",
		},
		Raydium: VenueConfig{
			BaseURL: "https://transaction-v1.raydium.io",
		},
		Arbitrage: ArbitrageConfig{
			BaseSymbol:        "SOL",
			QuoteSymbol:       "USDC",
			NotionalUsd:       1000,
			MinProfitUsd:      5,
			MinProfitBps:      50,
			Interval:          duration{10 * time.Second},
			ReferencePriceUsd: 150,
			MaxPriceAge:       duration{2 * time.Minute},
			ProbeEveryN:       10,
			ConnectivityEndpoints: []string{
				"https://quote-api.jup.ag/v6/tokens",
				"https://transaction-v1.raydium.io/main/version",
			},
			Guard: GuardConfig{
				MinPrice:           1e-9,
				MaxPrice:           1e9,
				SentinelPrices:     []float64{1000},
				MaxProfitPct:       20,
				MaxProfitUsd:       10_000,
				MaxPriceDivergence: 0.5,
			},
		},
		Executor: ExecutorConfig{
			SlippageBps:     50,
			MaxDailyTrades:  10,
			DryRun:          true,
			MaxTradeSizeSol: 0.1,
			CooldownVenue:   "jupiter",
			Cooldown:        duration{2 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "solarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "solarb-data",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:  false,
			Interval: duration{24 * time.Hour},
		},
		Feed: FeedConfig{
			Enabled: true,
			WSURL:   "wss://hermes.pyth.network/ws",
			Feeds: map[string]string{
				"SOL": "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d",
			},
		},
		Notify: NotifyConfig{
			Events: []string{"trade_completed", "trade_failed", "error"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":     true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet is only needed when trades can actually be submitted.
	needsWallet := strings.ToLower(c.Mode) == "run" && !c.Executor.DryRun
	if needsWallet {
		if c.Wallet.RawSeed == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either raw_seed or encrypted_key_path must be set for run mode")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	if c.Solana.RPCURL == "" {
		errs = append(errs, "solana: rpc_url must not be empty")
	}
	if c.Jupiter.BaseURL == "" {
		errs = append(errs, "jupiter: base_url must not be empty")
	}
	if c.Raydium.BaseURL == "" {
		errs = append(errs, "raydium: base_url must not be empty")
	}

	// Arbitrage
	if c.Arbitrage.BaseSymbol == "" || c.Arbitrage.QuoteSymbol == "" {
		errs = append(errs, "arbitrage: base_symbol and quote_symbol must both be set")
	}
	if strings.EqualFold(c.Arbitrage.BaseSymbol, c.Arbitrage.QuoteSymbol) {
		errs = append(errs, "arbitrage: base_symbol and quote_symbol must differ")
	}
	if c.Arbitrage.NotionalUsd <= 0 {
		errs = append(errs, "arbitrage: notional_usd must be > 0")
	}
	if c.Arbitrage.MinProfitUsd < 0 {
		errs = append(errs, "arbitrage: min_profit_usd must be >= 0")
	}
	if c.Arbitrage.MinProfitBps < 0 {
		errs = append(errs, "arbitrage: min_profit_bps must be >= 0")
	}
	if c.Arbitrage.Interval.Duration <= 0 {
		errs = append(errs, "arbitrage: interval must be > 0")
	}
	if c.Arbitrage.ReferencePriceUsd <= 0 {
		errs = append(errs, "arbitrage: reference_price_usd must be > 0")
	}
	if c.Arbitrage.ProbeEveryN < 1 {
		errs = append(errs, "arbitrage: probe_every_n must be >= 1")
	}
	if len(c.Arbitrage.ConnectivityEndpoints) == 0 {
		errs = append(errs, "arbitrage: at least one connectivity endpoint is required")
	}
	if g := c.Arbitrage.Guard; g.MinPrice <= 0 || g.MaxPrice <= g.MinPrice {
		errs = append(errs, "arbitrage.guard: min_price must be > 0 and max_price > min_price")
	}
	if c.Arbitrage.Guard.MaxPriceDivergence <= 0 {
		errs = append(errs, "arbitrage.guard: max_price_divergence must be > 0")
	}

	// Executor
	if c.Executor.SlippageBps < 0 || c.Executor.SlippageBps > 10_000 {
		errs = append(errs, fmt.Sprintf("executor: slippage_bps must be 0-10000, got %d", c.Executor.SlippageBps))
	}
	if c.Executor.MaxDailyTrades < 0 {
		errs = append(errs, "executor: max_daily_trades must be >= 0 (0 = unlimited)")
	}
	if c.Executor.MaxTradeSizeSol <= 0 {
		errs = append(errs, "executor: max_trade_size_sol must be > 0")
	}

	// Tokens
	for i, tok := range c.Tokens {
		if tok.Symbol == "" || tok.Mint == "" {
			errs = append(errs, fmt.Sprintf("tokens[%d]: symbol and mint must both be set", i))
		}
		if tok.Decimals < 0 || tok.Decimals > 18 {
			errs = append(errs, fmt.Sprintf("tokens[%d]: decimals must be 0-18, got %d", i, tok.Decimals))
		}
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only touched when archiving is on.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Feed
	if c.Feed.Enabled {
		if c.Feed.WSURL == "" {
			errs = append(errs, "feed: ws_url must not be empty when the feed is enabled")
		}
		if len(c.Feed.Feeds) == 0 {
			errs = append(errs, "feed: at least one symbol-to-feed-ID mapping is required when the feed is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
