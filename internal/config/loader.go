package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SOLARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SOLARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.RawSeed, "SOLARB_WALLET_RAW_SEED")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SOLARB_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SOLARB_WALLET_KEY_PASSWORD")

	// ── Endpoints ──
	setStr(&cfg.Solana.RPCURL, "SOLARB_SOLANA_RPC_URL")
	setStr(&cfg.Jupiter.BaseURL, "SOLARB_JUPITER_BASE_URL")
	setStr(&cfg.Raydium.BaseURL, "SOLARB_RAYDIUM_BASE_URL")

	// ── Arbitrage ──
	setStr(&cfg.Arbitrage.BaseSymbol, "SOLARB_ARBITRAGE_BASE_SYMBOL")
	setStr(&cfg.Arbitrage.QuoteSymbol, "SOLARB_ARBITRAGE_QUOTE_SYMBOL")
	setFloat64(&cfg.Arbitrage.NotionalUsd, "SOLARB_ARBITRAGE_NOTIONAL_USD")
	setFloat64(&cfg.Arbitrage.MinProfitUsd, "SOLARB_ARBITRAGE_MIN_PROFIT_USD")
	setInt(&cfg.Arbitrage.MinProfitBps, "SOLARB_ARBITRAGE_MIN_PROFIT_BPS")
	setDuration(&cfg.Arbitrage.Interval, "SOLARB_ARBITRAGE_INTERVAL")
	setFloat64(&cfg.Arbitrage.ReferencePriceUsd, "SOLARB_ARBITRAGE_REFERENCE_PRICE_USD")
	setDuration(&cfg.Arbitrage.MaxPriceAge, "SOLARB_ARBITRAGE_MAX_PRICE_AGE")
	setInt(&cfg.Arbitrage.ProbeEveryN, "SOLARB_ARBITRAGE_PROBE_EVERY_N")
	setStringSlice(&cfg.Arbitrage.ConnectivityEndpoints, "SOLARB_ARBITRAGE_CONNECTIVITY_ENDPOINTS")
	setFloat64(&cfg.Arbitrage.Guard.MaxProfitPct, "SOLARB_ARBITRAGE_GUARD_MAX_PROFIT_PCT")
	setFloat64(&cfg.Arbitrage.Guard.MaxProfitUsd, "SOLARB_ARBITRAGE_GUARD_MAX_PROFIT_USD")
	setFloat64(&cfg.Arbitrage.Guard.MaxPriceDivergence, "SOLARB_ARBITRAGE_GUARD_MAX_PRICE_DIVERGENCE")

	// ── Executor ──
	setInt(&cfg.Executor.SlippageBps, "SOLARB_EXECUTOR_SLIPPAGE_BPS")
	setInt(&cfg.Executor.MaxDailyTrades, "SOLARB_EXECUTOR_MAX_DAILY_TRADES")
	setBool(&cfg.Executor.DryRun, "SOLARB_EXECUTOR_DRY_RUN")
	setFloat64(&cfg.Executor.MaxTradeSizeSol, "SOLARB_EXECUTOR_MAX_TRADE_SIZE_SOL")
	setStr(&cfg.Executor.CooldownVenue, "SOLARB_EXECUTOR_COOLDOWN_VENUE")
	setDuration(&cfg.Executor.Cooldown, "SOLARB_EXECUTOR_COOLDOWN")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SOLARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SOLARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SOLARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SOLARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SOLARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SOLARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SOLARB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SOLARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SOLARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SOLARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SOLARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SOLARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SOLARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SOLARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SOLARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SOLARB_REDIS_TLS_ENABLED")

	// ── S3 / archive ──
	setStr(&cfg.S3.Endpoint, "SOLARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SOLARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "SOLARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SOLARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SOLARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SOLARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SOLARB_S3_FORCE_PATH_STYLE")
	setBool(&cfg.Archive.Enabled, "SOLARB_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "SOLARB_ARCHIVE_INTERVAL")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "SOLARB_FEED_ENABLED")
	setStr(&cfg.Feed.WSURL, "SOLARB_FEED_WS_URL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SOLARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SOLARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SOLARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SOLARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SOLARB_MODE")
	setStr(&cfg.LogLevel, "SOLARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
