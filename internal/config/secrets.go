package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Wallet.RawSeed)
	redact(&out.Wallet.KeyPassword)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}
	if cfg.Arbitrage.ConnectivityEndpoints != nil {
		out.Arbitrage.ConnectivityEndpoints = append([]string(nil), cfg.Arbitrage.ConnectivityEndpoints...)
	}
	if cfg.Arbitrage.Guard.SentinelPrices != nil {
		out.Arbitrage.Guard.SentinelPrices = append([]float64(nil), cfg.Arbitrage.Guard.SentinelPrices...)
	}
	if cfg.Tokens != nil {
		out.Tokens = append([]TokenOverride(nil), cfg.Tokens...)
	}
	if cfg.Feed.Feeds != nil {
		out.Feed.Feeds = make(map[string]string, len(cfg.Feed.Feeds))
		for k, v := range cfg.Feed.Feeds {
			out.Feed.Feeds[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
