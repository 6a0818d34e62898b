package app

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/fhuezo/solarb/internal/arbitrage"
	s3blob "github.com/fhuezo/solarb/internal/blob/s3"
	"github.com/fhuezo/solarb/internal/cache/redis"
	"github.com/fhuezo/solarb/internal/config"
	"github.com/fhuezo/solarb/internal/crypto"
	"github.com/fhuezo/solarb/internal/domain"
	"github.com/fhuezo/solarb/internal/executor"
	"github.com/fhuezo/solarb/internal/feed"
	"github.com/fhuezo/solarb/internal/netx"
	"github.com/fhuezo/solarb/internal/notify"
	"github.com/fhuezo/solarb/internal/platform/jupiter"
	"github.com/fhuezo/solarb/internal/platform/raydium"
	"github.com/fhuezo/solarb/internal/platform/solana"
	"github.com/fhuezo/solarb/internal/store/postgres"
	"github.com/fhuezo/solarb/internal/token"
)

// Dependencies bundles everything the application modes need to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	TradeStore  domain.TradeStore // nil in monitor mode
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	BlobWriter  domain.BlobWriter // nil unless archiving is enabled

	Registry domain.TokenRegistry
	Prober   *netx.Prober
	RPC      *solana.Client
	Detector *arbitrage.Detector
	Executor *executor.Executor
	Notifier *notify.Notifier
	Feed     *feed.PythFeed // nil when the feed is disabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, mode string) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// Monitor mode never trades, whatever the executor config says.
	dryRun := cfg.Executor.DryRun || mode == "monitor"

	// --- Wallet ---
	// Only a live run needs the operator's real key. Quote and swap-build
	// requests still require a syntactically valid wallet address, so modes
	// that never submit get a throwaway key.
	var key ed25519.PrivateKey
	if !dryRun {
		loaded, err := crypto.LoadKeypair(crypto.KeyConfig{
			RawSeed:          cfg.Wallet.RawSeed,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		key = loaded
	} else {
		_, generated, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ephemeral key: %w", err)
		}
		key = generated
	}
	signer, err := crypto.NewSigner(key)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signer: %w", err)
	}

	// --- Token registry ---
	overrides := make(map[string]domain.TokenInfo, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		overrides[t.Symbol] = domain.TokenInfo{
			Symbol:   t.Symbol,
			Mint:     t.Mint,
			Decimals: t.Decimals,
		}
	}
	registry, err := token.NewRegistry(overrides)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: token registry: %w", err)
	}
	deps.Registry = registry

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- PostgreSQL (run mode records executed trades) ---
	if mode == "run" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.TradeStore = postgres.NewTradeStore(pgClient.Pool())
	}

	// --- S3 blob storage (trade dump archive) ---
	if cfg.Archive.Enabled && mode == "run" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Solana RPC and venue clients ---
	rpc, err := solana.NewClient(cfg.Solana.RPCURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: solana rpc: %w", err)
	}
	deps.RPC = rpc

	jup, err := jupiter.NewClient(cfg.Jupiter.BaseURL, registry, signer, rpc,
		deps.RateLimiter, cfg.Executor.SlippageBps, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: jupiter: %w", err)
	}
	ray, err := raydium.NewClient(cfg.Raydium.BaseURL, registry, signer, rpc,
		deps.RateLimiter, cfg.Executor.SlippageBps, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: raydium: %w", err)
	}

	// --- Detection and execution ---
	deps.Prober = netx.NewProber(cfg.Arbitrage.ConnectivityEndpoints, logger)

	guard := arbitrage.NewGuard(arbitrage.GuardConfig{
		MinPrice:           cfg.Arbitrage.Guard.MinPrice,
		MaxPrice:           cfg.Arbitrage.Guard.MaxPrice,
		SentinelPrices:     cfg.Arbitrage.Guard.SentinelPrices,
		MaxProfitPct:       cfg.Arbitrage.Guard.MaxProfitPct,
		MaxProfitUsd:       cfg.Arbitrage.Guard.MaxProfitUsd,
		MaxPriceDivergence: cfg.Arbitrage.Guard.MaxPriceDivergence,
	}, logger)

	deps.Detector = arbitrage.NewDetector(arbitrage.DetectorConfig{
		VenueA:       jup,
		VenueB:       ray,
		Registry:     registry,
		Guard:        guard,
		Prober:       deps.Prober,
		ProbeEveryN:  cfg.Arbitrage.ProbeEveryN,
		MinProfitUsd: cfg.Arbitrage.MinProfitUsd,
		MinProfitBps: float64(cfg.Arbitrage.MinProfitBps),
		Logger:       logger,
	})

	deps.Executor = executor.New(
		[]domain.VenueClient{jup, ray},
		registry,
		deps.TradeStore,
		deps.Notifier,
		executor.Config{
			SlippageBps:     cfg.Executor.SlippageBps,
			MaxDailyTrades:  cfg.Executor.MaxDailyTrades,
			DryRun:          dryRun,
			MaxTradeSizeSol: cfg.Executor.MaxTradeSizeSol,
			CooldownVenue:   cfg.Executor.CooldownVenue,
			Cooldown:        cfg.Executor.Cooldown.Duration,
		},
		logger,
	)

	// --- Reference price feed ---
	if cfg.Feed.Enabled {
		// Config maps symbol -> feed ID; the feed indexes the other way.
		feedSymbols := make(map[string]string, len(cfg.Feed.Feeds))
		for symbol, feedID := range cfg.Feed.Feeds {
			feedSymbols[feedID] = symbol
		}
		pythFeed, err := feed.NewPythFeed(cfg.Feed.WSURL, feedSymbols, deps.PriceCache, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: pyth feed: %w", err)
		}
		deps.Feed = pythFeed
	}

	return deps, cleanup, nil
}
