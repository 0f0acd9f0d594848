package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dealscout/config"
	"dealscout/internal/evaluator"
	"dealscout/internal/notifier"
	"dealscout/internal/oracle"
	"dealscout/internal/pricing"
	"dealscout/internal/scraper"
	"dealscout/internal/store"
	"dealscout/logger"
	"dealscout/services/cache"
	"dealscout/services/publisher"
	"dealscout/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load(config.EnvFile)

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("search_url", cfg.SearchURL).
		Dur("poll_interval", cfg.PollInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Evaluation store
	evalStore, err := store.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open evaluation store")
	}
	defer evalStore.Close()
	logger.Info("Opened evaluation store at %s", cfg.SQLitePath)

	// Rate-limit cache (optional)
	var cacheSvc cache.CacheService
	if cfg.MemcacheAddr != "" {
		cacheSvc = cache.NewMemcache(cfg.MemcacheAddr)
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	// Kept-deal publisher (optional)
	var pub publisher.Publisher = publisher.Noop{}
	if cfg.RedisAddr != "" {
		pub = publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLen)
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}
	defer pub.Close()

	// Oracle with its ruleset
	rules, err := oracle.LoadRuleset(cfg.RulesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RulesPath).Msg("Failed to load oracle ruleset")
	}
	oracleClient := oracle.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, rules)

	// Pricing client with persisted token
	tokens := pricing.NewTokenSource(
		cfg.EbayClientID,
		cfg.EbayClientSecret,
		cfg.EbayScope,
		cfg.EbayTokenURL,
		cfg.EbayToken,
		cfg.EbayTokenExpiry,
		config.SaveEbayToken,
	)
	pricingClient := pricing.NewClient(cfg.EbayAPIBaseURL, cfg.EbayMarketplace, tokens)

	// Mail notifier (optional)
	var mailer worker.Notifier
	if cfg.SMTPHost != "" && cfg.MailRecipient != "" {
		mailer = notifier.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
		logger.Info("Mail notifications to %s via %s:%d", cfg.MailRecipient, cfg.SMTPHost, cfg.SMTPPort)
	} else {
		logger.Warn("Mail notifications disabled (SMTP_HOST or MAIL_RECIPIENT not set)")
	}

	// Create and start worker
	w := worker.NewWorker(ctx, worker.Options{
		Source:         scraper.NewScraper(cfg.SearchURL, cacheSvc, cfg.ScrapeBlockTime),
		Seen:           scraper.NewSeenSet(),
		Store:          evalStore,
		Evaluator:      evaluator.New(oracleClient, pricingClient),
		Notifier:       mailer,
		Publisher:      pub,
		Recipient:      cfg.MailRecipient,
		ScoreThreshold: cfg.ScoreThreshold,
		PollInterval:   cfg.PollInterval,
	})

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting deal scout worker")
		workerDone <- w.Start()
	}()

	// Wait for shutdown signal or worker error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
}
