package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agrolink/marketplace-watcher/internal/adapter"
	"github.com/agrolink/marketplace-watcher/internal/block"
	"github.com/agrolink/marketplace-watcher/internal/certificate"
	"github.com/agrolink/marketplace-watcher/internal/config"
	"github.com/agrolink/marketplace-watcher/internal/domain"
	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/messaging"
	"github.com/agrolink/marketplace-watcher/internal/normalizer"
	"github.com/agrolink/marketplace-watcher/internal/providers/ethereum"
	"github.com/agrolink/marketplace-watcher/internal/providers/jetstream"
	"github.com/agrolink/marketplace-watcher/internal/reconciler"
	"github.com/agrolink/marketplace-watcher/internal/reputation"
	"github.com/agrolink/marketplace-watcher/internal/sideeffect"
	"github.com/agrolink/marketplace-watcher/internal/status"
	"github.com/agrolink/marketplace-watcher/internal/store"
	"github.com/agrolink/marketplace-watcher/internal/watcher"
)

const serviceName = "marketplace-watcher"

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

// run wires the watcher and blocks until shutdown, returning the process exit code
func run() int {
	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadMarketplaceWatcherConfig(*configFile, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": serviceName,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Flush(2 * time.Second)

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, domain.ErrMissingProviderConfig) {
			// Not an error: the API can run without on-chain mirroring
			logger.WarnCtx(ctx, "Blockchain watcher disabled", zap.Error(err))
			return 0
		}
		logger.FatalCtx(ctx, "Invalid configuration", zap.Error(err))
	}

	logger.InfoCtx(ctx, "Starting marketplace watcher",
		zap.String("chain", string(cfg.Blockchain.ChainID)),
		zap.String("contract", cfg.Blockchain.ContractAddress))

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	logger.InfoCtx(ctx, "Connected to database")

	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	canonicalizer := adapter.NewCanonicalizer(jsonAdapter)

	// Initialize ethereum client
	contract, err := ethereum.NewMarketplaceContract(cfg.Blockchain.ContractAddress)
	if err != nil {
		logger.FatalCtx(ctx, "Invalid marketplace contract", zap.Error(err))
	}
	ethClient, err := adapter.NewEthClientDialer().Dial(ctx, cfg.Blockchain.ProviderURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial blockchain provider", zap.Error(err))
	}
	marketplaceClient := ethereum.NewClient(ethClient, contract, cfg.Blockchain.MaxBlockRange)

	if err := marketplaceClient.VerifyChain(ctx, cfg.Blockchain.ChainID); err != nil {
		logger.WarnCtx(ctx, "Chain id check failed", zap.Error(err))
	}

	// Select the event feed from the provider URL scheme
	heads := block.NewBlockHeadProvider(ethereum.NewBlockFetcher(marketplaceClient), block.Config{
		TTL:         cfg.Blockchain.BlockHeadTTL,
		StaleWindow: 5 * cfg.Blockchain.PollInterval(),
	}, clockAdapter)

	var subscriber messaging.Subscriber
	if cfg.Blockchain.UsePush() {
		pushCfg := ethereum.PushConfig{
			ChainID:         cfg.Blockchain.ChainID,
			InitialInterval: cfg.Blockchain.Reconnect.InitialInterval,
			MaxInterval:     cfg.Blockchain.Reconnect.MaxInterval,
			MaxElapsedTime:  cfg.Blockchain.Reconnect.MaxElapsedTime,
			Heads:           heads,
		}
		if cfg.Blockchain.PersistCursor {
			pushCfg.Checkpoint = dataStore
		}
		subscriber = ethereum.NewPushSubscriber(pushCfg, marketplaceClient)
	} else {
		pollCfg := ethereum.PollConfig{
			ChainID:  cfg.Blockchain.ChainID,
			Interval: cfg.Blockchain.PollInterval(),
		}
		if cfg.Blockchain.PersistCursor {
			pollCfg.Checkpoint = dataStore
		}
		subscriber = ethereum.NewPollSubscriber(pollCfg, marketplaceClient, heads, clockAdapter)
	}
	defer subscriber.Close()

	// Initialize the optional notification publisher
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream(), jsonAdapter)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err))
		}
		defer publisher.Close()
	}

	dispatcher := sideeffect.NewDispatcher(
		dataStore,
		reputation.NewService(dataStore),
		certificate.NewBuilder(canonicalizer, cfg.Certificate.ImageBaseURL),
		canonicalizer,
		publisher,
		clockAdapter,
	)
	rec := reconciler.New(dataStore, dispatcher, clockAdapter, reconciler.Config{
		EscrowHoldPeriod: cfg.Escrow.HoldPeriod,
	})

	watcherCfg := watcher.Config{
		ChainID:          cfg.Blockchain.ChainID,
		ResumeFromCursor: cfg.Blockchain.PersistCursor,
	}
	startBlock, ok, err := cfg.Blockchain.StartHeight()
	if err != nil {
		logger.WarnCtx(ctx, "Ignoring invalid start block, falling back to the chain head", zap.Error(err))
	}
	watcherCfg.StartBlock, watcherCfg.HasStartBlock = startBlock, ok

	w := watcher.New(
		watcherCfg,
		subscriber,
		normalizer.New(cfg.Blockchain.TokenDecimals),
		rec,
		dataStore,
		clockAdapter,
	)

	// Optional probe server
	var probe *status.Server
	if cfg.Status.Port > 0 {
		probe = status.New(status.Config{
			Debug: cfg.Debug,
			Host:  cfg.Status.Host,
			Port:  cfg.Status.Port,
		}, w)
		go func() {
			if err := probe.Start(); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("component", "status"))
			}
		}()
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("component", "watcher"))
			exitCode = 1
		}
		cancel()
	}

	if probe != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := probe.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, zap.String("component", "status"))
		}
		shutdownCancel()
	}

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("Marketplace watcher stopped", zap.Any("stats", w.Stats()))

	return exitCode
}
