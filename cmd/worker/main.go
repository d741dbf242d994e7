// Package main is the entry point for the stockledger background worker.
// It relays the transactional outbox to the task queue and consumes ledger
// events to keep derived stats fresh.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"stockledger/internal/config"
	"stockledger/internal/domain/reports"
	"stockledger/internal/infrastructure/cache"
	"stockledger/internal/infrastructure/events"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
)

const (
	cleanupInterval = time.Hour
	outboxRetention = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer log.Sync()

	if cfg.Store != config.StorePostgres || cfg.RedisAddr == "" {
		log.Fatalw("worker requires STORE=postgres and REDIS_ADDR", "store", cfg.Store)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, log.WithComponent("worker"))

	log.Info("starting stockledger worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	queue := asynq.NewClient(redisOpts)
	defer queue.Close()

	// Outbox -> asynq
	txm := postgres.NewTxManager(pool)
	relay := postgres.NewOutboxRelay(txm, cfg.OutboxBatchSize, events.NewRelayHandler(queue))

	// asynq -> stats invalidation
	statsCache := cache.NewStatsCache(redisClient, "")
	stats := reports.NewService(ledger_repo.NewItemRepo(txm), statsCache, cfg.StatsCacheTTL, reports.WithReader(txm))
	worker := events.NewWorker(redisOpts, cfg.WorkerConcurrency, events.NewTransactionConsumer(stats))

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := relay.Run(ctx, cfg.OutboxPollInterval); err != nil {
			log.Errorw("outbox relay stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := worker.Run(ctx); err != nil {
			log.Errorw("event worker stopped", "error", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		runCleanup(ctx, relay, log)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

func runCleanup(ctx context.Context, relay *postgres.OutboxRelay, log *logger.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := relay.Cleanup(ctx, outboxRetention)
			if err != nil {
				log.Warnw("outbox cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				log.Infow("cleaned up published outbox messages", "count", n)
			}
		}
	}
}
