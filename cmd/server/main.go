// Package main is the entry point for the stockledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/reports"
	"stockledger/internal/domain/search"
	"stockledger/internal/infrastructure/cache"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/storage/memstore"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
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

	ctx := context.Background()
	log.Infow("starting stockledger server", "store", cfg.Store)

	// --- Storage ---
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer st.close()

	// --- Stats cache ---
	var statsCache reports.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer client.Close()
		statsCache = cache.NewStatsCache(client, "")
		log.Infow("stats cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.StatsCacheTTL)
	}

	// --- Services ---
	reportsService := reports.NewService(st.totals, statsCache, cfg.StatsCacheTTL, reports.WithReader(st.txm))
	ledgerService := ledger.NewService(st.items, st.logs, st.txm,
		ledger.WithEvents(st.events),
		ledger.WithInvalidator(reportsService),
		ledger.WithConfig(ledger.Config{
			MaxAttempts:          cfg.LedgerMaxRetries,
			SymmetricTransferLog: cfg.LedgerSymmetricTransferLog,
		}),
	)
	searchService := search.NewService(st.search, cfg.SearchCandidateLimit, search.WithReader(st.txm))

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:  log,
		Tokens:  jwtService,
		Store:   st.pinger,
		Ledger:  ledgerService,
		Search:  searchService,
		Reports: reportsService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// storage bundles the ports of one backend.
type storage struct {
	items  ledger.ItemRepository
	logs   ledger.LogRepository
	txm    tx.ReadOnlyManager
	events ledger.EventPublisher
	search search.Repository
	totals reports.Repository
	pinger handlers.Pinger
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		mem := memstore.New()
		return &storage{
			items:  mem,
			logs:   mem,
			txm:    mem,
			events: mem,
			search: mem,
			totals: mem,
			pinger: mem,
			close:  func() {},
		}, nil
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("database schema is up to date")
	}

	txm := postgres.NewTxManager(pool)
	items := ledger_repo.NewItemRepo(txm)
	logs, err := ledger_repo.NewLogRepo(txm, cfg.HistoryCompressBytes)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{
		items:  items,
		logs:   logs,
		txm:    txm,
		events: ledger_repo.NewEventOutbox(postgres.NewOutboxPublisher(txm)),
		search: items,
		totals: items,
		pinger: pool,
		close: func() {
			pool.LogStats(ctx)
			pool.Close()
		},
	}, nil
}
