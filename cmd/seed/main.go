// Package main provides a CLI tool for seeding the database with demo stock
// and printing a development access token.
package main

import (
	"context"
	"fmt"
	"os"

	"stockledger/internal/config"
	"stockledger/internal/core/security"
	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
)

const seedActor = "seed"

var seedAdmin = security.Principal{UserID: seedActor, Role: security.RoleSuperadmin}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}
	if cfg.Store != config.StorePostgres {
		log.Fatal("seeding requires STORE=postgres")
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to migrate", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, cfg, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	token, expiresAt, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(seedAdmin, "seed")
	if err != nil {
		log.Fatalw("failed to issue token", "error", err)
	}
	log.Infow("development token issued", "role", seedAdmin.Role, "expires_at", expiresAt)
	fmt.Println(token)

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, cfg *config.Config, log *logger.Logger) error {
	txm := postgres.NewTxManager(pool)
	logs, err := ledger_repo.NewLogRepo(txm, cfg.HistoryCompressBytes)
	if err != nil {
		return err
	}
	service := ledger.NewService(ledger_repo.NewItemRepo(txm), logs, txm,
		ledger.WithEvents(ledger_repo.NewEventOutbox(postgres.NewOutboxPublisher(txm))),
	)

	for _, in := range demoItems() {
		out, err := service.AddOrUpdateItem(ctx, in, seedActor, seedAdmin, ledger.ModeUpdatePacking)
		if err != nil {
			return fmt.Errorf("seed %s/%s: %w", in.Code, in.WarehouseID, err)
		}
		log.Infow("seeded item",
			"code", in.Code,
			"warehouse_id", in.WarehouseID,
			"status", out.Status,
			"remaining", out.Item.Remaining(),
		)
	}
	return nil
}

func demoItems() []ledger.ItemInput {
	zero := int64(0)
	four := int64(4)
	return []ledger.ItemInput{
		{Name: "Olive Oil 500ml", Code: "OO-500", Color: "green", WarehouseID: "main", Cartons: 40, PerCarton: 12, Singles: &four, Supplier: "Levant Foods"},
		{Name: "Olive Oil 1l", Code: "OO-1000", Color: "green", WarehouseID: "main", Cartons: 25, PerCarton: 6, Singles: &zero, Supplier: "Levant Foods"},
		{Name: "Sparkling Water", Code: "SW-330", Color: "clear", WarehouseID: "main", Cartons: 80, PerCarton: 24, Singles: &zero},
		{Name: "Sparkling Water", Code: "SW-330", Color: "clear", WarehouseID: "north", Cartons: 10, PerCarton: 24, Singles: &zero},
		{Name: "Grape Juice", Code: "GJ-750", Color: "red", WarehouseID: "north", Cartons: 0, PerCarton: 6, Singles: &four, ItemLocation: "Aisle 3"},
	}
}
