package main

import (
	"context"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/config"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/obs"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = "usage: dbtool [init|seed|all] (default all)"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	logger, err := obs.NewLogger(config.Get("LOG_LEVEL", "info"), config.Get("LOG_FORMAT", "console"), "field-route-dbtool")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	cmd := "all"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	database, err := db.Open(databaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	seedPath := config.Get("SEED_PATH", "data/seeds/seed.json")
	if err := execute(ctx, database, cmd, seedPath); err != nil {
		logger.Fatal("dbtool failed", zap.String("command", cmd), zap.Error(err))
	}
}

func execute(ctx context.Context, database *sqlx.DB, cmd, seedPath string) error {
	switch cmd {
	case "init":
		return initSchema(ctx, database)
	case "seed":
		return seed(ctx, database, seedPath)
	case "all":
		if err := initSchema(ctx, database); err != nil {
			return err
		}
		return seed(ctx, database, seedPath)
	default:
		return fmt.Errorf("unknown command %q; %s", cmd, usage)
	}
}

func initSchema(ctx context.Context, database *sqlx.DB) error {
	zap.L().Info("initializing database schema")
	if err := repositories.InitSchema(ctx, database); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	zap.L().Info("schema ready")
	return nil
}

func seed(ctx context.Context, database *sqlx.DB, seedPath string) error {
	zap.L().Info("seeding database", zap.String("path", seedPath))
	if err := repositories.SeedFromJSON(ctx, database, seedPath); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	zap.L().Info("seeding complete")
	return nil
}
