package main

import (
	"errors"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/visahub/crm-service/internal/config"
	"github.com/visahub/crm-service/internal/observability"
)

func main() {
	var (
		source  = flag.String("source", "file://migrations", "Migration source URL")
		command = flag.String("command", "up", "Migration command (up, down, force)")
		version = flag.Int("version", 1, "Version for the force command")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	connCfg, err := pgx.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("failed to parse DSN", zap.Error(err))
	}
	db := stdlib.OpenDB(*connCfg)
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.Fatal("failed to create migration driver", zap.Error(err))
	}

	m, err := migrate.NewWithDatabaseInstance(*source, "postgres", driver)
	if err != nil {
		logger.Fatal("failed to create migrator", zap.Error(err))
	}

	switch *command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("failed to apply migrations", zap.Error(err))
		}
		logger.Info("migrations applied")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("failed to revert migrations", zap.Error(err))
		}
		logger.Info("migrations reverted")
	case "force":
		if err := m.Force(*version); err != nil {
			logger.Fatal("failed to force migration version", zap.Error(err))
		}
		logger.Info("migration version forced", zap.Int("version", *version))
	default:
		logger.Fatal("unknown command", zap.String("command", *command))
	}
}
