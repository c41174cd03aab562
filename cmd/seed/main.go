package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-auth-scaffold/config"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/bootstrap"
	pginfra "github.com/oksasatya/go-ddd-auth-scaffold/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/seed"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
)

// One-shot migrate and seed. Unlike server startup this exits non-zero on failure.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	if err := pginfra.NewMigrator(cfg.DatabaseURL, cfg.MigrationsDir, logger).Up(ctx); err != nil {
		helpers.LogError(logger, "migration failed", err, nil)
		os.Exit(1)
	}

	pool, err := pginfra.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		helpers.LogError(logger, "open pool", err, nil)
		os.Exit(1)
	}
	defer pool.Close()

	roles, users := bootstrap.NewIdentity(pool, cfg, logger)
	rep := seed.New(roles, users, bootstrap.SeedOptions(cfg), logger).Seed(ctx)
	for _, o := range append(rep.Roles, rep.User) {
		helpers.LogInfo(logger, "seed outcome", map[string]any{"kind": o.Kind, "name": o.Name, "state": o.State})
	}
	if rep.Failed() {
		pool.Close()
		os.Exit(1)
	}
}
