package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/config"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/application"
	pginfra "github.com/oksasatya/go-ddd-auth-scaffold/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/seed"
)

// PasswordPolicy builds the identity password policy from configuration.
func PasswordPolicy(cfg *config.Config) application.PasswordPolicy {
	return application.PasswordPolicy{
		RequiredLength:         cfg.PasswordMinLength,
		RequireDigit:           cfg.PasswordRequireDigit,
		RequireUppercase:       cfg.PasswordRequireUpper,
		RequireLowercase:       cfg.PasswordRequireLower,
		RequireNonAlphanumeric: cfg.PasswordRequireSymbol,
	}
}

// SeedOptions maps the SEED_* settings onto seeder options.
func SeedOptions(cfg *config.Config) seed.Options {
	return seed.Options{
		Roles:         cfg.SeedRoleNames(),
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
		DefaultRole:   cfg.SeedDefaultRole,
	}
}

// NewIdentity builds the Postgres-backed role and user managers.
func NewIdentity(pool *pgxpool.Pool, cfg *config.Config, logger *logrus.Logger) (*application.RoleManager, *application.UserManager) {
	roles := application.NewRoleManager(pginfra.NewRoleRepository(pool), logger)
	users := application.NewUserManager(pginfra.NewUserRepository(pool), roles, PasswordPolicy(cfg), logger)
	return roles, users
}

// FromConfig returns an orchestrator using the Postgres migrator and, when
// SEED_ENABLED is set, a seeder over the given managers.
func FromConfig(cfg *config.Config, roles *application.RoleManager, users *application.UserManager, logger *logrus.Logger) *Orchestrator {
	migrator := pginfra.NewMigrator(cfg.DatabaseURL, cfg.MigrationsDir, logger)
	if !cfg.SeedEnabled {
		return New(migrator, nil, logger)
	}
	return New(migrator, seed.New(roles, users, SeedOptions(cfg), logger), logger)
}
