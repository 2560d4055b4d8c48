// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/config"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/database"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/i18n"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/repository"
	authsvc "codeberg.org/oliverandrich/go-webapp-boilerplate/internal/services/auth"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// Seed account, for local development only.
const (
	SeedAdminEmail    = "admin@example.com"
	SeedAdminPassword = "admin123"
	SeedAdminName     = "Admin"
)

// Commands returns the subcommands of the app binary.
func Commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Start the web server (default)",
			Action: Run,
		},
		{
			Name:  "migrate",
			Usage: "Manage the database schema",
			Commands: []*cli.Command{
				{
					Name:   "up",
					Usage:  "Apply pending migrations",
					Action: migrateAction(database.RunMigrations, "migrations applied"),
				},
				{
					Name:   "down",
					Usage:  "Roll back the last migration",
					Action: migrateAction(database.MigrateDown, "migration rolled back"),
				},
				{
					Name:   "reset",
					Usage:  "Roll back all migrations",
					Action: migrateAction(database.MigrateReset, "migrations reset"),
				},
			},
		},
		{
			Name:   "seed",
			Usage:  "Create the admin account and a welcome post",
			Action: Seed,
		},
	}
}

func migrateAction(run func(*sql.DB, database.Dialect) error, done string) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		setupLogger(cfg.Log.Level, cfg.Log.Format)

		db, err := database.Connect(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer closeDB(db)

		if err := run(db.DB, database.DialectOf(db)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		slog.Info(done, "dialect", database.DialectOf(db))
		return nil
	}
}

// Seed creates the admin account and its welcome post. Running it again
// leaves existing data alone.
func Seed(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeDB(db)

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}

	return seed(ctx, db, &cfg.Auth)
}

func seed(ctx context.Context, db *sqlx.DB, cfg *config.AuthConfig) error {
	repo := repository.New(db)
	svc := authsvc.NewService(repo, cfg)

	admin, err := svc.EnsureAdmin(ctx, SeedAdminEmail, SeedAdminPassword, SeedAdminName)
	if err != nil {
		return err
	}

	posts, err := repo.ListPostsByAuthor(ctx, admin.ID)
	if err != nil {
		return fmt.Errorf("failed to list posts: %w", err)
	}
	if len(posts) == 0 {
		post := &models.Post{
			Title:     i18n.T(ctx, "welcome_post_title"),
			Content:   i18n.TData(ctx, "welcome_post_content", map[string]any{"Email": admin.Email}),
			Published: true,
			AuthorID:  admin.ID,
		}
		if err := repo.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("failed to create welcome post: %w", err)
		}
	}

	slog.Info("seed complete", "admin", admin.Email)
	return nil
}
