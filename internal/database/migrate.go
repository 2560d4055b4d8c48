// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// setup points goose at the embedded migrations of the given dialect and
// returns the directory to run.
func setup(dialect Dialect) (string, error) {
	goose.SetBaseFS(embedMigrations)

	if dialect == DialectPostgres {
		if err := goose.SetDialect("postgres"); err != nil {
			return "", err
		}
		return "migrations/postgres", nil
	}

	if err := goose.SetDialect("sqlite3"); err != nil {
		return "", err
	}
	return "migrations/sqlite", nil
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(db *sql.DB, dialect Dialect) error {
	dir, err := setup(dialect)
	if err != nil {
		return err
	}
	return goose.Up(db, dir)
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sql.DB, dialect Dialect) error {
	dir, err := setup(dialect)
	if err != nil {
		return err
	}
	return goose.Down(db, dir)
}

// MigrateReset rolls back all migrations.
func MigrateReset(db *sql.DB, dialect Dialect) error {
	dir, err := setup(dialect)
	if err != nil {
		return err
	}
	return goose.Reset(db, dir)
}
