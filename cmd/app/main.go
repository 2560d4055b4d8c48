// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/config"
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:     "app",
		Usage:    "Web application with accounts, sessions and posts",
		Flags:    config.Flags(),
		Action:   server.Run,
		Commands: server.Commands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
