// Command roster-import loads the employee roster from a YAML file into
// Postgres. Names already present get their role and department refreshed.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/kirinyoku/party-rsvp/internal/config"
	"github.com/kirinyoku/party-rsvp/internal/postgres"
	postgresrepo "github.com/kirinyoku/party-rsvp/internal/repository/postgres"
	"github.com/kirinyoku/party-rsvp/internal/service/roster"
)

func main() {
	file := flag.String("file", "roster.yaml", "roster YAML file")
	migrate := flag.Bool("migrate", false, "apply schema migrations first")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("failed to open roster", "file", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	employees, err := roster.ReadYAML(f)
	if err != nil {
		logger.Error("failed to parse roster", "file", *file, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN()})
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if *migrate || cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	store := postgresrepo.NewStore(pool)
	n, err := roster.New(store.Employees(), logger).Import(ctx, employees)
	if err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}

	logger.Info("roster imported", "entries", len(employees), "rows", n)
}
