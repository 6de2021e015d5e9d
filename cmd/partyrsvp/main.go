package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/party-rsvp/docs"
	"github.com/kirinyoku/party-rsvp/internal/app"
	"github.com/kirinyoku/party-rsvp/internal/config"
)

// @title Party RSVP API
// @version 1.0
// @description Guided RSVP wizard, cost calculator and admin dashboard for the company party.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey AdminBearer
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
