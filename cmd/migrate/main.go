package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/tendant/trustgate/pkg/config"
	"github.com/tendant/trustgate/pkg/db"
)

func main() {
	direction := flag.String("direction", db.DirectionUp, "migration direction: up or down")
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})))

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg.Database.Validate); err != nil {
		slog.Error("Invalid database configuration", "error", err)
		os.Exit(1)
	}

	if err := db.Migrate(cfg.Database.ToDatabaseURL(), *direction); err != nil {
		slog.Error("Migration failed", "direction", *direction, "error", err)
		os.Exit(1)
	}
}
