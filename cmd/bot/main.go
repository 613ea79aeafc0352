package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/campusgate/campusbot/core/config"
	"github.com/campusgate/campusbot/core/database"
	"github.com/campusgate/campusbot/core/logger"
	"github.com/campusgate/campusbot/internal/bot"
)

// appConfig extends the core configuration with the database section.
type appConfig struct {
	coreconfig.Config `yaml:",inline"`
	Database          database.Config `yaml:"database"`
}

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(&cfg.Config); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(cfg.Database); err != nil {
		fatal("migrations failed", err)
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		fatal("database connect failed", err)
	}
	defer db.Close()

	app, err := bot.New(&cfg.Config, db)
	if err != nil {
		fatal("bot assembly failed", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		fatal("bot stopped with error", err)
	}
}

func loadConfig(path string) (*appConfig, error) {
	var cfg appConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func fatal(msg string, err error) {
	logger.L.Error(msg, slog.String("err", err.Error()))
	os.Exit(1)
}
