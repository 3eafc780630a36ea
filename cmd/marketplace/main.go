// Command marketplace runs the campus marketplace API and its maintenance
// tasks.
//
//	marketplace serve                        # HTTP API
//	marketplace migrate                      # create/upgrade the schema
//	marketplace prune-carts --older-than 720h
//	marketplace env                          # list configuration variables
//
// Configuration comes from the environment; a .env file in the working
// directory is loaded first when present.
//
//	@title						Campus Marketplace API
//	@version					1.0
//	@description				Listings and session carts for a campus second-hand marketplace.
//	@BasePath					/api
//	@schemes					http https
//	@produce					json
//	@consumes					json
//	@tag.name					Products
//	@tag.description			Listing registry
//	@tag.name					Cart
//	@tag.description			Session carts
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/tbourn/campus-market/internal/config"
	"github.com/tbourn/campus-market/internal/repo"
	"github.com/tbourn/campus-market/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "marketplace",
		Usage:   "campus marketplace API",
		Version: sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version),
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			pruneCartsCommand(),
			envCommand(),
		},
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("marketplace exited with error")
	}
}

// loadConfig reads the environment and installs the global logger. Commands
// call it first so that `env` still works with a broken configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	return cfg, nil
}

// openStore connects to the configured database. The caller closes it with
// closeStore.
func openStore(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("store opened")
	return db, nil
}

func closeStore(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("closing store")
	}
}
